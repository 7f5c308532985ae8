package database

// AllMigrations lists the schema history.  Each entry carries the MySQL
// DDL used in production and the equivalent SQLite DDL used by tests.
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		MySQL: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
				email VARCHAR(255) NOT NULL UNIQUE,
				name VARCHAR(120) NOT NULL DEFAULT '',
				password_hash VARCHAR(255) NOT NULL,
				role VARCHAR(16) NOT NULL DEFAULT 'USER',
				is_vip TINYINT(1) NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS categories (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
				name VARCHAR(120) NOT NULL UNIQUE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS tags (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
				name VARCHAR(120) NOT NULL UNIQUE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS movies (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				release_year INT NULL,
				poster_url VARCHAR(512) NOT NULL DEFAULT ''
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS series (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				release_year INT NULL,
				poster_url VARCHAR(512) NOT NULL DEFAULT ''
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS products (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				slug VARCHAR(255) NOT NULL UNIQUE,
				description TEXT NOT NULL,
				price DECIMAL(10,2) NOT NULL DEFAULT 0,
				stock INT NOT NULL DEFAULT 0,
				brand VARCHAR(120) NOT NULL DEFAULT '',
				sku VARCHAR(64) NULL UNIQUE,
				edition VARCHAR(120) NOT NULL DEFAULT '',
				release_year INT NULL,
				kind VARCHAR(16) NOT NULL DEFAULT 'purchase',
				benefits TEXT NULL,
				image_url VARCHAR(512) NOT NULL DEFAULT '',
				category_id BIGINT UNSIGNED NULL,
				productable_type VARCHAR(16) NULL,
				productable_id BIGINT UNSIGNED NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				CONSTRAINT chk_products_price CHECK (price >= 0),
				CONSTRAINT chk_products_stock CHECK (stock >= 0),
				CONSTRAINT fk_products_category FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE SET NULL,
				INDEX idx_products_created (created_at),
				INDEX idx_products_productable (productable_type, productable_id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS product_tags (
				product_id BIGINT UNSIGNED NOT NULL,
				tag_id BIGINT UNSIGNED NOT NULL,
				PRIMARY KEY (product_id, tag_id),
				CONSTRAINT fk_product_tags_product FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE,
				CONSTRAINT fk_product_tags_tag FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		},
		SQLite: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				email TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL DEFAULT '',
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'USER',
				is_vip INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS categories (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE
			)`,
			`CREATE TABLE IF NOT EXISTS tags (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE
			)`,
			`CREATE TABLE IF NOT EXISTS movies (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				title TEXT NOT NULL,
				release_year INTEGER NULL,
				poster_url TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS series (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				title TEXT NOT NULL,
				release_year INTEGER NULL,
				poster_url TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS products (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				slug TEXT NOT NULL UNIQUE,
				description TEXT NOT NULL DEFAULT '',
				price DECIMAL(10,2) NOT NULL DEFAULT 0 CHECK (price >= 0),
				stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
				brand TEXT NOT NULL DEFAULT '',
				sku TEXT NULL UNIQUE,
				edition TEXT NOT NULL DEFAULT '',
				release_year INTEGER NULL,
				kind TEXT NOT NULL DEFAULT 'purchase',
				benefits TEXT NULL,
				image_url TEXT NOT NULL DEFAULT '',
				category_id INTEGER NULL REFERENCES categories(id) ON DELETE SET NULL,
				productable_type TEXT NULL,
				productable_id INTEGER NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_products_created ON products(created_at)`,
			`CREATE TABLE IF NOT EXISTS product_tags (
				product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
				tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
				PRIMARY KEY (product_id, tag_id)
			)`,
		},
	},
	{
		Version: "1.1.0",
		MySQL: []string{
			`CREATE TABLE IF NOT EXISTS orders (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
				user_id BIGINT UNSIGNED NOT NULL,
				status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
				total_amount DECIMAL(12,2) NOT NULL DEFAULT 0,
				currency CHAR(3) NOT NULL DEFAULT 'USD',
				payment_method VARCHAR(32) NOT NULL DEFAULT '',
				payment_ref VARCHAR(128) NULL,
				created_at DATETIME NOT NULL,
				INDEX idx_orders_user_created (user_id, created_at)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS order_items (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
				order_id BIGINT UNSIGNED NOT NULL,
				product_id BIGINT UNSIGNED NOT NULL,
				quantity INT NOT NULL,
				unit_price DECIMAL(10,2) NOT NULL,
				CONSTRAINT chk_order_items_quantity CHECK (quantity > 0),
				CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
				CONSTRAINT fk_order_items_product FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		},
		SQLite: []string{
			`CREATE TABLE IF NOT EXISTS orders (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL,
				status TEXT NOT NULL DEFAULT 'PENDING',
				total_amount DECIMAL(12,2) NOT NULL DEFAULT 0,
				currency TEXT NOT NULL DEFAULT 'USD',
				payment_method TEXT NOT NULL DEFAULT '',
				payment_ref TEXT NULL,
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at)`,
			`CREATE TABLE IF NOT EXISTS order_items (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				order_id INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
				product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE RESTRICT,
				quantity INTEGER NOT NULL CHECK (quantity > 0),
				unit_price DECIMAL(10,2) NOT NULL
			)`,
		},
	},
}
