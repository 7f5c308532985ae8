package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductKind distinguishes collectible merchandise from VIP memberships.
type ProductKind string

const (
	KindPurchase   ProductKind = "purchase"
	KindMembership ProductKind = "membership"
)

// Valid reports whether k is one of the known product kinds.
func (k ProductKind) Valid() bool {
	return k == KindPurchase || k == KindMembership
}

// Product represents a purchasable catalog item as stored in the
// `products` table.  Price is a fixed-point decimal and Stock is never
// negative; the stock counter is only decremented inside the order
// transaction.
//
// Fields:
//
//	ID          – primary key identifier.
//	Name        – display name; the slug is derived from it.
//	Slug        – unique URL-safe identifier.
//	Price       – unit price (DECIMAL(10,2), >= 0).
//	Stock       – available units (>= 0).
//	SKU         – optional unique stock keeping unit.
//	Kind        – purchase or membership.
//	Benefits    – membership perks (JSON array in the DB).
//	Target      – optional reference to the Movie or Series the item belongs to.
//	Productable – the resolved Target, attached by listings; never persisted.
type Product struct {
	ID          uint64          `json:"id"`                     // products.id
	Name        string          `json:"name"`                   // products.name
	Slug        string          `json:"slug"`                   // products.slug
	Description string          `json:"description"`            // products.description
	Price       decimal.Decimal `json:"price"`                  // products.price
	Stock       int             `json:"stock"`                  // products.stock
	Brand       string          `json:"brand,omitempty"`        // products.brand
	SKU         *string         `json:"sku,omitempty"`          // products.sku (nullable, unique)
	Edition     string          `json:"edition,omitempty"`      // products.edition
	ReleaseYear *int            `json:"release_year,omitempty"` // products.release_year
	Kind        ProductKind     `json:"kind"`                   // products.kind
	Benefits    []string        `json:"benefits,omitempty"`     // products.benefits
	ImageURL    string          `json:"image_url,omitempty"`    // products.image_url
	CategoryID  *uint64         `json:"category_id,omitempty"`  // products.category_id
	Target      ProductTarget   `json:"target"`                 // products.productable_type / productable_id
	CreatedAt   time.Time       `json:"created_at"`             // products.created_at
	UpdatedAt   time.Time       `json:"updated_at"`             // products.updated_at

	Category    *Category `json:"category,omitempty"`
	Tags        []Tag     `json:"tags,omitempty"`
	Productable *Title    `json:"productable,omitempty"`
}

// Category groups products for browsing.
type Category struct {
	ID   uint64 `json:"id"`   // categories.id
	Name string `json:"name"` // categories.name
}

// Tag is a free-form label attached to products through product_tags.
type Tag struct {
	ID   uint64 `json:"id"`   // tags.id
	Name string `json:"name"` // tags.name
}
