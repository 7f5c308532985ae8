// Command seed loads a YAML catalog into the store database.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cinecriticas/store/internal/config"
	"github.com/cinecriticas/store/internal/database"
	"github.com/cinecriticas/store/internal/logging"
	"github.com/cinecriticas/store/internal/repository"
)

func main() {
	file := flag.String("file", "catalog.yaml", "path to the YAML catalog")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg := config.Load()

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	f, err := os.Open(*file)
	if err != nil {
		logger.Fatal("open catalog", zap.Error(err))
	}
	cat, err := parseCatalog(f)
	_ = f.Close()
	if err != nil {
		logger.Fatal("parse catalog", zap.String("file", *file), zap.Error(err))
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := database.Migrate(ctx, db, database.DialectMySQL); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	s := &seeder{
		products:   repository.NewProductRepo(db, repository.NewTitleRepo(db), logger),
		categories: repository.NewCategoryRepo(db),
		users:      repository.NewUserRepo(db),
		bcryptCost: cfg.BcryptCost,
		log:        logger,
	}
	res, err := s.run(ctx, cat)
	if err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
	logger.Info("seed finished", zap.Int("created", res.Created), zap.Int("skipped", res.Skipped))
}
