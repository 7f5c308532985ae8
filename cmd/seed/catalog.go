package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cinecriticas/store/internal/model"
	"github.com/cinecriticas/store/internal/repository"
)

// catalog is the YAML document accepted by the seed command:
//
//	admin:
//	  email: admin@cinecriticas.test
//	  name: Admin
//	  password: change-me-please
//	products:
//	  - name: Dune Steelbook
//	    price: "29.99"
//	    stock: 5
//	    category: Coleccionables
//	    tags: [sci-fi, 4k]
//	    productable_type: Movie
//	    productable_id: 1
type catalog struct {
	Admin    *seedAdmin    `yaml:"admin"`
	Products []seedProduct `yaml:"products"`
}

type seedAdmin struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

type seedProduct struct {
	repository.ProductInput `yaml:",inline"`
	Category                string   `yaml:"category"`
	Tags                    []string `yaml:"tags"`
	ProductableType         string   `yaml:"productable_type"`
	ProductableID           int64    `yaml:"productable_id"`
}

// seedResult counts what a run did.
type seedResult struct {
	Created int
	Skipped int
}

func parseCatalog(r io.Reader) (catalog, error) {
	var c catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	return c, nil
}

type seeder struct {
	products   *repository.ProductRepo
	categories *repository.CategoryRepo
	users      *repository.UserRepo
	bcryptCost int
	log        *zap.Logger
}

// run creates the admin account and every product.  Products that
// collide on SKU are skipped so the command can be re-run.
func (s *seeder) run(ctx context.Context, c catalog) (seedResult, error) {
	var res seedResult
	if c.Admin != nil {
		email := strings.ToLower(strings.TrimSpace(c.Admin.Email))
		_, err := s.users.Create(ctx, email, c.Admin.Name, c.Admin.Password, model.RoleAdmin, s.bcryptCost)
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			s.log.Info("admin already present", zap.String("email", email))
		case err != nil:
			return res, fmt.Errorf("create admin: %w", err)
		default:
			s.log.Info("admin created", zap.String("email", email))
		}
	}

	for i, sp := range c.Products {
		in := sp.ProductInput
		if name := strings.TrimSpace(sp.Category); name != "" {
			id, err := s.categories.EnsureCategory(ctx, name)
			if err != nil {
				return res, fmt.Errorf("product %d: category %q: %w", i, name, err)
			}
			in.CategoryID = &id
		}
		for _, tag := range sp.Tags {
			id, err := s.categories.EnsureTag(ctx, tag)
			if err != nil {
				return res, fmt.Errorf("product %d: tag %q: %w", i, tag, err)
			}
			in.TagIDs = append(in.TagIDs, id)
		}
		in.Target = model.ParseTarget(
			sql.NullString{String: sp.ProductableType, Valid: sp.ProductableType != ""},
			sql.NullInt64{Int64: sp.ProductableID, Valid: sp.ProductableID > 0},
		)

		p, err := s.products.Create(ctx, in)
		if errors.Is(err, repository.ErrConflict) {
			s.log.Warn("product skipped", zap.String("name", in.Name), zap.Error(err))
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("product %d (%s): %w", i, in.Name, err)
		}
		s.log.Info("product created", zap.Uint64("id", p.ID), zap.String("slug", p.Slug))
		res.Created++
	}
	return res, nil
}
