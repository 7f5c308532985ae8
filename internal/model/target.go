package model

import (
	"database/sql"
	"encoding/json"
	"strings"
)

// TargetKind names the entity a product may point at.
type TargetKind string

const (
	TargetNone   TargetKind = ""
	TargetMovie  TargetKind = "Movie"
	TargetSeries TargetKind = "Series"
)

// ProductTarget is the polymorphic reference stored in
// products.productable_type / products.productable_id.  The zero value
// means the product is not tied to any title.
type ProductTarget struct {
	Kind TargetKind
	ID   uint64
}

// MovieTarget and SeriesTarget build the two non-empty variants.
func MovieTarget(id uint64) ProductTarget  { return ProductTarget{Kind: TargetMovie, ID: id} }
func SeriesTarget(id uint64) ProductTarget { return ProductTarget{Kind: TargetSeries, ID: id} }

// IsNone reports whether the product has no title reference.
func (t ProductTarget) IsNone() bool { return t.Kind == TargetNone || t.ID == 0 }

// ParseTarget builds a target from its stored columns.  Unknown type
// names and zero ids collapse to the empty target.
func ParseTarget(typ sql.NullString, id sql.NullInt64) ProductTarget {
	if !typ.Valid || !id.Valid || id.Int64 <= 0 {
		return ProductTarget{}
	}
	switch strings.ToLower(strings.TrimSpace(typ.String)) {
	case "movie":
		return MovieTarget(uint64(id.Int64))
	case "series", "serie":
		return SeriesTarget(uint64(id.Int64))
	}
	return ProductTarget{}
}

// Columns returns the nullable column values for persistence.
func (t ProductTarget) Columns() (any, any) {
	if t.IsNone() {
		return nil, nil
	}
	return string(t.Kind), t.ID
}

// MarshalJSON renders the target as {"type":"Movie","id":1} or null.
func (t ProductTarget) MarshalJSON() ([]byte, error) {
	if t.IsNone() {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		Type TargetKind `json:"type"`
		ID   uint64     `json:"id"`
	}{t.Kind, t.ID})
}

// Title is a movie or series resolved from a ProductTarget.
type Title struct {
	ID          uint64     `json:"id"`
	Kind        TargetKind `json:"type"`
	Title       string     `json:"title"`
	ReleaseYear *int       `json:"release_year,omitempty"`
	PosterURL   string     `json:"poster_url,omitempty"`
}
