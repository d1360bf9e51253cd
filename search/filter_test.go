package search

import (
	"testing"

	"github.com/google/uuid"
)

func TestCompileDropsMalformedValues(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]string
		want func(t *testing.T, f Filter)
	}{
		{
			name: "empty input yields no constraints",
			raw:  map[string]string{},
			want: func(t *testing.T, f Filter) {
				if !f.IsZero() {
					t.Errorf("expected zero filter, got %+v", f)
				}
			},
		},
		{
			name: "bad max price keeps good min price",
			raw:  map[string]string{"min_price": "50", "max_price": "abc"},
			want: func(t *testing.T, f Filter) {
				if f.MinPrice == nil || *f.MinPrice != 50 {
					t.Errorf("expected min price 50, got %v", f.MinPrice)
				}
				if f.MaxPrice != nil {
					t.Errorf("expected max price dropped, got %v", *f.MaxPrice)
				}
			},
		},
		{
			name: "negative values are dropped",
			raw:  map[string]string{"min_bedrooms": "-2", "min_rating": "-1.5"},
			want: func(t *testing.T, f Filter) {
				if f.MinBedrooms != nil {
					t.Errorf("expected negative bedrooms dropped, got %v", *f.MinBedrooms)
				}
				if f.MinRating != nil {
					t.Errorf("expected negative rating dropped, got %v", *f.MinRating)
				}
			},
		},
		{
			name: "booleans only accept literal true",
			raw:  map[string]string{"superhost_only": "True", "instant_bookable": "true"},
			want: func(t *testing.T, f Filter) {
				if f.SuperhostOnly {
					t.Error("expected superhost_only dropped for non-literal true")
				}
				if !f.InstantBookable {
					t.Error("expected instant_bookable set")
				}
			},
		},
		{
			name: "unknown fields are ignored",
			raw:  map[string]string{"wifi_speed": "fast", "min_bathrooms": "2"},
			want: func(t *testing.T, f Filter) {
				if f.MinBathrooms == nil || *f.MinBathrooms != 2 {
					t.Errorf("expected min bathrooms 2, got %v", f.MinBathrooms)
				}
			},
		},
		{
			name: "market aliases location",
			raw:  map[string]string{"market": "Porto"},
			want: func(t *testing.T, f Filter) {
				if f.Location != "Porto" {
					t.Errorf("expected location Porto, got %q", f.Location)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want(t, Compile(tt.raw))
		})
	}
}

func TestCompileIDsOverrideIgnoresOtherFields(t *testing.T) {
	canonical := uuid.New()
	raw := map[string]string{
		"ids":          canonical.String() + ",12345",
		"min_price":    "100",
		"max_price":    "10",
		"min_bedrooms": "4",
	}

	f := Compile(raw)

	if f.IDs == nil {
		t.Fatal("expected IDs predicate")
	}
	if len(f.IDs.ListingIDs) != 1 || f.IDs.ListingIDs[0] != canonical {
		t.Errorf("expected canonical id %s, got %v", canonical, f.IDs.ListingIDs)
	}
	if len(f.IDs.LegacyIDs) != 1 || f.IDs.LegacyIDs[0] != 12345 {
		t.Errorf("expected legacy id 12345, got %v", f.IDs.LegacyIDs)
	}
	if f.MinPrice != nil || f.MaxPrice != nil || f.MinBedrooms != nil {
		t.Errorf("expected contradictory filter fields ignored under ids override: %+v", f)
	}

	conds, args := f.Conditions(1)
	if len(conds) != 1 {
		t.Fatalf("expected a single OR'd identity condition, got %v", conds)
	}
	if len(args) != 2 {
		t.Errorf("expected two identity arg lists, got %d", len(args))
	}
}

func TestCompileIDsWithNoValidEntries(t *testing.T) {
	f := Compile(map[string]string{"ids": "not-a-uuid, also bad", "min_bedrooms": "2"})
	if f.IDs != nil {
		t.Errorf("expected no identity predicate for unparseable ids, got %+v", f.IDs)
	}
	if f.MinBedrooms == nil || *f.MinBedrooms != 2 {
		t.Error("expected other fields to apply when ids are all invalid")
	}
}

func TestConditionsPlaceholderNumbering(t *testing.T) {
	minPrice := 50.0
	maxPrice := 200.0
	f := Filter{
		Location: "porto",
		MinPrice: &minPrice,
		MaxPrice: &maxPrice,
	}

	conds, args := f.Conditions(3)
	if len(conds) != 2 {
		t.Fatalf("expected location and price range conditions, got %v", conds)
	}
	if conds[0] != "(neighbourhood ILIKE $3 OR market ILIKE $4 OR country ILIKE $5)" {
		t.Errorf("unexpected location condition: %s", conds[0])
	}
	if conds[1] != "price BETWEEN $6 AND $7" {
		t.Errorf("unexpected range condition: %s", conds[1])
	}
	if len(args) != 5 {
		t.Errorf("expected 5 args, got %d", len(args))
	}
}

func TestConditionsRangeBounds(t *testing.T) {
	minPrice := 50.0
	f := Filter{MinPrice: &minPrice}
	conds, args := f.Conditions(1)
	if len(conds) != 1 || conds[0] != "price >= $1" {
		t.Errorf("expected lower-bound-only condition, got %v", conds)
	}
	if len(args) != 1 {
		t.Errorf("expected 1 arg, got %d", len(args))
	}
}
