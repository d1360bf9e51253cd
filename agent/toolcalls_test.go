package agent

import (
	"testing"
)

func TestParseSearchArguments(t *testing.T) {
	raw := `{
		"query": "cozy loft",
		"location": "Porto",
		"min_price": 50,
		"max_price": 120.5,
		"min_bedrooms": 2,
		"superhost_only": true,
		"limit": 5,
		"unexpected": "ignored"
	}`

	parsed, err := ParseToolArguments(ToolSearchListings, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	args, ok := parsed.(SearchArguments)
	if !ok {
		t.Fatalf("expected SearchArguments, got %T", parsed)
	}

	if args.Query != "cozy loft" {
		t.Errorf("query = %q", args.Query)
	}
	if args.Limit != 5 {
		t.Errorf("limit = %d", args.Limit)
	}
	wantFilters := map[string]string{
		"location":       "Porto",
		"min_price":      "50",
		"max_price":      "120.5",
		"min_bedrooms":   "2",
		"superhost_only": "true",
	}
	for key, want := range wantFilters {
		if got := args.Filters[key]; got != want {
			t.Errorf("filter %s = %q, want %q", key, got, want)
		}
	}
	if _, ok := args.Filters["unexpected"]; ok {
		t.Error("unexpected key must not be forwarded as a filter")
	}
}

func TestParseSearchArgumentsMalformed(t *testing.T) {
	raw := `{"query": "cozy loft"`

	parsed, err := ParseToolArguments(ToolSearchListings, raw)
	if err == nil {
		t.Fatal("expected a parse error")
	}
	args, ok := parsed.(RawArguments)
	if !ok {
		t.Fatalf("expected RawArguments fallback, got %T", parsed)
	}
	if args.Raw != raw {
		t.Errorf("raw payload not preserved: %q", args.Raw)
	}
}

func TestParseDetailsArguments(t *testing.T) {
	raw := `{"listing_ids": ["4f9c0b1e-0000-0000-0000-000000000000", 12345]}`

	parsed, err := ParseToolArguments(ToolGetListingDetails, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	args, ok := parsed.(DetailsArguments)
	if !ok {
		t.Fatalf("expected DetailsArguments, got %T", parsed)
	}
	if len(args.ListingIDs) != 2 {
		t.Fatalf("expected 2 IDs, got %v", args.ListingIDs)
	}
	if args.ListingIDs[1] != "12345" {
		t.Errorf("numeric ID not stringified: %q", args.ListingIDs[1])
	}
}

func TestParseUnknownTool(t *testing.T) {
	parsed, err := ParseToolArguments("delete_everything", `{}`)
	if err == nil {
		t.Fatal("expected an error for an unknown tool")
	}
	if _, ok := parsed.(RawArguments); !ok {
		t.Fatalf("expected RawArguments, got %T", parsed)
	}
}

func TestStringifyArgument(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "Porto", "Porto"},
		{"whole number", float64(3), "3"},
		{"fractional number", 2.5, "2.5"},
		{"bool", true, "true"},
		{"unsupported", []any{"x"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stringifyArgument(tt.in); got != tt.want {
				t.Errorf("stringifyArgument(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
