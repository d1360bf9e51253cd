package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// IDSet is the identity-override predicate: when present it matches listings
// by identifier only and every other filter field is ignored. Canonical UUID
// identifiers and numeric legacy identifiers are matched with OR semantics so
// a mixed list of previously-surfaced IDs resolves in one query.
type IDSet struct {
	ListingIDs []uuid.UUID
	LegacyIDs  []int64
}

// Filter is the normalized predicate set produced by Compile. Nil pointer
// fields and empty strings mean "no constraint" - there are no sentinel
// values. The same filter renders identically for the lexical query and the
// vector index query.
type Filter struct {
	IDs             *IDSet
	PropertyType    string
	RoomType        string
	Country         string
	Location        string
	MinPrice        *float64
	MaxPrice        *float64
	MinBedrooms     *int
	MinBathrooms    *int
	MinAccommodates *int
	MinRating       *float64
	SuperhostOnly   bool
	InstantBookable bool
}

// Compile normalizes a raw parameter map into a Filter. It never fails:
// malformed values degrade to "no constraint" for that field and unknown
// keys are ignored. An "ids" key bypasses all other parameters.
func Compile(raw map[string]string) Filter {
	var f Filter

	if idsRaw, ok := raw["ids"]; ok && strings.TrimSpace(idsRaw) != "" {
		if ids := compileIDSet(idsRaw); ids != nil {
			f.IDs = ids
			return f
		}
	}

	f.PropertyType = strings.TrimSpace(raw["property_type"])
	f.RoomType = strings.TrimSpace(raw["room_type"])
	f.Country = strings.TrimSpace(raw["country"])
	f.Location = strings.TrimSpace(raw["location"])
	if f.Location == "" {
		f.Location = strings.TrimSpace(raw["market"])
	}

	f.MinPrice = parseNonNegativeFloat(raw["min_price"])
	f.MaxPrice = parseNonNegativeFloat(raw["max_price"])
	f.MinBedrooms = parseNonNegativeInt(raw["min_bedrooms"])
	f.MinBathrooms = parseNonNegativeInt(raw["min_bathrooms"])
	f.MinAccommodates = parseNonNegativeInt(raw["min_accommodates"])
	f.MinRating = parseNonNegativeFloat(raw["min_rating"])

	// Booleans only accept the literal string "true"
	f.SuperhostOnly = raw["superhost_only"] == "true"
	f.InstantBookable = raw["instant_bookable"] == "true"

	return f
}

func compileIDSet(raw string) *IDSet {
	set := &IDSet{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if legacy, err := strconv.ParseInt(part, 10, 64); err == nil {
			set.LegacyIDs = append(set.LegacyIDs, legacy)
			continue
		}
		if id, err := uuid.Parse(part); err == nil {
			set.ListingIDs = append(set.ListingIDs, id)
		}
	}
	if len(set.ListingIDs) == 0 && len(set.LegacyIDs) == 0 {
		return nil
	}
	return set
}

func parseNonNegativeInt(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

func parseNonNegativeFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

// IsZero reports whether the filter carries no constraints at all.
func (f Filter) IsZero() bool {
	return f.IDs == nil &&
		f.PropertyType == "" && f.RoomType == "" && f.Country == "" && f.Location == "" &&
		f.MinPrice == nil && f.MaxPrice == nil &&
		f.MinBedrooms == nil && f.MinBathrooms == nil && f.MinAccommodates == nil &&
		f.MinRating == nil && !f.SuperhostOnly && !f.InstantBookable
}

// Conditions renders the filter as SQL predicates with positional
// placeholders starting at argIndex. The lexical store and the pgvector
// query share this rendering so both sides see the same constraints.
func (f Filter) Conditions(argIndex int) ([]string, []any) {
	var conds []string
	var args []any

	next := func() int {
		n := argIndex
		argIndex++
		return n
	}

	if f.IDs != nil {
		var idConds []string
		if len(f.IDs.ListingIDs) > 0 {
			idStrs := make([]string, 0, len(f.IDs.ListingIDs))
			for _, id := range f.IDs.ListingIDs {
				idStrs = append(idStrs, id.String())
			}
			idConds = append(idConds, fmt.Sprintf("id = ANY($%d::uuid[])", next()))
			args = append(args, pq.Array(idStrs))
		}
		if len(f.IDs.LegacyIDs) > 0 {
			idConds = append(idConds, fmt.Sprintf("legacy_id = ANY($%d::bigint[])", next()))
			args = append(args, pq.Array(f.IDs.LegacyIDs))
		}
		conds = append(conds, "("+strings.Join(idConds, " OR ")+")")
		return conds, args
	}

	if f.PropertyType != "" {
		conds = append(conds, fmt.Sprintf("property_type = $%d", next()))
		args = append(args, f.PropertyType)
	}
	if f.RoomType != "" {
		conds = append(conds, fmt.Sprintf("room_type = $%d", next()))
		args = append(args, f.RoomType)
	}
	if f.Country != "" {
		conds = append(conds, fmt.Sprintf("country ILIKE $%d", next()))
		args = append(args, f.Country)
	}
	if f.Location != "" {
		// Partial match across location-ish columns, OR semantics
		a, b, c := next(), next(), next()
		conds = append(conds, fmt.Sprintf("(neighbourhood ILIKE $%d OR market ILIKE $%d OR country ILIKE $%d)", a, b, c))
		pattern := "%" + f.Location + "%"
		args = append(args, pattern, pattern, pattern)
	}
	if f.MinPrice != nil && f.MaxPrice != nil {
		a, b := next(), next()
		conds = append(conds, fmt.Sprintf("price BETWEEN $%d AND $%d", a, b))
		args = append(args, *f.MinPrice, *f.MaxPrice)
	} else if f.MinPrice != nil {
		conds = append(conds, fmt.Sprintf("price >= $%d", next()))
		args = append(args, *f.MinPrice)
	} else if f.MaxPrice != nil {
		conds = append(conds, fmt.Sprintf("price <= $%d", next()))
		args = append(args, *f.MaxPrice)
	}
	if f.MinBedrooms != nil {
		conds = append(conds, fmt.Sprintf("bedrooms >= $%d", next()))
		args = append(args, *f.MinBedrooms)
	}
	if f.MinBathrooms != nil {
		conds = append(conds, fmt.Sprintf("bathrooms >= $%d", next()))
		args = append(args, *f.MinBathrooms)
	}
	if f.MinAccommodates != nil {
		conds = append(conds, fmt.Sprintf("accommodates >= $%d", next()))
		args = append(args, *f.MinAccommodates)
	}
	if f.MinRating != nil {
		conds = append(conds, fmt.Sprintf("review_score >= $%d", next()))
		args = append(args, *f.MinRating)
	}
	if f.SuperhostOnly {
		conds = append(conds, "host_is_superhost = TRUE")
	}
	if f.InstantBookable {
		conds = append(conds, "instant_bookable = TRUE")
	}

	return conds, args
}
