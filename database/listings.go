package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"rental-agent/search"
	"rental-agent/web/types"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

const listingColumns = `id, legacy_id, name, description, property_type, room_type,
        neighbourhood, market, country, price, bedrooms, bathrooms, accommodates,
        review_score, host_is_superhost, instant_bookable, amenities`

func scanListing(row interface{ Scan(...any) error }, l *types.Listing, extra ...any) error {
	// legacy_id is nullable; listings created natively have no legacy identity
	var legacyID sql.NullInt64
	dest := []any{
		&l.ID, &legacyID, &l.Name, &l.Description, &l.PropertyType, &l.RoomType,
		&l.Neighbourhood, &l.Market, &l.Country, &l.Price, &l.Bedrooms, &l.Bathrooms,
		&l.Accommodates, &l.ReviewScore, &l.HostIsSuperhost, &l.InstantBookable,
		pq.Array(&l.Amenities),
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	l.LegacyID = legacyID.Int64
	return nil
}

// FindListingsLexical runs a keyword match across the text columns combined
// with the compiled filter predicates. Results are ordered by review score so
// truncation keeps the strongest listings; relevance scoring happens at the
// fusion layer.
func (s *PostgresStore) FindListingsLexical(ctx context.Context, queryText string, filter search.Filter, limit int) ([]types.Listing, error) {
	if limit <= 0 {
		return nil, nil
	}

	var conds []string
	var args []any
	argIndex := 1

	terms := keywordTerms(queryText)
	if len(terms) > 0 {
		var termConds []string
		for _, term := range terms {
			termConds = append(termConds, fmt.Sprintf(
				"(name ILIKE $%d OR description ILIKE $%d OR neighborhood_overview ILIKE $%d)",
				argIndex, argIndex+1, argIndex+2))
			pattern := "%" + term + "%"
			args = append(args, pattern, pattern, pattern)
			argIndex += 3
		}
		conds = append(conds, "("+strings.Join(termConds, " OR ")+")")
	}

	filterConds, filterArgs := filter.Conditions(argIndex)
	conds = append(conds, filterConds...)
	args = append(args, filterArgs...)
	argIndex += len(filterArgs)

	query := fmt.Sprintf("SELECT %s FROM listings", listingColumns)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY review_score DESC, id LIMIT $%d", argIndex)
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lexical listing query failed: %w", err)
	}
	defer rows.Close()

	var listings []types.Listing
	for rows.Next() {
		var l types.Listing
		if err := scanListing(rows, &l); err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// NearestListings runs a cosine nearest-neighbor query against the listing
// embeddings, constrained by the same compiled filter the lexical path uses.
func (s *PostgresStore) NearestListings(ctx context.Context, embedding []float32, filter search.Filter, limit int) ([]search.ScoredListing, error) {
	if limit <= 0 {
		return nil, nil
	}

	args := []any{pgvector.NewVector(embedding)}
	argIndex := 2

	conds := []string{"embedding IS NOT NULL"}
	filterConds, filterArgs := filter.Conditions(argIndex)
	conds = append(conds, filterConds...)
	args = append(args, filterArgs...)
	argIndex += len(filterArgs)

	query := fmt.Sprintf(
		`SELECT %s, 1 - (embedding <=> $1) AS similarity
         FROM listings
         WHERE %s
         ORDER BY embedding <=> $1
         LIMIT $%d`,
		listingColumns, strings.Join(conds, " AND "), argIndex)
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector listing query failed: %w", err)
	}
	defer rows.Close()

	var results []search.ScoredListing
	for rows.Next() {
		var sl search.ScoredListing
		if err := scanListing(rows, &sl.Listing, &sl.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan scored listing row: %w", err)
		}
		results = append(results, sl)
	}
	return results, rows.Err()
}

// GetListingsByIDs resolves a mixed set of canonical and legacy identifiers.
func (s *PostgresStore) GetListingsByIDs(ctx context.Context, ids *search.IDSet) ([]types.Listing, error) {
	if ids == nil {
		return nil, nil
	}
	filter := search.Filter{IDs: ids}
	conds, args := filter.Conditions(1)
	if len(conds) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT %s FROM listings WHERE %s", listingColumns, strings.Join(conds, " AND "))
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing lookup by ids failed: %w", err)
	}
	defer rows.Close()

	var listings []types.Listing
	for rows.Next() {
		var l types.Listing
		if err := scanListing(rows, &l); err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// keywordTerms splits a free-text query into match terms, dropping words too
// short to be selective in an ILIKE scan.
func keywordTerms(queryText string) []string {
	var terms []string
	for _, word := range strings.Fields(queryText) {
		word = strings.Trim(word, `.,!?"'`)
		if len(word) < 3 {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}
