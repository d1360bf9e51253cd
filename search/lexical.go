package search

import (
	"context"

	"rental-agent/web/types"

	"go.uber.org/zap"
)

// ScoredListing is a listing paired with its vector similarity, returned by
// the nearest-neighbor store query.
type ScoredListing struct {
	Listing    types.Listing
	Similarity float64
}

// ListingFinder is the keyword-match side of the document store.
type ListingFinder interface {
	FindListingsLexical(ctx context.Context, queryText string, filter Filter, limit int) ([]types.Listing, error)
}

// Lexical issues keyword queries against the document store using compiled
// predicates. Hits carry no native score; the fusion layer assigns the
// fallback weight for lexical-only results.
type Lexical struct {
	store  ListingFinder
	logger *zap.Logger
}

func NewLexical(store ListingFinder, logger *zap.Logger) *Lexical {
	return &Lexical{store: store, logger: logger}
}

func (l *Lexical) Search(ctx context.Context, queryText string, filter Filter, limit int) ([]types.SearchResult, error) {
	listings, err := l.store.FindListingsLexical(ctx, queryText, filter, limit)
	if err != nil {
		return nil, err
	}

	results := make([]types.SearchResult, 0, len(listings))
	for _, listing := range listings {
		results = append(results, types.SearchResult{
			Listing: listing,
			Source:  types.SourceLexical,
		})
	}
	l.logger.Debug("Lexical search completed",
		zap.String("query", queryText),
		zap.Int("hits", len(results)))
	return results, nil
}
