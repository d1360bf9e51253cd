package search

import (
	"context"
	"fmt"

	apperrors "rental-agent/errors"
	"rental-agent/web/types"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// Embedder turns query text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, host string, text string) ([]float32, error)
}

// NeighborFinder is the nearest-neighbor side of the vector index.
type NeighborFinder interface {
	NearestListings(ctx context.Context, embedding []float32, filter Filter, limit int) ([]ScoredListing, error)
}

// Semantic embeds the query (with an LRU cache over repeated query text) and
// runs a nearest-neighbor lookup constrained by the compiled filter.
type Semantic struct {
	embedder      Embedder
	embeddingHost string
	store         NeighborFinder
	cache         *lru.Cache
	logger        *zap.Logger
}

func NewSemantic(embedder Embedder, embeddingHost string, store NeighborFinder, cacheSize int, logger *zap.Logger) (*Semantic, error) {
	if cacheSize <= 0 {
		cacheSize = 512
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Semantic{
		embedder:      embedder,
		embeddingHost: embeddingHost,
		store:         store,
		cache:         cache,
		logger:        logger,
	}, nil
}

func (s *Semantic) Search(ctx context.Context, queryText string, filter Filter, limit int) ([]types.SearchResult, error) {
	embedding, err := s.embedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrEmbedding, err)
	}

	scored, err := s.store.NearestListings(ctx, embedding, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrVectorSearch, err)
	}

	results := make([]types.SearchResult, 0, len(scored))
	for _, sl := range scored {
		results = append(results, types.SearchResult{
			Listing: sl.Listing,
			Score:   sl.Similarity,
			Source:  types.SourceSemantic,
		})
	}
	s.logger.Debug("Semantic search completed",
		zap.String("query", queryText),
		zap.Int("hits", len(results)))
	return results, nil
}

func (s *Semantic) embedQuery(ctx context.Context, queryText string) ([]float32, error) {
	if cached, ok := s.cache.Get(queryText); ok {
		if vec, ok := cached.([]float32); ok {
			return vec, nil
		}
	}
	vec, err := s.embedder.Embed(ctx, s.embeddingHost, queryText)
	if err != nil {
		return nil, err
	}
	s.cache.Add(queryText, vec)
	return vec, nil
}
