package search

import (
	"context"
	"sort"

	"rental-agent/config"
	"rental-agent/web/types"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Semantic/lexical split of the requested limit, in tenths. Both shares
// round up so small limits still query both sources.
const (
	semanticTenths = 7
	lexicalTenths  = 3
)

// Source is one retrieval backend feeding the fusion step.
type Source interface {
	Search(ctx context.Context, queryText string, filter Filter, limit int) ([]types.SearchResult, error)
}

// Hybrid runs the semantic and lexical sources concurrently and fuses their
// results into one ranked, deduplicated list.
type Hybrid struct {
	cfg      *config.Config
	semantic Source
	lexical  Source
	logger   *zap.Logger
}

func NewHybrid(cfg *config.Config, semantic, lexical Source, logger *zap.Logger) *Hybrid {
	return &Hybrid{
		cfg:      cfg,
		semantic: semantic,
		lexical:  lexical,
		logger:   logger,
	}
}

// Search returns at most limit results ordered by score descending. Fusion
// rules: semantic hits below the configured score floor are discarded as
// noise; dedup by listing ID with the surviving semantic hit winning;
// lexical-only hits get the fixed fallback score, which sits strictly below
// the floor so semantic matches always outrank them; ties keep source order
// (semantic before lexical). Either source failing fails the whole call -
// there is no partial-result path.
func (h *Hybrid) Search(ctx context.Context, queryText string, filter Filter, limit int) ([]types.SearchResult, error) {
	if limit <= 0 {
		return nil, nil
	}

	semanticLimit := ceilShare(limit, semanticTenths)
	lexicalLimit := ceilShare(limit, lexicalTenths)

	var semanticResults, lexicalResults []types.SearchResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		results, err := h.semantic.Search(gctx, queryText, filter, semanticLimit)
		if err != nil {
			return err
		}
		semanticResults = results
		return nil
	})
	g.Go(func() error {
		results, err := h.lexical.Search(gctx, queryText, filter, lexicalLimit)
		if err != nil {
			return err
		}
		lexicalResults = results
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := h.fuse(semanticResults, lexicalResults)
	if len(fused) > limit {
		fused = fused[:limit]
	}

	h.logger.Debug("Hybrid search fused",
		zap.String("query", queryText),
		zap.Int("semantic_hits", len(semanticResults)),
		zap.Int("lexical_hits", len(lexicalResults)),
		zap.Int("fused", len(fused)))
	return fused, nil
}

func (h *Hybrid) fuse(semanticResults, lexicalResults []types.SearchResult) []types.SearchResult {
	seen := make(map[string]bool, len(semanticResults))
	fused := make([]types.SearchResult, 0, len(semanticResults)+len(lexicalResults))

	floor := h.cfg.SemanticScoreFloor
	for _, res := range semanticResults {
		if res.Score < floor {
			// Below the meaningful-similarity cut; a lexical duplicate may
			// still surface on its own merits
			continue
		}
		id := res.Listing.ID.String()
		if seen[id] {
			continue
		}
		seen[id] = true
		fused = append(fused, res)
	}

	fallback := h.cfg.LexicalFallbackScore
	for _, res := range lexicalResults {
		id := res.Listing.ID.String()
		if seen[id] {
			// Duplicate of a semantic hit: discard, never merge
			continue
		}
		seen[id] = true
		res.Score = fallback
		fused = append(fused, res)
	}

	// Stable sort keeps semantic-before-lexical order on equal scores
	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})
	return fused
}

func ceilShare(limit, tenths int) int {
	n := (limit*tenths + 9) / 10
	if n < 1 {
		n = 1
	}
	return n
}
