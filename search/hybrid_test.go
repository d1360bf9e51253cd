package search

import (
	"context"
	"errors"
	"testing"

	"rental-agent/config"
	"rental-agent/web/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type stubSource struct {
	results  []types.SearchResult
	err      error
	gotLimit int
}

func (s *stubSource) Search(_ context.Context, _ string, _ Filter, limit int) ([]types.SearchResult, error) {
	s.gotLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func semanticHit(id uuid.UUID, score float64) types.SearchResult {
	return types.SearchResult{
		Listing: types.Listing{ID: id},
		Score:   score,
		Source:  types.SourceSemantic,
	}
}

func lexicalHit(id uuid.UUID) types.SearchResult {
	return types.SearchResult{
		Listing: types.Listing{ID: id},
		Source:  types.SourceLexical,
	}
}

func testHybrid(semantic, lexical Source) *Hybrid {
	cfg := &config.Config{
		SemanticScoreFloor:   0.5,
		LexicalFallbackScore: 0.3,
	}
	return NewHybrid(cfg, semantic, lexical, zap.NewNop())
}

func TestHybridSearchDeduplicatesAcrossSources(t *testing.T) {
	shared := uuid.New()
	lexOnly := uuid.New()

	semantic := &stubSource{results: []types.SearchResult{semanticHit(shared, 0.9)}}
	lexical := &stubSource{results: []types.SearchResult{lexicalHit(shared), lexicalHit(lexOnly)}}

	results, err := testHybrid(semantic, lexical).Search(context.Background(), "beach house", Filter{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 fused results, got %d", len(results))
	}
	if results[0].Listing.ID != shared || results[0].Score != 0.9 {
		t.Errorf("expected semantic hit to win the duplicate, got %+v", results[0])
	}
	if results[1].Listing.ID != lexOnly || results[1].Score != 0.3 {
		t.Errorf("expected lexical-only hit with fallback score, got %+v", results[1])
	}
}

func TestHybridSearchSemanticOutranksLexicalOnly(t *testing.T) {
	semantic := &stubSource{results: []types.SearchResult{
		semanticHit(uuid.New(), 0.52),
		semanticHit(uuid.New(), 0.51),
	}}
	lexical := &stubSource{results: []types.SearchResult{
		lexicalHit(uuid.New()),
		lexicalHit(uuid.New()),
	}}

	results, err := testHybrid(semantic, lexical).Search(context.Background(), "loft", Filter{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for i, res := range results[:2] {
		if res.Source != types.SourceSemantic {
			t.Errorf("result %d: expected semantic hit first, got %s", i, res.Source)
		}
	}
	for i, res := range results[2:] {
		if res.Source != types.SourceLexical {
			t.Errorf("result %d: expected lexical hit last, got %s", i+2, res.Source)
		}
	}
}

func TestHybridSearchTruncatesToLimit(t *testing.T) {
	var semanticResults []types.SearchResult
	for i := 0; i < 7; i++ {
		semanticResults = append(semanticResults, semanticHit(uuid.New(), 0.9-float64(i)*0.01))
	}
	var lexicalResults []types.SearchResult
	for i := 0; i < 3; i++ {
		lexicalResults = append(lexicalResults, lexicalHit(uuid.New()))
	}

	semantic := &stubSource{results: semanticResults}
	lexical := &stubSource{results: lexicalResults}

	results, err := testHybrid(semantic, lexical).Search(context.Background(), "villa", Filter{}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 5 {
		t.Errorf("expected limit-truncated results, got %d", len(results))
	}
}

func TestHybridSearchShareSplit(t *testing.T) {
	tests := []struct {
		limit        int
		wantSemantic int
		wantLexical  int
	}{
		{10, 7, 3},
		{5, 4, 2},
		{1, 1, 1},
	}

	for _, tt := range tests {
		semantic := &stubSource{}
		lexical := &stubSource{}
		if _, err := testHybrid(semantic, lexical).Search(context.Background(), "q", Filter{}, tt.limit); err != nil {
			t.Fatalf("limit %d: unexpected error: %v", tt.limit, err)
		}
		if semantic.gotLimit != tt.wantSemantic {
			t.Errorf("limit %d: semantic share = %d, want %d", tt.limit, semantic.gotLimit, tt.wantSemantic)
		}
		if lexical.gotLimit != tt.wantLexical {
			t.Errorf("limit %d: lexical share = %d, want %d", tt.limit, lexical.gotLimit, tt.wantLexical)
		}
	}
}

func TestHybridSearchDropsSemanticHitsBelowFloor(t *testing.T) {
	weak := uuid.New()
	strong := uuid.New()
	lexOnly := uuid.New()

	semantic := &stubSource{results: []types.SearchResult{
		semanticHit(strong, 0.8),
		semanticHit(weak, 0.1),
	}}
	lexical := &stubSource{results: []types.SearchResult{lexicalHit(lexOnly)}}

	results, err := testHybrid(semantic, lexical).Search(context.Background(), "houseboat", Filter{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected the below-floor semantic hit dropped, got %d results", len(results))
	}
	if results[0].Listing.ID != strong {
		t.Errorf("expected the strong semantic hit first, got %+v", results[0])
	}
	if results[1].Listing.ID != lexOnly || results[1].Source != types.SourceLexical {
		t.Errorf("expected the lexical-only hit second, got %+v", results[1])
	}
	for _, res := range results {
		if res.Source == types.SourceSemantic && res.Score < 0.5 {
			t.Errorf("semantic hit below floor survived fusion: %+v", res)
		}
	}
}

func TestHybridSearchWeakSemanticDuplicateYieldsLexicalHit(t *testing.T) {
	shared := uuid.New()

	semantic := &stubSource{results: []types.SearchResult{semanticHit(shared, 0.2)}}
	lexical := &stubSource{results: []types.SearchResult{lexicalHit(shared)}}

	results, err := testHybrid(semantic, lexical).Search(context.Background(), "cottage", Filter{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Source != types.SourceLexical || results[0].Score != 0.3 {
		t.Errorf("expected the lexical hit to stand in for the discarded semantic one, got %+v", results[0])
	}
}

func TestHybridSearchFailsWhenSourceFails(t *testing.T) {
	wantErr := errors.New("embedding host down")
	semantic := &stubSource{err: wantErr}
	lexical := &stubSource{results: []types.SearchResult{lexicalHit(uuid.New())}}

	results, err := testHybrid(semantic, lexical).Search(context.Background(), "cabin", Filter{}, 10)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected source failure to propagate, got %v", err)
	}
	if results != nil {
		t.Errorf("expected no partial results, got %d", len(results))
	}
}

func TestHybridSearchNonPositiveLimit(t *testing.T) {
	semantic := &stubSource{}
	lexical := &stubSource{}
	results, err := testHybrid(semantic, lexical).Search(context.Background(), "q", Filter{}, 0)
	if err != nil || results != nil {
		t.Errorf("expected nil, nil for zero limit, got %v, %v", results, err)
	}
}
