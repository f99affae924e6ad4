package vector

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/copilot/internal/embedding"
)

func TestFuse(t *testing.T) {
	lex := map[string]float64{"d1": 1.0, "d2": 0.5}
	sem := map[string]float64{"d1": 0.5, "d2": 1.0, "d3": 0.2}
	results := Fuse(lex, sem, 0.5, 0.5)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].ID != "d1" || results[1].ID != "d2" {
		t.Errorf("equal scores should tie-break by id: %+v", results)
	}
	if math.Abs(results[0].Score-0.75) > 1e-9 || results[2].LexicalScore != 0 {
		t.Errorf("unexpected scores: %+v", results)
	}
}

func TestNormalizeLexicalScores(t *testing.T) {
	// distances for raw scores 4, 2 and 0
	m := NormalizeLexicalScores([]QueryResult{
		{ID: "a", Distance: 1.0 / 5},
		{ID: "b", Distance: 1.0 / 3},
		{ID: "c", Distance: 1},
	})
	if math.Abs(m["a"]-1) > 1e-9 || math.Abs(m["b"]-0.5) > 1e-9 || m["c"] != 0 {
		t.Errorf("unexpected normalized scores: %v", m)
	}
	if len(NormalizeLexicalScores(nil)) != 0 {
		t.Error("expected empty map")
	}
}

func TestHybridService_queryFusesBothRankings(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewService(ServiceOptions{Type: "hybrid", Path: dir, Embedder: embedding.NewHashEmbedder(32)})
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()
	ctx := context.Background()

	coll, err := svc.CreateCollection(ctx, "technologies")
	if err != nil {
		t.Fatal(err)
	}
	addTestDocs(t, coll)
	n, err := coll.Count(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v", n, err)
	}

	res, err := coll.Query(ctx, "methane leak detection drones", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res))
	}
	if res[0].Distance > res[1].Distance {
		t.Error("results should be ordered by ascending distance")
	}
	if res[0].Metadata["tech_id"] == "" || res[0].Document == "" {
		t.Errorf("results should carry document and metadata: %+v", res[0])
	}

	if _, err := svc.CreateCollection(ctx, "technologies"); !errors.Is(err, ErrCollectionExists) {
		t.Errorf("expected ErrCollectionExists, got %v", err)
	}
	if err := svc.DeleteCollection(ctx, "technologies"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetCollection(ctx, "technologies"); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("expected ErrCollectionNotFound, got %v", err)
	}
	if err := svc.DeleteCollection(ctx, "technologies"); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("deleting twice should report not found, got %v", err)
	}
}

func TestHybridService_missingLexicalHalfIsNotFound(t *testing.T) {
	dir := t.TempDir()
	emb := embedding.NewHashEmbedder(16)
	sem := NewLocalService(dir, emb, nil)
	lex := NewBleveService(dir, nil)
	svc := NewHybridService(sem, lex, 0, 0, nil)
	defer svc.Close()
	ctx := context.Background()

	if _, err := sem.CreateCollection(ctx, "technologies"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetCollection(ctx, "technologies"); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("expected ErrCollectionNotFound, got %v", err)
	}
	if svc.lexicalWeight != DefaultLexicalWeight || svc.semanticWeight != DefaultSemanticWeight {
		t.Errorf("default weights not applied: %v %v", svc.lexicalWeight, svc.semanticWeight)
	}
}
