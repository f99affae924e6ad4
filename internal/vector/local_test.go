package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/copilot/internal/embedding"
)

var testDocs = []string{
	"Technology: Waste Heat Recovery\nDescription: captures exhaust heat",
	"Technology: Electric Drive Compressor\nDescription: replaces gas turbines",
	"Technology: Methane Leak Detection\nDescription: drone imaging",
}

func addTestDocs(t *testing.T, c Collection) {
	t.Helper()
	ids := []string{"tech_0", "tech_1", "tech_2"}
	metas := []map[string]string{{"tech_id": "0"}, {"tech_id": "1"}, {"tech_id": "2"}}
	if err := c.Add(context.Background(), ids, testDocs, metas); err != nil {
		t.Fatal(err)
	}
}

func TestLocalService_hashEmbedderRanksByVocabulary(t *testing.T) {
	ctx := context.Background()
	c, err := NewLocalService(t.TempDir(), embedding.NewHashEmbedder(384), nil).CreateCollection(ctx, "technologies")
	if err != nil {
		t.Fatal(err)
	}
	addTestDocs(t, c)

	tests := []struct {
		query string
		want  string
	}{
		{"waste heat recovery", "tech_0"},
		{"electric compressor", "tech_1"},
		{"methane leak drone", "tech_2"},
	}
	for _, tt := range tests {
		res, err := c.Query(ctx, tt.query, 3)
		if err != nil {
			t.Fatal(err)
		}
		if len(res) == 0 || res[0].ID != tt.want {
			t.Errorf("Query(%q) ranked %+v first, want %s", tt.query, res, tt.want)
		}
	}
}

func TestLocalService_lifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	emb := embedding.NewHashEmbedder(16)
	svc := NewLocalService(dir, emb, nil)

	if _, err := svc.GetCollection(ctx, "technologies"); !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}
	c, err := svc.CreateCollection(ctx, "technologies")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateCollection(ctx, "technologies"); !errors.Is(err, ErrCollectionExists) {
		t.Errorf("expected ErrCollectionExists, got %v", err)
	}
	addTestDocs(t, c)
	if n, _ := c.Count(ctx); n != 3 {
		t.Errorf("Count = %d", n)
	}

	res, err := c.Query(ctx, testDocs[1], 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 || res[0].ID != "tech_1" || res[0].Metadata["tech_id"] != "1" {
		t.Fatalf("unexpected results: %+v", res)
	}
	if res[0].Distance > 1e-5 || res[0].Distance > res[1].Distance {
		t.Errorf("expected ascending distances starting near 0: %+v", res)
	}

	// a fresh service sees the persisted collection
	svc2 := NewLocalService(dir, emb, nil)
	c2, err := svc2.GetCollection(ctx, "technologies")
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := c2.Count(ctx); n != 3 {
		t.Errorf("persisted Count = %d", n)
	}

	if err := svc2.DeleteCollection(ctx, "technologies"); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLocalService(dir, emb, nil).GetCollection(ctx, "technologies"); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("expected collection to be gone, got %v", err)
	}
	if err := svc2.DeleteCollection(ctx, "technologies"); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("second delete should report not found, got %v", err)
	}
}

func TestLocalService_inMemory(t *testing.T) {
	ctx := context.Background()
	svc := NewLocalService("", embedding.NewHashEmbedder(8), nil)
	c, err := svc.CreateCollection(ctx, "t")
	if err != nil {
		t.Fatal(err)
	}
	addTestDocs(t, c)
	got, err := svc.GetCollection(ctx, "t")
	if err != nil || got != c {
		t.Fatalf("GetCollection = %v, %v", got, err)
	}
	if err := c.Add(ctx, []string{"a"}, nil, nil); err == nil {
		t.Error("expected length mismatch error")
	}
}

func TestLocalService_dimensionChangeRejected(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, _ := NewLocalService(dir, embedding.NewHashEmbedder(8), nil).CreateCollection(ctx, "t")
	addTestDocs(t, c)
	if _, err := NewLocalService(dir, embedding.NewHashEmbedder(16), nil).GetCollection(ctx, "t"); err == nil || errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("expected dimension error, got %v", err)
	}
}
