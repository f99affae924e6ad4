package embedding

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d", c.Len())
	}
}

type countingEmbedder struct {
	*HashEmbedder
	calls atomic.Int32
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return c.HashEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(int32(len(texts)))
	return c.HashEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_onlyEmbedsMisses(t *testing.T) {
	base := &countingEmbedder{HashEmbedder: NewHashEmbedder(8)}
	c := NewCachedEmbedder(base, 10)
	ctx := context.Background()

	if _, err := c.Embed(ctx, "heat pump"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Embed(ctx, "heat pump"); err != nil {
		t.Fatal(err)
	}
	if base.calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", base.calls.Load())
	}

	out, err := c.EmbedBatch(ctx, []string{"heat pump", "flare", "compressor"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 || out[0] == nil || out[2] == nil {
		t.Fatalf("unexpected batch: %v", out)
	}
	if base.calls.Load() != 3 {
		t.Errorf("expected 3 calls after batch, got %d", base.calls.Load())
	}
	want, _ := base.HashEmbedder.Embed(ctx, "flare")
	if out[1][0] != want[0] {
		t.Error("batch result out of order")
	}
	if c.Dimensions() != 8 {
		t.Errorf("Dimensions = %d", c.Dimensions())
	}
}
