package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hyperjump/copilot/pkg/utils"
	"github.com/ollama/ollama/api"
	"golang.org/x/sync/errgroup"
)

// OllamaEmbedder calls the Ollama embeddings endpoint.
type OllamaEmbedder struct {
	client      *api.Client
	model       string
	dimensions  int
	concurrency int
}

// NewOllamaEmbedder creates an embedder for model served at host.
// concurrency bounds parallel requests in EmbedBatch.
func NewOllamaEmbedder(host *url.URL, model string, dimensions, concurrency int, timeout time.Duration) *OllamaEmbedder {
	if concurrency <= 0 {
		concurrency = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OllamaEmbedder{
		client:      api.NewClient(host, &http.Client{Timeout: timeout}),
		model:       model,
		dimensions:  dimensions,
		concurrency: concurrency,
	}
}

// Embed returns the normalized embedding of text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding for model %s", e.model)
	}
	if e.dimensions > 0 && len(resp.Embedding) != e.dimensions {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(resp.Embedding), e.dimensions)
	}
	emb := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		emb[i] = float32(v)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch embeds texts in parallel, preserving order. The first error cancels the rest.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			emb, err := e.Embed(gctx, text)
			if err != nil {
				return err
			}
			out[i] = emb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client holds no dedicated resources.
func (e *OllamaEmbedder) Close() error {
	return nil
}
