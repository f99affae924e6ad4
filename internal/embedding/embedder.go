// Package embedding turns catalog documents and challenge text into vectors.
package embedding

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Provider names accepted by New.
const (
	ProviderOllama = "ollama"
	ProviderHash   = "hash"
)

// Options configures New.
type Options struct {
	Provider    string
	Model       string
	Host        string
	Dimensions  int
	CacheSize   int
	Concurrency int
	Timeout     time.Duration
	Logger      *zap.Logger
}

// New builds the configured embedder wrapped in an LRU cache when CacheSize > 0.
func New(opts Options) (Embedder, error) {
	var (
		base Embedder
		err  error
	)
	switch opts.Provider {
	case ProviderOllama, "":
		var u *url.URL
		u, err = url.Parse(opts.Host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", opts.Host, err)
		}
		base = NewOllamaEmbedder(u, opts.Model, opts.Dimensions, opts.Concurrency, opts.Timeout)
	case ProviderHash:
		base = NewHashEmbedder(opts.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: ollama, hash)", opts.Provider)
	}
	if opts.Logger != nil {
		opts.Logger.Debug("embedder created", zap.String("provider", opts.Provider), zap.String("model", opts.Model), zap.Int("dimensions", base.Dimensions()))
	}
	if opts.CacheSize > 0 {
		return NewCachedEmbedder(base, opts.CacheSize), nil
	}
	return base, nil
}
