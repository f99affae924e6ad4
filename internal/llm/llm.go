// Package llm talks to the text-generation service.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// Options are the sampling settings passed with each prompt.
type Options struct {
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	// Ping reports whether the service is reachable.
	Ping(ctx context.Context) error
}

// OllamaGenerator is a Generator backed by an Ollama server.
type OllamaGenerator struct {
	client *api.Client
	model  string
	logger *zap.Logger
}

// NewOllamaGenerator creates a generator for model served at host.
func NewOllamaGenerator(host, model string, timeout time.Duration, logger *zap.Logger) (*OllamaGenerator, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OllamaGenerator{
		client: api.NewClient(u, &http.Client{Timeout: timeout}),
		model:  model,
		logger: logger,
	}, nil
}

// Model returns the configured model name.
func (g *OllamaGenerator) Model() string {
	return g.model
}

// Generate runs a non-streaming completion and returns the full response text.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": opts.Temperature,
			"num_predict": opts.MaxTokens,
			"top_p":       opts.TopP,
		},
	}
	start := time.Now()
	var b strings.Builder
	err := g.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		b.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	g.logger.Debug("generation finished",
		zap.String("model", g.model),
		zap.Int("response_chars", b.Len()),
		zap.Duration("took", time.Since(start)))
	return b.String(), nil
}

// Ping lists local models to check that the server answers.
func (g *OllamaGenerator) Ping(ctx context.Context) error {
	if _, err := g.client.List(ctx); err != nil {
		return fmt.Errorf("ollama list: %w", err)
	}
	return nil
}
