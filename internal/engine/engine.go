// Package engine wires retrieval, synthesis and the submission ledger into the
// operations exposed by the server and CLI.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hyperjump/copilot/internal/catalog"
	"github.com/hyperjump/copilot/internal/indexer"
	"github.com/hyperjump/copilot/internal/ledger"
	"github.com/hyperjump/copilot/internal/llm"
	"github.com/hyperjump/copilot/internal/models"
	"github.com/hyperjump/copilot/internal/retrieval"
	"github.com/hyperjump/copilot/internal/synth"
	"github.com/hyperjump/copilot/internal/vector"
	"go.uber.org/zap"
)

// ErrInvalidChallenge is returned when a challenge has no description.
var ErrInvalidChallenge = errors.New("challenge description is required")

// Version is reported by the service banner.
const Version = "2.0.0"

// Deps are the components an Engine orchestrates.
type Deps struct {
	Store       *catalog.Store
	Indexer     *indexer.Indexer
	Retriever   *retrieval.Retriever
	Synthesizer *synth.Synthesizer
	Ledger      *ledger.Ledger
	Generator   llm.Generator
	Service     vector.Service
}

// Paths locate the catalog and on-disk artifacts reported by status calls.
type Paths struct {
	Catalog     string
	Collection  string
	VectorStore string
	Database    string
}

// Engine runs the copilot operations.
type Engine struct {
	deps   Deps
	paths  Paths
	topK   int
	logger *zap.Logger
}

// New creates an engine. topK is how many candidates are retrieved per challenge.
func New(deps Deps, paths Paths, topK int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topK <= 0 {
		topK = 15
	}
	return &Engine{deps: deps, paths: paths, topK: topK, logger: logger}
}

// Ledger returns the submission ledger.
func (e *Engine) Ledger() *ledger.Ledger {
	return e.deps.Ledger
}

// EnsureIndexed loads the configured catalog, reusing the index when unchanged.
func (e *Engine) EnsureIndexed(ctx context.Context) (int, error) {
	return e.deps.Indexer.EnsureIndexed(ctx, e.paths.Catalog)
}

// Reindex rebuilds the index from the configured catalog.
func (e *Engine) Reindex(ctx context.Context, force bool) (int, error) {
	if force {
		return e.deps.Indexer.Rebuild(ctx, e.paths.Catalog)
	}
	return e.EnsureIndexed(ctx)
}

// GenerateSolutions retrieves candidates for the challenge, synthesizes solutions
// and records them as a pending submission.
func (e *Engine) GenerateSolutions(ctx context.Context, challenge models.ChallengeInput) (models.GenerationResult, error) {
	start := time.Now()
	if strings.TrimSpace(challenge.Description) == "" {
		return models.GenerationResult{}, ErrInvalidChallenge
	}
	candidates, err := e.deps.Retriever.Retrieve(ctx, challenge.Description, e.topK)
	if err != nil {
		return models.GenerationResult{}, err
	}
	e.logger.Info("technologies retrieved", zap.Int("count", len(candidates)))

	solutions, err := e.deps.Synthesizer.Synthesize(ctx, challenge, candidates)
	if err != nil {
		return models.GenerationResult{}, err
	}
	id, err := e.deps.Ledger.Create(ctx, challenge, solutions)
	if err != nil {
		return models.GenerationResult{}, err
	}
	result := models.GenerationResult{
		Solutions:            solutions,
		ProcessingTime:       time.Since(start).Seconds(),
		TechnologiesAnalyzed: len(candidates),
		SubmissionID:         id,
	}
	e.logger.Info("solutions generated",
		zap.Int("solutions", len(solutions)),
		zap.String("submission_id", id),
		zap.Float64("processing_time", result.ProcessingTime))
	return result, nil
}
