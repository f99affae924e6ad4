package engine

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/copilot/internal/catalog"
	"github.com/hyperjump/copilot/internal/catalog/catalogtest"
	"github.com/hyperjump/copilot/internal/embedding"
	"github.com/hyperjump/copilot/internal/indexer"
	"github.com/hyperjump/copilot/internal/ledger"
	"github.com/hyperjump/copilot/internal/llm"
	"github.com/hyperjump/copilot/internal/models"
	"github.com/hyperjump/copilot/internal/retrieval"
	"github.com/hyperjump/copilot/internal/synth"
	"github.com/hyperjump/copilot/internal/vector"
)

type scriptedGenerator struct {
	response string
	err      error
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	return g.response, g.err
}

func (g *scriptedGenerator) Ping(ctx context.Context) error { return g.err }

func newTestEngine(t *testing.T, gen *scriptedGenerator) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "technology_database.xlsx")
	vectorDir := filepath.Join(dir, "chroma_db")
	store := catalog.NewStore()
	svc := vector.NewLocalService(vectorDir, embedding.NewHashEmbedder(16), nil)
	deps := Deps{
		Store:       store,
		Indexer:     indexer.NewIndexer(store, svc, "technologies", filepath.Join(vectorDir, "database_metadata.json")),
		Retriever:   retrieval.NewRetriever(store, svc, "technologies", nil),
		Synthesizer: synth.New(gen, llm.Options{Temperature: 0.7}, 12, nil),
		Ledger:      ledger.New(),
		Generator:   gen,
		Service:     svc,
	}
	return New(deps, Paths{Catalog: catalogPath, Collection: "technologies", VectorStore: vectorDir}, 15, nil), catalogPath
}

func TestEngine_endToEnd(t *testing.T) {
	gen := &scriptedGenerator{response: `Here: {"solutions": [{"solution_id": 1, "title": "Combo",
		"technology_ids": ["0", "1"], "technology_roles": {"1": "Drives"},
		"description": "d", "how_it_works": "h", "benefits": ["b"], "integration_considerations": ["i"],
		"feasibility": "Medium", "timeline_estimate": "12 months", "estimated_cost_range": "Low"}]}`}
	e, catalogPath := newTestEngine(t, gen)
	ctx := context.Background()

	if _, err := e.GenerateSolutions(ctx, models.ChallengeInput{Description: "x"}); !errors.Is(err, catalog.ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded before indexing, got %v", err)
	}
	if st := e.DatabaseStatus(ctx); st.Loaded || !strings.Contains(st.Message, catalogPath) {
		t.Errorf("unexpected status before load: %+v", st)
	}

	catalogtest.WriteDefault(t, catalogPath)
	n, err := e.EnsureIndexed(ctx)
	if err != nil || n != 3 {
		t.Fatalf("EnsureIndexed = %d, %v", n, err)
	}

	res, err := e.GenerateSolutions(ctx, models.ChallengeInput{Description: "reduce methane leaks offshore"})
	if err != nil {
		t.Fatal(err)
	}
	if res.TechnologiesAnalyzed != 3 || len(res.Solutions) != 1 || res.SubmissionID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.ProcessingTime < 0 {
		t.Errorf("processing time = %f", res.ProcessingTime)
	}
	techs := res.Solutions[0].Technologies
	if len(techs) != 2 || techs[1].Reasoning != "Drives" || techs[0].Reasoning != synth.DefaultReasoning {
		t.Errorf("unexpected matches: %+v", techs)
	}
	sub, err := e.Ledger().Get(res.SubmissionID)
	if err != nil || sub.Status != models.StatusPending {
		t.Errorf("submission not pending: %+v %v", sub, err)
	}

	st := e.DatabaseStatus(ctx)
	if !st.Loaded || st.TechnologyCount != 3 || st.CollectionCount != 3 || st.DiskUsageBytes == 0 || st.LastUpdated == "Unknown" {
		t.Errorf("unexpected status: %+v", st)
	}
	if b := e.Banner(); !b.DatabaseLoaded || b.Technologies != 3 || b.Version != Version {
		t.Errorf("unexpected banner: %+v", b)
	}
}

func TestEngine_unresolvableSolutionFails(t *testing.T) {
	gen := &scriptedGenerator{response: `{"solutions": [{"solution_id": 1, "title": "Ghost", "technology_ids": ["5"], "technology_roles": {}}]}`}
	e, catalogPath := newTestEngine(t, gen)
	catalogtest.WriteDefault(t, catalogPath)
	ctx := context.Background()
	if _, err := e.EnsureIndexed(ctx); err != nil {
		t.Fatal(err)
	}
	_, err := e.GenerateSolutions(ctx, models.ChallengeInput{Description: "anything"})
	if !errors.Is(err, synth.ErrGenerationFailed) || synth.CodeOf(err) != synth.CodeNoSolutionsProduced {
		t.Fatalf("expected NoSolutionsProduced, got %v", err)
	}
	if e.Ledger().ListAll().Total != 0 {
		t.Error("failed generation must not create a submission")
	}
}

func TestEngine_invalidChallenge(t *testing.T) {
	e, _ := newTestEngine(t, &scriptedGenerator{})
	if _, err := e.GenerateSolutions(context.Background(), models.ChallengeInput{Description: "  "}); !errors.Is(err, ErrInvalidChallenge) {
		t.Errorf("expected ErrInvalidChallenge, got %v", err)
	}
}

func TestEngine_health(t *testing.T) {
	e, _ := newTestEngine(t, &scriptedGenerator{})
	if h := e.Health(context.Background()); h.Ollama != "connected" || h.Status != "healthy" || h.DatabaseLoaded {
		t.Errorf("unexpected health: %+v", h)
	}
	e, _ = newTestEngine(t, &scriptedGenerator{err: errors.New("refused")})
	if h := e.Health(context.Background()); h.Ollama != "disconnected" || h.Status != "healthy" {
		t.Errorf("unexpected health: %+v", h)
	}
}

func TestEngine_reindexMissingCatalog(t *testing.T) {
	e, _ := newTestEngine(t, &scriptedGenerator{})
	if _, err := e.Reindex(context.Background(), true); !errors.Is(err, catalog.ErrCatalogUnavailable) {
		t.Errorf("expected ErrCatalogUnavailable, got %v", err)
	}
}
