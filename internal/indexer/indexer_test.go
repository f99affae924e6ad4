package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/copilot/internal/catalog"
	"github.com/hyperjump/copilot/internal/catalog/catalogtest"
	"github.com/hyperjump/copilot/internal/embedding"
	"github.com/hyperjump/copilot/internal/vector"
)

// spyService counts documents pushed through it and can fail collection creation.
type spyService struct {
	vector.Service
	added      int
	failCreate bool
}

func (s *spyService) CreateCollection(ctx context.Context, name string) (vector.Collection, error) {
	if s.failCreate {
		return nil, errors.New("search service unavailable")
	}
	c, err := s.Service.CreateCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	return &spyCollection{Collection: c, svc: s}, nil
}

type spyCollection struct {
	vector.Collection
	svc *spyService
}

func (c *spyCollection) Add(ctx context.Context, ids []string, documents []string, metadatas []map[string]string) error {
	c.svc.added += len(ids)
	return c.Collection.Add(ctx, ids, documents, metadatas)
}

type fixture struct {
	dir      string
	catalog  string
	metadata string
	store    *catalog.Store
	spy      *spyService
	idx      *Indexer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:      dir,
		catalog:  filepath.Join(dir, "technology_database.xlsx"),
		metadata: filepath.Join(dir, "chroma_db", "database_metadata.json"),
		store:    catalog.NewStore(),
	}
	f.spy = &spyService{Service: vector.NewLocalService(filepath.Join(dir, "chroma_db"), embedding.NewHashEmbedder(16), nil)}
	clock := func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	f.idx = NewIndexer(f.store, f.spy, "technologies", f.metadata, WithClock(clock))
	return f
}

func TestEnsureIndexed_buildsThenReuses(t *testing.T) {
	f := newFixture(t)
	catalogtest.WriteDefault(t, f.catalog)
	ctx := context.Background()

	n, err := f.idx.EnsureIndexed(ctx, f.catalog)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || f.spy.added != 3 {
		t.Fatalf("first run: n=%d added=%d", n, f.spy.added)
	}
	snap, err := f.store.Current()
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range snap.Records {
		if r.ID != i {
			t.Errorf("record %d has id %d", i, r.ID)
		}
	}
	meta, _ := catalog.LoadMetadata(f.metadata)
	if meta.TechnologyCount != 3 || meta.FileHash == "" || meta.LastUpdated.Year() != 2026 {
		t.Errorf("unexpected metadata: %+v", meta)
	}

	for i := 0; i < 2; i++ {
		n, err = f.idx.EnsureIndexed(ctx, f.catalog)
		if err != nil || n != 3 {
			t.Fatalf("repeat run: n=%d err=%v", n, err)
		}
	}
	if f.spy.added != 3 {
		t.Errorf("unchanged catalog should not be re-pushed, added=%d", f.spy.added)
	}
}

func TestEnsureIndexed_rebuildsOnChange(t *testing.T) {
	f := newFixture(t)
	catalogtest.WriteDefault(t, f.catalog)
	ctx := context.Background()
	if _, err := f.idx.EnsureIndexed(ctx, f.catalog); err != nil {
		t.Fatal(err)
	}
	catalogtest.WriteWorkbook(t, f.catalog, catalogtest.Header,
		catalogtest.Row("Only One", "P", "D", "C", "S", "5", "", "yes"),
	)
	n, err := f.idx.EnsureIndexed(ctx, f.catalog)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || f.spy.added != 4 {
		t.Errorf("n=%d added=%d", n, f.spy.added)
	}
	coll, err := f.spy.GetCollection(ctx, "technologies")
	if err != nil {
		t.Fatal(err)
	}
	if c, _ := coll.Count(ctx); c != 1 {
		t.Errorf("old documents survived rebuild: count=%d", c)
	}
}

func TestEnsureIndexed_rebuildsWhenCollectionMissing(t *testing.T) {
	f := newFixture(t)
	catalogtest.WriteDefault(t, f.catalog)
	ctx := context.Background()
	if _, err := f.idx.EnsureIndexed(ctx, f.catalog); err != nil {
		t.Fatal(err)
	}
	if err := f.spy.DeleteCollection(ctx, "technologies"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.idx.EnsureIndexed(ctx, f.catalog); err != nil {
		t.Fatal(err)
	}
	if f.spy.added != 6 {
		t.Errorf("expected rebuild, added=%d", f.spy.added)
	}
}

func TestEnsureIndexed_corruptMetadataRebuilds(t *testing.T) {
	f := newFixture(t)
	catalogtest.WriteDefault(t, f.catalog)
	_ = os.MkdirAll(filepath.Dir(f.metadata), 0755)
	_ = os.WriteFile(f.metadata, []byte("garbage"), 0644)
	n, err := f.idx.EnsureIndexed(context.Background(), f.catalog)
	if err != nil || n != 3 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}

func TestEnsureIndexed_missingCatalog(t *testing.T) {
	f := newFixture(t)
	_, err := f.idx.EnsureIndexed(context.Background(), f.catalog)
	if !errors.Is(err, catalog.ErrCatalogUnavailable) {
		t.Errorf("expected ErrCatalogUnavailable, got %v", err)
	}
	if f.store.Loaded() {
		t.Error("nothing should be published")
	}
}

func TestEnsureIndexed_serviceFailureKeepsMetadata(t *testing.T) {
	f := newFixture(t)
	catalogtest.WriteDefault(t, f.catalog)
	ctx := context.Background()
	if _, err := f.idx.EnsureIndexed(ctx, f.catalog); err != nil {
		t.Fatal(err)
	}
	before, _ := catalog.LoadMetadata(f.metadata)

	catalogtest.WriteWorkbook(t, f.catalog, catalogtest.Header,
		catalogtest.Row("Changed", "P", "D", "C", "S", "5", "", "yes"),
	)
	f.spy.failCreate = true
	_, err := f.idx.EnsureIndexed(ctx, f.catalog)
	if !errors.Is(err, ErrIndexingFailed) {
		t.Fatalf("expected ErrIndexingFailed, got %v", err)
	}
	after, _ := catalog.LoadMetadata(f.metadata)
	if after.FileHash != before.FileHash {
		t.Error("metadata must be untouched after a failed rebuild")
	}
	if f.store.Loaded() {
		t.Error("stale catalog must not remain active after invalidation")
	}

	f.spy.failCreate = false
	n, err := f.idx.EnsureIndexed(ctx, f.catalog)
	if err != nil || n != 1 {
		t.Fatalf("retry: n=%d err=%v", n, err)
	}
}

func TestRebuild_forcesPush(t *testing.T) {
	f := newFixture(t)
	catalogtest.WriteDefault(t, f.catalog)
	ctx := context.Background()
	_, _ = f.idx.EnsureIndexed(ctx, f.catalog)
	if _, err := f.idx.Rebuild(ctx, f.catalog); err != nil {
		t.Fatal(err)
	}
	if f.spy.added != 6 {
		t.Errorf("expected forced rebuild, added=%d", f.spy.added)
	}
}

func TestEnsureIndexed_metadataFromOtherCollectionForcesRebuild(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	catalogtest.WriteWorkbook(t, f.catalog, catalogtest.Header,
		catalogtest.Row("Old Alpha", "P", "D", "C", "S", "5", "", "yes"),
		catalogtest.Row("Old Gamma", "P", "D", "C", "S", "5", "", "yes"),
	)
	if _, err := f.idx.EnsureIndexed(ctx, f.catalog); err != nil {
		t.Fatal(err)
	}

	// Same sidecar, different collection: the offline embedder path.
	offline := NewIndexer(catalog.NewStore(), f.spy, "technologies_hash", f.metadata)
	catalogtest.WriteWorkbook(t, f.catalog, catalogtest.Header,
		catalogtest.Row("New Beta", "P", "D", "C", "S", "5", "", "yes"),
		catalogtest.Row("New Delta", "P", "D", "C", "S", "5", "", "yes"),
	)
	if _, err := offline.EnsureIndexed(ctx, f.catalog); err != nil {
		t.Fatal(err)
	}
	if f.spy.added != 4 {
		t.Fatalf("offline collection should be built, added=%d", f.spy.added)
	}

	if _, err := f.idx.EnsureIndexed(ctx, f.catalog); err != nil {
		t.Fatal(err)
	}
	if f.spy.added != 6 {
		t.Errorf("stale collection was reused as a cache hit, added=%d", f.spy.added)
	}
	coll, err := f.spy.GetCollection(ctx, "technologies")
	if err != nil {
		t.Fatal(err)
	}
	res, err := coll.Query(ctx, "New Beta", 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range res {
		if strings.Contains(r.Document, "Old Alpha") || strings.Contains(r.Document, "Old Gamma") {
			t.Errorf("collection still holds the previous catalog: %q", r.Document)
		}
	}
	meta, _ := catalog.LoadMetadata(f.metadata)
	if meta.Collection != "technologies" {
		t.Errorf("sidecar collection = %q", meta.Collection)
	}
}

func TestEnsureIndexed_concurrentCallsPushOnce(t *testing.T) {
	f := newFixture(t)
	catalogtest.WriteDefault(t, f.catalog)
	ctx := context.Background()

	const callers = 8
	counts := make([]int, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			counts[i], errs[i] = f.idx.EnsureIndexed(ctx, f.catalog)
		}(i)
	}
	wg.Wait()

	for i := range counts {
		if errs[i] != nil || counts[i] != 3 {
			t.Errorf("caller %d: n=%d err=%v", i, counts[i], errs[i])
		}
	}
	if f.spy.added != 3 {
		t.Errorf("documents should be pushed once, added=%d", f.spy.added)
	}
	meta, err := catalog.LoadMetadata(f.metadata)
	if err != nil {
		t.Fatal(err)
	}
	if meta.TechnologyCount != 3 || meta.Collection != "technologies" || meta.FileHash == "" {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if _, err := os.Stat(f.metadata + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary sidecar left behind: %v", err)
	}
}
