// Package indexer keeps the similarity index in step with the catalog file.
// Unchanged catalogs are served from the persisted index; changed ones are
// re-embedded from scratch.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hyperjump/copilot/internal/catalog"
	"github.com/hyperjump/copilot/internal/models"
	"github.com/hyperjump/copilot/internal/vector"
	"go.uber.org/zap"
)

// ErrIndexingFailed is returned when the similarity service fails during a rebuild.
// The cache metadata is left untouched so the next call retries the rebuild.
var ErrIndexingFailed = errors.New("indexing failed")

// Indexer loads the catalog into the Store and the similarity service.
type Indexer struct {
	store        *catalog.Store
	service      vector.Service
	collection   string
	sheet        string
	metadataPath string
	now          func() time.Time
	logger       *zap.Logger
	mu           sync.Mutex
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for cache decisions and rebuild progress.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithSheet selects the worksheet to read; empty means the first one.
func WithSheet(sheet string) IndexerOption {
	return func(idx *Indexer) { idx.sheet = sheet }
}

// WithClock overrides the timestamp source for the metadata sidecar.
func WithClock(now func() time.Time) IndexerOption {
	return func(idx *Indexer) { idx.now = now }
}

// NewIndexer creates an indexer that publishes into store, pushes documents
// into the named collection of service and records versions at metadataPath.
func NewIndexer(store *catalog.Store, service vector.Service, collection, metadataPath string, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		store:        store,
		service:      service,
		collection:   collection,
		metadataPath: metadataPath,
		now:          time.Now,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// EnsureIndexed makes the catalog at path the active version and returns its record count.
// Concurrent calls are serialized.
func (idx *Indexer) EnsureIndexed(ctx context.Context, path string) (int, error) {
	return idx.ensure(ctx, path, false)
}

// Rebuild re-embeds the catalog even when the fingerprint matches.
func (idx *Indexer) Rebuild(ctx context.Context, path string) (int, error) {
	return idx.ensure(ctx, path, true)
}

func (idx *Indexer) ensure(ctx context.Context, path string, force bool) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", catalog.ErrCatalogUnavailable, path)
		}
		return 0, fmt.Errorf("stat catalog: %w", err)
	}
	hash, err := catalog.Fingerprint(path)
	if err != nil {
		return 0, err
	}
	saved, err := catalog.LoadMetadata(idx.metadataPath)
	if err != nil {
		idx.logger.Warn("ignoring unreadable cache metadata", zap.String("path", idx.metadataPath), zap.Error(err))
		saved = models.CatalogVersion{}
	}

	records, err := catalog.LoadFile(path, idx.sheet)
	if err != nil {
		return 0, err
	}

	// A sidecar written for another collection says nothing about this one.
	if !force && saved.FileHash == hash && saved.Collection == idx.collection {
		if n, ok := idx.cachedCount(ctx); ok && n == len(records) {
			snap := catalog.NewSnapshot(records, saved)
			idx.store.Publish(snap)
			idx.logger.Info("catalog unchanged, reusing index", zap.Int("technologies", snap.Len()), zap.String("hash", hash))
			return snap.Len(), nil
		} else if ok {
			idx.logger.Warn("index count does not match catalog, rebuilding",
				zap.Int("indexed", n), zap.Int("technologies", len(records)))
		}
	} else if !force && saved.FileHash == hash {
		idx.logger.Info("cache metadata belongs to another collection, rebuilding",
			zap.String("metadata_collection", saved.Collection), zap.String("collection", idx.collection))
	}

	return idx.rebuild(ctx, records, hash)
}

// cachedCount returns the document count of the existing collection, or false when it is unusable.
func (idx *Indexer) cachedCount(ctx context.Context) (int, bool) {
	coll, err := idx.service.GetCollection(ctx, idx.collection)
	if err != nil {
		idx.logger.Info("no usable index collection", zap.String("collection", idx.collection), zap.Error(err))
		return 0, false
	}
	n, err := coll.Count(ctx)
	if err != nil {
		idx.logger.Warn("counting index collection failed", zap.String("collection", idx.collection), zap.Error(err))
		return 0, false
	}
	return n, true
}

func (idx *Indexer) rebuild(ctx context.Context, records []models.TechnologyRecord, hash string) (int, error) {
	start := time.Now()
	// The old table no longer matches what the collection is about to hold.
	idx.store.Clear()

	if err := idx.service.DeleteCollection(ctx, idx.collection); err != nil && !errors.Is(err, vector.ErrCollectionNotFound) {
		return 0, fmt.Errorf("%w: delete collection: %w", ErrIndexingFailed, err)
	}
	coll, err := idx.service.CreateCollection(ctx, idx.collection)
	if err != nil {
		return 0, fmt.Errorf("%w: create collection: %w", ErrIndexingFailed, err)
	}

	snap := catalog.NewSnapshot(records, models.CatalogVersion{FileHash: hash, Collection: idx.collection, LastUpdated: idx.now().UTC()})
	ids := make([]string, snap.Len())
	docs := make([]string, snap.Len())
	metas := make([]map[string]string, snap.Len())
	for i, r := range snap.Records {
		ids[i] = catalog.DocumentID(r.ID)
		docs[i] = catalog.Document(r)
		metas[i] = catalog.Metadata(r)
	}
	if err := coll.Add(ctx, ids, docs, metas); err != nil {
		return 0, fmt.Errorf("%w: add documents: %w", ErrIndexingFailed, err)
	}

	if err := catalog.SaveMetadata(idx.metadataPath, snap.Version); err != nil {
		idx.logger.Warn("failed to save cache metadata", zap.String("path", idx.metadataPath), zap.Error(err))
	}
	idx.store.Publish(snap)
	idx.logger.Info("catalog indexed",
		zap.Int("technologies", snap.Len()),
		zap.String("collection", idx.collection),
		zap.Duration("took", time.Since(start)))
	return snap.Len(), nil
}
