package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hyperjump/copilot/internal/embedding"
	"go.uber.org/zap"
)

const (
	indexFileName     = "index.bin"
	documentsFileName = "documents.json"
)

// LocalService stores collections as MemoryIndex files under a root directory.
// An empty root keeps everything in memory.
type LocalService struct {
	root        string
	embedder    embedding.Embedder
	logger      *zap.Logger
	mu          sync.Mutex
	collections map[string]*localCollection
}

// NewLocalService creates a service rooted at dir using embedder for documents and queries.
func NewLocalService(dir string, embedder embedding.Embedder, logger *zap.Logger) *LocalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalService{
		root:        dir,
		embedder:    embedder,
		logger:      logger,
		collections: make(map[string]*localCollection),
	}
}

func (s *LocalService) dir(name string) string {
	if s.root == "" {
		return ""
	}
	return filepath.Join(s.root, name)
}

// CreateCollection creates an empty collection. It fails with ErrCollectionExists if the name is taken.
func (s *LocalService) CreateCollection(ctx context.Context, name string) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.getLocked(name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}
	idx, err := NewMemoryIndex(s.embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	c := &localCollection{
		name:     name,
		dir:      s.dir(name),
		embedder: s.embedder,
		index:    idx,
		docs:     make(map[string]storedDocument),
	}
	if err := c.persist(); err != nil {
		return nil, err
	}
	s.collections[name] = c
	s.logger.Debug("collection created", zap.String("collection", name), zap.String("dir", c.dir))
	return c, nil
}

// GetCollection returns the named collection, loading it from disk on first access.
func (s *LocalService) GetCollection(ctx context.Context, name string) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(name)
}

func (s *LocalService) getLocked(name string) (*localCollection, error) {
	if c, ok := s.collections[name]; ok {
		return c, nil
	}
	dir := s.dir(name)
	if dir == "" {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	c, err := loadLocalCollection(name, dir, s.embedder)
	if err != nil {
		return nil, err
	}
	s.collections[name] = c
	s.logger.Debug("collection loaded", zap.String("collection", name), zap.Int("count", c.index.Size()))
	return c, nil
}

// DeleteCollection removes the named collection and its files.
func (s *LocalService) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, inMemory := s.collections[name]
	delete(s.collections, name)
	dir := s.dir(name)
	if dir == "" {
		if !inMemory {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		return nil
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) && !inMemory {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove collection dir: %w", err)
	}
	return nil
}

// Close is a no-op; collections are persisted on every Add.
func (s *LocalService) Close() error {
	return nil
}

type storedDocument struct {
	Document string            `json:"document"`
	Metadata map[string]string `json:"metadata"`
}

type localCollection struct {
	name     string
	dir      string
	embedder embedding.Embedder
	mu       sync.RWMutex
	index    *MemoryIndex
	docs     map[string]storedDocument
}

func loadLocalCollection(name, dir string, embedder embedding.Embedder) (*localCollection, error) {
	data, err := os.ReadFile(filepath.Join(dir, documentsFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		return nil, fmt.Errorf("read collection documents: %w", err)
	}
	docs := make(map[string]storedDocument)
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse collection documents: %w", err)
	}
	idx, err := LoadMemoryIndex(filepath.Join(dir, indexFileName))
	if err != nil {
		return nil, err
	}
	if idx.dimensions != embedder.Dimensions() {
		return nil, fmt.Errorf("collection %s has dimension %d, embedder produces %d", name, idx.dimensions, embedder.Dimensions())
	}
	if idx.Size() != len(docs) {
		return nil, errors.New("collection index and documents are out of sync")
	}
	return &localCollection{name: name, dir: dir, embedder: embedder, index: idx, docs: docs}, nil
}

func (c *localCollection) Name() string {
	return c.name
}

func (c *localCollection) Add(ctx context.Context, ids []string, documents []string, metadatas []map[string]string) error {
	if err := checkParallel(ids, documents, metadatas); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	vectors, err := c.embedder.EmbedBatch(ctx, documents)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.index.Add(ids, vectors); err != nil {
		return err
	}
	for i, id := range ids {
		c.docs[id] = storedDocument{Document: documents[i], Metadata: metadatas[i]}
	}
	return c.persistLocked()
}

func (c *localCollection) Query(ctx context.Context, text string, k int) ([]QueryResult, error) {
	q, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	hits, err := c.index.Search(ctx, q, k)
	if err != nil {
		return nil, err
	}
	out := make([]QueryResult, 0, len(hits))
	for _, h := range hits {
		d := c.docs[h.ID]
		out = append(out, QueryResult{
			ID:       h.ID,
			Document: d.Document,
			Metadata: d.Metadata,
			Distance: 1 - h.Score,
		})
	}
	return out, nil
}

func (c *localCollection) Count(ctx context.Context) (int, error) {
	return c.index.Size(), nil
}

func (c *localCollection) persist() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persistLocked()
}

func (c *localCollection) persistLocked() error {
	if c.dir == "" {
		return nil
	}
	if err := c.index.Save(filepath.Join(c.dir, indexFileName)); err != nil {
		return err
	}
	data, err := json.Marshal(c.docs)
	if err != nil {
		return fmt.Errorf("marshal collection documents: %w", err)
	}
	path := filepath.Join(c.dir, documentsFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write collection documents: %w", err)
	}
	return os.Rename(tmp, path)
}
