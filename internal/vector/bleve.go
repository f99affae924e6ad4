package vector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"go.uber.org/zap"
)

const (
	bleveFieldID       = "id"
	bleveFieldDocument = "document"
	bleveFieldMeta     = "meta"
)

// BleveService is a lexical backend: collections are Bleve indexes and
// distance is derived from the match score as 1/(1+score).
// It needs no embedding model.
type BleveService struct {
	root   string
	logger *zap.Logger
	mu     sync.Mutex
	open   map[string]*bleveCollection
}

// NewBleveService creates a service storing one index per collection under dir.
// An empty dir keeps indexes in memory.
func NewBleveService(dir string, logger *zap.Logger) *BleveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BleveService{root: dir, logger: logger, open: make(map[string]*bleveCollection)}
}

func (s *BleveService) path(name string) string {
	if s.root == "" {
		return ""
	}
	return filepath.Join(s.root, name+".bleve")
}

func newBleveMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	doc.AddFieldMappingsAt(bleveFieldDocument, text)
	kw := bleve.NewKeywordFieldMapping()
	doc.AddFieldMappingsAt(bleveFieldID, kw)
	meta := bleve.NewDocumentMapping()
	meta.Dynamic = true
	doc.AddSubDocumentMapping(bleveFieldMeta, meta)
	im.DefaultMapping = doc
	return im
}

// CreateCollection creates a new index. It fails with ErrCollectionExists if the name is taken.
func (s *BleveService) CreateCollection(ctx context.Context, name string) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.open[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}
	path := s.path(name)
	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(newBleveMapping())
	} else {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("%w: %s", ErrCollectionExists, name)
		}
		if err := os.MkdirAll(s.root, 0755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
		idx, err = bleve.New(path, newBleveMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	c := &bleveCollection{name: name, index: idx}
	s.open[name] = c
	return c, nil
}

// GetCollection opens the named index or returns ErrCollectionNotFound.
func (s *BleveService) GetCollection(ctx context.Context, name string) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.open[name]; ok {
		return c, nil
	}
	path := s.path(name)
	if path == "" {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	idx, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Bleve index: %w", err)
	}
	c := &bleveCollection{name: name, index: idx}
	s.open[name] = c
	return c, nil
}

// DeleteCollection closes and removes the named index.
func (s *BleveService) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.open[name]
	if ok {
		_ = c.index.Close()
		delete(s.open, name)
	}
	path := s.path(name)
	if path == "" {
		if !ok {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if !ok {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		return nil
	}
	return os.RemoveAll(path)
}

// Close closes every open index.
func (s *BleveService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for name, c := range s.open {
		if err := c.index.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.open, name)
	}
	return firstErr
}

type bleveCollection struct {
	name  string
	index bleve.Index
}

type bleveDocument struct {
	ID       string            `json:"id"`
	Document string            `json:"document"`
	Meta     map[string]string `json:"meta"`
}

func (c *bleveCollection) Name() string {
	return c.name
}

func (c *bleveCollection) Add(ctx context.Context, ids []string, documents []string, metadatas []map[string]string) error {
	if err := checkParallel(ids, documents, metadatas); err != nil {
		return err
	}
	batch := c.index.NewBatch()
	for i, id := range ids {
		if err := batch.Index(id, bleveDocument{ID: id, Document: documents[i], Meta: metadatas[i]}); err != nil {
			return fmt.Errorf("index document %s: %w", id, err)
		}
	}
	return c.index.Batch(batch)
}

func (c *bleveCollection) Query(ctx context.Context, text string, k int) ([]QueryResult, error) {
	if k <= 0 {
		return nil, nil
	}
	q := bleve.NewMatchQuery(text)
	q.SetField(bleveFieldDocument)
	req := bleve.NewSearchRequest(q)
	req.Size = k
	req.Fields = []string{"*"}
	res, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]QueryResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := QueryResult{ID: hit.ID, Metadata: make(map[string]string), Distance: 1 / (1 + hit.Score)}
		for field, v := range hit.Fields {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if field == bleveFieldDocument {
				r.Document = s
			} else if key, ok := strings.CutPrefix(field, bleveFieldMeta+"."); ok {
				r.Metadata[key] = s
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *bleveCollection) Count(ctx context.Context) (int, error) {
	n, err := c.index.DocCount()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
