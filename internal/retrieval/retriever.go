// Package retrieval resolves similarity hits back to catalog records.
package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/copilot/internal/catalog"
	"github.com/hyperjump/copilot/internal/models"
	"github.com/hyperjump/copilot/internal/vector"
	"go.uber.org/zap"
)

// Retriever queries the similarity service and maps hits onto the active catalog.
type Retriever struct {
	store      *catalog.Store
	service    vector.Service
	collection string
	logger     *zap.Logger
}

// NewRetriever creates a retriever over the named collection.
func NewRetriever(store *catalog.Store, service vector.Service, collection string, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{store: store, service: service, collection: collection, logger: logger}
}

// Retrieve returns up to limit technologies most similar to query, most similar first.
// Hits whose id is outside the active catalog are dropped and logged.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int) ([]models.RetrievedTechnology, error) {
	snap, err := r.store.Current()
	if err != nil {
		return nil, err
	}
	if limit > snap.Len() {
		limit = snap.Len()
	}
	if limit <= 0 {
		return []models.RetrievedTechnology{}, nil
	}
	coll, err := r.service.GetCollection(ctx, r.collection)
	if err != nil {
		return nil, fmt.Errorf("get collection %s: %w", r.collection, err)
	}
	hits, err := coll.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}

	out := make([]models.RetrievedTechnology, 0, len(hits))
	for _, h := range hits {
		id, ok := hitID(h)
		if !ok {
			r.logger.Warn("discarding hit with unparseable id", zap.String("id", h.ID))
			continue
		}
		rec, ok := snap.Get(id)
		if !ok {
			r.logger.Warn("discarding out-of-range technology id",
				zap.Int("tech_id", id), zap.Int("technologies", snap.Len()))
			continue
		}
		out = append(out, models.RetrievedTechnology{TechnologyRecord: rec, Distance: h.Distance})
	}
	return out, nil
}

// hitID reads the catalog id from the tech_id metadata, falling back to the document id.
func hitID(h vector.QueryResult) (int, bool) {
	if v, ok := h.Metadata["tech_id"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n, true
		}
	}
	n, err := strconv.Atoi(strings.TrimPrefix(h.ID, "tech_"))
	if err != nil {
		return 0, false
	}
	return n, true
}
