package engine

import (
	"context"
	"fmt"

	"github.com/hyperjump/copilot/internal/storage"
	"go.uber.org/zap"
)

// Banner is the service root response.
type Banner struct {
	Message        string `json:"message"`
	Version        string `json:"version"`
	DatabaseLoaded bool   `json:"database_loaded"`
	Technologies   int    `json:"technologies"`
}

// Health reports generation-service reachability and catalog state.
type Health struct {
	Status            string `json:"status"`
	Ollama            string `json:"ollama"`
	DatabaseLoaded    bool   `json:"database_loaded"`
	TechnologiesCount int    `json:"technologies_count"`
}

// DatabaseStatus describes the active catalog version and index.
// When Loaded is false only Message is meaningful.
type DatabaseStatus struct {
	Loaded          bool   `json:"loaded"`
	Message         string `json:"message,omitempty"`
	TechnologyCount int    `json:"technology_count"`
	LastUpdated     string `json:"last_updated"`
	CollectionCount int    `json:"collection_count"`
	DiskUsageBytes  int64  `json:"disk_usage_bytes"`
}

// Banner returns the service banner.
func (e *Engine) Banner() Banner {
	return Banner{
		Message:        "NZTC Innovation Co-Pilot API",
		Version:        Version,
		DatabaseLoaded: e.deps.Store.Loaded(),
		Technologies:   e.deps.Store.Len(),
	}
}

// Health pings the generator. The service itself is always reported healthy.
func (e *Engine) Health(ctx context.Context) Health {
	ollama := "connected"
	if e.deps.Generator == nil {
		ollama = "disconnected"
	} else if err := e.deps.Generator.Ping(ctx); err != nil {
		e.logger.Debug("generator ping failed", zap.Error(err))
		ollama = "disconnected"
	}
	return Health{
		Status:            "healthy",
		Ollama:            ollama,
		DatabaseLoaded:    e.deps.Store.Loaded(),
		TechnologiesCount: e.deps.Store.Len(),
	}
}

// DatabaseStatus reports the active catalog version, the index document count and disk usage.
func (e *Engine) DatabaseStatus(ctx context.Context) DatabaseStatus {
	snap, err := e.deps.Store.Current()
	if err != nil {
		return DatabaseStatus{Loaded: false, Message: fmt.Sprintf("Database not loaded. Check: %s", e.paths.Catalog)}
	}
	st := DatabaseStatus{
		Loaded:          true,
		TechnologyCount: snap.Len(),
		LastUpdated:     "Unknown",
	}
	if !snap.Version.LastUpdated.IsZero() {
		st.LastUpdated = snap.Version.LastUpdated.Format("2006-01-02T15:04:05.999999")
	}
	if coll, err := e.deps.Service.GetCollection(ctx, e.paths.Collection); err == nil {
		if n, err := coll.Count(ctx); err == nil {
			st.CollectionCount = n
		} else {
			e.logger.Warn("collection count failed", zap.Error(err))
		}
	}
	if n, err := storage.DiskUsageBytes(e.paths.VectorStore, e.paths.Database); err == nil {
		st.DiskUsageBytes = n
	} else {
		e.logger.Warn("disk usage failed", zap.Error(err))
	}
	return st
}
