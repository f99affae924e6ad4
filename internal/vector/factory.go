package vector

import (
	"fmt"

	"github.com/hyperjump/copilot/internal/embedding"
	"go.uber.org/zap"
)

// ServiceType selects a similarity search backend.
type ServiceType string

const (
	// ServiceTypeLocal embeds documents and searches an on-disk MemoryIndex. Good for catalogs up to tens of thousands of rows.
	ServiceTypeLocal ServiceType = "local"
	// ServiceTypeQdrant stores vectors in a Qdrant server over gRPC.
	ServiceTypeQdrant ServiceType = "qdrant"
	// ServiceTypeBleve ranks by lexical match and needs no embedding model.
	ServiceTypeBleve ServiceType = "bleve"
	// ServiceTypeHybrid fuses a local semantic collection with a Bleve lexical one.
	ServiceTypeHybrid ServiceType = "hybrid"
)

// ServiceOptions configures NewService.
type ServiceOptions struct {
	Type       string
	Path       string
	QdrantHost string
	QdrantPort int
	// LexicalWeight and SemanticWeight apply to the hybrid type only.
	LexicalWeight  float64
	SemanticWeight float64
	Embedder       embedding.Embedder
	Logger         *zap.Logger
}

// NewService creates a similarity search service of the requested type.
// Supported types: "local" (default), "qdrant", "bleve", "hybrid".
func NewService(opts ServiceOptions) (Service, error) {
	switch ServiceType(opts.Type) {
	case ServiceTypeLocal, "":
		if opts.Embedder == nil {
			return nil, fmt.Errorf("local vector store requires an embedder")
		}
		return NewLocalService(opts.Path, opts.Embedder, opts.Logger), nil
	case ServiceTypeQdrant:
		if opts.Embedder == nil {
			return nil, fmt.Errorf("qdrant vector store requires an embedder")
		}
		return NewQdrantService(opts.QdrantHost, opts.QdrantPort, opts.Embedder, opts.Logger)
	case ServiceTypeBleve:
		return NewBleveService(opts.Path, opts.Logger), nil
	case ServiceTypeHybrid:
		if opts.Embedder == nil {
			return nil, fmt.Errorf("hybrid vector store requires an embedder")
		}
		return NewHybridService(
			NewLocalService(opts.Path, opts.Embedder, opts.Logger),
			NewBleveService(opts.Path, opts.Logger),
			opts.LexicalWeight, opts.SemanticWeight, opts.Logger,
		), nil
	default:
		return nil, fmt.Errorf("unknown vector store type: %s (supported: local, qdrant, bleve, hybrid)", opts.Type)
	}
}
