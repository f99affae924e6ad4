// Package vector provides the similarity search service that the catalog is
// indexed into: named collections of documents that answer nearest-neighbour
// queries with a distance (lower is more similar).
package vector

import (
	"context"
	"errors"
)

var (
	// ErrCollectionNotFound is returned when a named collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrCollectionExists is returned by CreateCollection when the name is taken.
	ErrCollectionExists = errors.New("collection already exists")
)

// QueryResult is one nearest-neighbour hit. Results are ordered by ascending Distance.
type QueryResult struct {
	ID       string
	Document string
	Metadata map[string]string
	Distance float64
}

// Collection is a named set of indexed documents.
type Collection interface {
	Name() string
	// Add indexes documents; ids, documents and metadatas are parallel slices.
	Add(ctx context.Context, ids []string, documents []string, metadatas []map[string]string) error
	// Query returns up to k nearest documents to text.
	Query(ctx context.Context, text string, k int) ([]QueryResult, error)
	Count(ctx context.Context) (int, error)
}

// Service manages collections.
type Service interface {
	CreateCollection(ctx context.Context, name string) (Collection, error)
	GetCollection(ctx context.Context, name string) (Collection, error)
	DeleteCollection(ctx context.Context, name string) error
	Close() error
}

func checkParallel(ids, documents []string, metadatas []map[string]string) error {
	if len(ids) != len(documents) || len(ids) != len(metadatas) {
		return errors.New("ids, documents and metadatas length mismatch")
	}
	return nil
}
