// Package catalog owns the filtered technology table, its content fingerprint
// and the cache metadata sidecar.
package catalog

import (
	"errors"
	"sync/atomic"

	"github.com/hyperjump/copilot/internal/models"
)

var (
	// ErrCatalogUnavailable is returned when the catalog source file does not exist.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrNotLoaded is returned when no catalog version has been published yet.
	ErrNotLoaded = errors.New("technology database not loaded")
)

// Snapshot is an immutable catalog version. Record i has ID i.
type Snapshot struct {
	Records []models.TechnologyRecord
	Version models.CatalogVersion
}

// NewSnapshot builds a snapshot, assigning dense zero-based IDs in order.
func NewSnapshot(records []models.TechnologyRecord, version models.CatalogVersion) *Snapshot {
	out := make([]models.TechnologyRecord, len(records))
	for i, r := range records {
		r.ID = i
		out[i] = r
	}
	version.TechnologyCount = len(out)
	return &Snapshot{Records: out, Version: version}
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.Records)
}

// Get returns the record with the given id, or false when id is out of range.
func (s *Snapshot) Get(id int) (models.TechnologyRecord, bool) {
	if id < 0 || id >= len(s.Records) {
		return models.TechnologyRecord{}, false
	}
	return s.Records[id], true
}

// Store holds the active snapshot. Readers never observe a partially built table:
// a new version is built off to the side and published with one pointer swap.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Current returns the active snapshot.
func (s *Store) Current() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap, nil
}

// Loaded reports whether a snapshot is active.
func (s *Store) Loaded() bool {
	return s.current.Load() != nil
}

// Len returns the active record count, or 0 when nothing is loaded.
func (s *Store) Len() int {
	if snap := s.current.Load(); snap != nil {
		return snap.Len()
	}
	return 0
}

// Publish makes snap the active snapshot.
func (s *Store) Publish(snap *Snapshot) {
	s.current.Store(snap)
}

// Clear drops the active snapshot.
func (s *Store) Clear() {
	s.current.Store(nil)
}
