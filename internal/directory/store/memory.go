// Package store holds the in-memory record mapping.
package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"persondir/internal/directory/models"
	"persondir/pkg/platform/sentinel"
)

// ErrNotFound is returned when a record does not exist in the store.
var ErrNotFound = sentinel.ErrNotFound

// InMemory keeps records keyed by id while remembering insertion order, so
// listings and persisted snapshots come out in a stable order.
//
// Records are cloned on the way in and out; callers never hold a pointer into
// the map.
type InMemory struct {
	mu      sync.RWMutex
	order   []string
	records map[string]*models.Record
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[string]*models.Record)}
}

// Put inserts rec or replaces an existing record with the same id. A replaced
// record keeps its original position.
func (s *InMemory) Put(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		s.order = append(s.order, rec.ID)
	}
	s.records[rec.ID] = rec.Clone()
	return nil
}

// Create inserts rec, failing with sentinel.ErrAlreadyUsed if the id exists.
func (s *InMemory) Create(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("record %s: %w", rec.ID, sentinel.ErrAlreadyUsed)
	}
	s.order = append(s.order, rec.ID)
	s.records[rec.ID] = rec.Clone()
	return nil
}

// Update replaces an existing record in place.
func (s *InMemory) Update(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		return ErrNotFound
	}
	s.records[rec.ID] = rec.Clone()
	return nil
}

// Delete removes the record and returns it.
func (s *InMemory) Delete(_ context.Context, id string) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.records, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return rec, nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[id]; ok {
		return rec.Clone(), nil
	}
	return nil, ErrNotFound
}

// FindByName returns the first record in insertion order whose name matches
// case-insensitively. Names are not unique; later matches are unreachable
// through this lookup.
func (s *InMemory) FindByName(_ context.Context, name string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if rec := s.records[id]; strings.EqualFold(rec.Name, name) {
			return rec.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// List returns copies of all records in insertion order.
func (s *InMemory) List(_ context.Context) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].Clone())
	}
	return out, nil
}

// Names returns all record names in insertion order.
func (s *InMemory) Names(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].Name)
	}
	return out, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}
