package stub

import (
	"context"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/matthewbaird/metaform/internal/meta"
)

// MemoryStore is an in-memory Store for tests and throwaway dev runs.
// Insertion order is preserved per entity.
type MemoryStore struct {
	mu sync.RWMutex
	// entity → ordered ids
	order map[string][]string
	// entity → id → record
	records map[string]map[string]meta.Record
	// entity → id → soft-deleted
	deleted map[string]map[string]bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		order:   make(map[string][]string),
		records: make(map[string]map[string]meta.Record),
		deleted: make(map[string]map[string]bool),
	}
}

// NewID returns a fresh lexicographically sortable record id.
func NewID() string {
	return strings.ToLower(ulid.Make().String())
}

func (s *MemoryStore) List(ctx context.Context, entity string, opts ListOptions) ([]meta.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]meta.Record, 0, len(s.order[entity]))
	for _, id := range s.order[entity] {
		if s.deleted[entity][id] && !opts.IncludeDeleted {
			continue
		}
		rec := s.records[entity][id]
		if opts.MappedBy != "" && !matchesParent(rec, opts.MappedBy, opts.ParentID) {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, entity, id string) (meta.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[entity][id]
	if !ok || s.deleted[entity][id] {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) Create(ctx context.Context, entity string, rec meta.Record) (meta.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneRecord(rec)
	id, _ := stored["id"].(string)
	if id == "" {
		id = NewID()
		stored["id"] = id
	}

	if s.records[entity] == nil {
		s.records[entity] = make(map[string]meta.Record)
		s.deleted[entity] = make(map[string]bool)
	}
	if _, exists := s.records[entity][id]; !exists {
		s.order[entity] = append(s.order[entity], id)
	}
	s.records[entity][id] = stored
	return cloneRecord(stored), nil
}

func (s *MemoryStore) Update(ctx context.Context, entity, id string, fields meta.Record) (meta.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[entity][id]
	if !ok || s.deleted[entity][id] {
		return nil, ErrNotFound
	}
	for k, v := range fields {
		if k == "id" {
			continue
		}
		rec[k] = v
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) Delete(ctx context.Context, entity, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[entity][id]; !ok || s.deleted[entity][id] {
		return ErrNotFound
	}
	s.deleted[entity][id] = true
	return nil
}

func (s *MemoryStore) Restore(ctx context.Context, entity, id string) (meta.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[entity][id]
	if !ok || !s.deleted[entity][id] {
		return nil, ErrNotFound
	}
	delete(s.deleted[entity], id)
	return cloneRecord(rec), nil
}

func (s *MemoryStore) Close() error { return nil }

// cloneRecord shallow-copies a record so callers never share map
// instances with the store.
func cloneRecord(rec meta.Record) meta.Record {
	out := make(meta.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
