// Package stub is the development backend: a small HTTP server that
// speaks the same wire protocol as the production API — metadata
// endpoint, enveloped CRUD, child scoping, distinct-values lookups —
// over a local store. It exists so the console and its tests run
// without the real backend.
package stub

import (
	"context"
	"errors"

	"github.com/matthewbaird/metaform/internal/meta"
)

// ErrNotFound is returned for ids that do not exist or are deleted.
var ErrNotFound = errors.New("record not found")

// ListOptions narrow a List call.
type ListOptions struct {
	// MappedBy/ParentID scope child listings: only rows whose MappedBy
	// field references ParentID survive.
	MappedBy string
	ParentID string
	// IncludeDeleted admits soft-deleted rows.
	IncludeDeleted bool
}

// Store is the record store behind the stub server. Records are
// schemaless maps; the server layer owns all metadata awareness.
type Store interface {
	// List returns the entity's rows in insertion order.
	List(ctx context.Context, entity string, opts ListOptions) ([]meta.Record, error)

	// Get returns one live record by id.
	Get(ctx context.Context, entity, id string) (meta.Record, error)

	// Create inserts a record, generating an id when absent, and
	// returns the stored copy.
	Create(ctx context.Context, entity string, rec meta.Record) (meta.Record, error)

	// Update merges fields into an existing live record and returns the
	// result.
	Update(ctx context.Context, entity, id string, fields meta.Record) (meta.Record, error)

	// Delete soft-deletes a record; it disappears from List and Get but
	// remains restorable.
	Delete(ctx context.Context, entity, id string) error

	// Restore reverses a soft delete.
	Restore(ctx context.Context, entity, id string) (meta.Record, error)

	// Close releases underlying resources.
	Close() error
}

// matchesParent reports whether a row's foreign-key field references
// the parent id. The FK may be stored as a bare id or as an {id, label}
// pair.
func matchesParent(rec meta.Record, mappedBy, parentID string) bool {
	v, ok := rec[mappedBy]
	if !ok || v == nil {
		return false
	}
	if s, ok := meta.RefID(v).(string); ok {
		return s == parentID
	}
	return false
}
