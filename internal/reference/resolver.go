// Package reference resolves the candidate option lists for ref_entity
// fields. Lookups are best-effort enrichments: on failure a field
// degrades to the bundled fallback list or, failing that, to zero
// options — never to an error surfaced to the user.
package reference

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/matthewbaird/metaform/internal/api"
	"github.com/matthewbaird/metaform/internal/meta"
)

// Fallback supplies the statically bundled option list for an entity,
// or nil. Usually schema.Catalog.RefOptions.
type Fallback func(entity string) []meta.Record

// Resolver fetches and holds reference options keyed by field name.
// Fetches for different fields are independent and may complete out of
// order; each result is written only into its own field's slot, so the
// only synchronization needed is per-key isolation under one mutex.
//
// A Resolver's cache lives as long as one form or table instance; it is
// not shared across instances.
type Resolver struct {
	client   *api.Client
	fallback Fallback
	log      *zap.Logger

	mu      sync.RWMutex
	byField map[string][]meta.Record
}

// NewResolver creates a Resolver. Both client and fallback may be nil.
func NewResolver(client *api.Client, fallback Fallback, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		client:   client,
		fallback: fallback,
		log:      log.Named("reference"),
		byField:  make(map[string][]meta.Record),
	}
}

// Options returns the options currently loaded for a field. Empty until
// the field's resolve completes; rendering proceeds regardless.
func (r *Resolver) Options(field string) []meta.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byField[field]
}

// Resolve fetches the full candidate list for the field's target entity
// via GET /{refEntity}s and stores it in the field's slot. Returns the
// stored list.
func (r *Resolver) Resolve(ctx context.Context, field, refEntity string) []meta.Record {
	rows := r.fetch(ctx, field, refEntity, meta.Plural(refEntity))
	r.store(field, rows)
	return rows
}

// ResolveDistinct fetches the narrower pre-aggregated distinct-values
// endpoint GET /{parentPlural}/{field}, used when deriving table filter
// option lists. Falls back the same way Resolve does.
func (r *Resolver) ResolveDistinct(ctx context.Context, field, refEntity, parentEntity string) []meta.Record {
	rows := r.fetch(ctx, field, refEntity, meta.Plural(parentEntity)+"/"+field)
	r.store(field, rows)
	return rows
}

func (r *Resolver) fetch(ctx context.Context, field, refEntity, path string) []meta.Record {
	if r.client != nil {
		raw, err := r.client.Get(ctx, path)
		if err == nil {
			rows, derr := api.DecodeRows(raw)
			if derr == nil {
				return rows
			}
			err = derr
		}
		r.log.Warn("reference lookup failed",
			zap.String("field", field),
			zap.String("entity", refEntity),
			zap.Error(err))
	}
	if r.fallback != nil {
		if rows := r.fallback(refEntity); rows != nil {
			return rows
		}
	}
	return nil
}

// store writes one field's slot. Last write per key wins; writes for
// other keys are never clobbered.
func (r *Resolver) store(field string, rows []meta.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byField[field] = rows
}
