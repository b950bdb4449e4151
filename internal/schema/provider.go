// Package schema supplies entity metadata to the form engine and column
// deriver. Metadata comes from the backend's _metainfo endpoint when it
// is reachable, otherwise from the bundled CUE catalog. When neither
// source has the entity the screen is unusable — every downstream
// behavior depends on schema, so that error is terminal for the screen.
package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/matthewbaird/metaform/internal/api"
	"github.com/matthewbaird/metaform/internal/meta"
)

// ErrMetaUnavailable means no metadata source had the entity. Callers
// surface a blocking "metadata unavailable" state; there is no retry
// loop beyond closing and reopening the screen.
var ErrMetaUnavailable = errors.New("entity metadata unavailable")

// Provider resolves EntityMeta by entity name. The cache is keyed
// strictly by entity: asking for a different entity invalidates the
// previous result immediately, so a stale schema is never shown against
// another entity's data.
type Provider struct {
	client  *api.Client
	catalog *Catalog
	log     *zap.Logger

	mu     sync.Mutex
	entity string
	cached *meta.EntityMeta
}

// NewProvider creates a Provider. A nil client skips live fetching and
// serves the bundled catalog only; a nil catalog disables the fallback.
func NewProvider(client *api.Client, catalog *Catalog, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{client: client, catalog: catalog, log: log.Named("schema")}
}

// EntityMeta returns the schema for the named entity, trying the live
// endpoint first and falling back to the bundled catalog.
func (p *Provider) EntityMeta(ctx context.Context, entity string) (*meta.EntityMeta, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.entity == entity && p.cached != nil {
		return p.cached, nil
	}
	p.entity = entity
	p.cached = nil

	if m := p.fetchLive(ctx, entity); m != nil {
		p.cached = m
		return m, nil
	}
	if p.catalog != nil {
		if m := p.catalog.EntityMeta(entity); m != nil {
			p.log.Info("using bundled metadata", zap.String("entity", entity))
			p.cached = m
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMetaUnavailable, entity)
}

// fetchLive attempts the _metainfo endpoint. Any failure — network,
// non-2xx, malformed body, schema for the wrong entity — yields nil so
// the caller falls back.
func (p *Provider) fetchLive(ctx context.Context, entity string) *meta.EntityMeta {
	if p.client == nil {
		return nil
	}
	raw, err := p.client.Get(ctx, meta.Plural(entity)+"/_metainfo")
	if err != nil {
		p.log.Warn("metainfo fetch failed", zap.String("entity", entity), zap.Error(err))
		return nil
	}
	var m meta.EntityMeta
	if err := json.Unmarshal(raw, &m); err != nil {
		p.log.Warn("metainfo malformed", zap.String("entity", entity), zap.Error(err))
		return nil
	}
	if m.Entity != entity {
		p.log.Warn("metainfo for wrong entity",
			zap.String("want", entity), zap.String("got", m.Entity))
		return nil
	}
	if err := m.Validate(); err != nil {
		p.log.Warn("metainfo invalid", zap.String("entity", entity), zap.Error(err))
		return nil
	}
	return &m
}
