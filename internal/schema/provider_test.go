package schema

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/metaform/internal/api"
)

func liveMeta(entity string) string {
	return `{"entity":"` + entity + `","primaryKey":"id","fields":[` +
		`{"name":"name","type":"string","displayType":"Single Line","nullable":false,"partialField":true}]}`
}

func TestProvider_LiveFetchWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/dealers/_metainfo", r.URL.Path)
		w.Write([]byte(liveMeta("dealer")))
	}))
	defer srv.Close()

	catalog, err := LoadCatalog()
	require.NoError(t, err)

	p := NewProvider(api.NewClient(srv.URL, nil, nil), catalog, nil)
	m, err := p.EntityMeta(context.Background(), "dealer")
	require.NoError(t, err)
	// Live schema has a single field; the bundled one has many.
	assert.Len(t, m.Fields, 1)
}

func TestProvider_FallsBackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	catalog, err := LoadCatalog()
	require.NoError(t, err)

	p := NewProvider(api.NewClient(srv.URL, nil, nil), catalog, nil)
	m, err := p.EntityMeta(context.Background(), "dealer")
	require.NoError(t, err)
	assert.Equal(t, "dealer", m.Entity)
	assert.NotNil(t, m.Field("status"))
}

func TestProvider_FallsBackOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entity": 42`))
	}))
	defer srv.Close()

	catalog, err := LoadCatalog()
	require.NoError(t, err)

	p := NewProvider(api.NewClient(srv.URL, nil, nil), catalog, nil)
	m, err := p.EntityMeta(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, "task", m.Entity)
}

func TestProvider_WrongEntityTreatedAsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(liveMeta("dealer")))
	}))
	defer srv.Close()

	catalog, err := LoadCatalog()
	require.NoError(t, err)

	p := NewProvider(api.NewClient(srv.URL, nil, nil), catalog, nil)
	m, err := p.EntityMeta(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, "task", m.Entity)
}

func TestProvider_UnavailableWhenNoSourceHasEntity(t *testing.T) {
	p := NewProvider(nil, nil, nil)
	_, err := p.EntityMeta(context.Background(), "widget")
	assert.True(t, errors.Is(err, ErrMetaUnavailable))
}

func TestProvider_CacheKeyedStrictlyByEntity(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		switch r.URL.Path {
		case "/dealers/_metainfo":
			w.Write([]byte(liveMeta("dealer")))
		case "/tasks/_metainfo":
			w.Write([]byte(liveMeta("task")))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProvider(api.NewClient(srv.URL, nil, nil), nil, nil)
	ctx := context.Background()

	m, err := p.EntityMeta(ctx, "dealer")
	require.NoError(t, err)
	assert.Equal(t, "dealer", m.Entity)

	// Same entity: served from cache.
	_, err = p.EntityMeta(ctx, "dealer")
	require.NoError(t, err)
	assert.Equal(t, 1, hits)

	// Switching entity invalidates immediately and refetches.
	m, err = p.EntityMeta(ctx, "task")
	require.NoError(t, err)
	assert.Equal(t, "task", m.Entity)
	assert.Equal(t, 2, hits)

	// Switching back refetches again — no cross-entity cache survives.
	m, err = p.EntityMeta(ctx, "dealer")
	require.NoError(t, err)
	assert.Equal(t, "dealer", m.Entity)
	assert.Equal(t, 3, hits)
}
