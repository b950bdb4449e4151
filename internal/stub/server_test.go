package stub

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/metaform/internal/api"
	"github.com/matthewbaird/metaform/internal/meta"
	"github.com/matthewbaird/metaform/internal/schema"
	"github.com/matthewbaird/metaform/internal/session"
)

func newTestServer(t *testing.T) (*httptest.Server, Store) {
	t.Helper()
	catalog, err := schema.LoadCatalog()
	require.NoError(t, err)
	store := NewMemoryStore()
	ts := httptest.NewServer(NewServer(catalog, store, nil).Router())
	t.Cleanup(ts.Close)
	return ts, store
}

type wireEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, wireEnvelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env wireEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func input(rec meta.Record) map[string]any {
	return map[string]any{"input_data": rec}
}

func TestServer_Metainfo(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, env := doJSON(t, http.MethodGet, ts.URL+"/tasks/_metainfo", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.Success)

	var m meta.EntityMeta
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.Equal(t, "task", m.Entity)
	require.NoError(t, m.Validate())
	assert.Equal(t, meta.DisplayDropdown, m.Field("status").DisplayType)
}

func TestServer_UnknownEntity(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, env := doJSON(t, http.MethodGet, ts.URL+"/gadgets/_metainfo", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "unknown entity")
}

func TestServer_CreateGetUpdateRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, env := doJSON(t, http.MethodPost, ts.URL+"/tasks",
		input(meta.Record{"title": "Audit ledger", "status": "Open"}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)

	var created meta.Record
	require.NoError(t, json.Unmarshal(env.Data, &created))
	id := created["id"].(string)
	require.NotEmpty(t, id)

	resp, env = doJSON(t, http.MethodPut, ts.URL+"/tasks/"+id,
		input(meta.Record{"status": "Done"}))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, env = doJSON(t, http.MethodGet, ts.URL+"/tasks/"+id, nil)
	var got meta.Record
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Done", got["status"])
	assert.Equal(t, "Audit ledger", got["title"])
}

func TestServer_CreateValidatesRequired(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, env := doJSON(t, http.MethodPost, ts.URL+"/tasks",
		input(meta.Record{"status": "Open"}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, "Title is required", env.Error)
}

func TestServer_UpdateRejectsBlankRequired(t *testing.T) {
	ts, store := newTestServer(t)
	rec, err := store.Create(context.Background(), "task", meta.Record{"id": "t1", "title": "x", "status": "Open"})
	require.NoError(t, err)

	resp, env := doJSON(t, http.MethodPut, ts.URL+"/tasks/"+rec["id"].(string),
		input(meta.Record{"title": ""}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Title is required", env.Error)

	// Omitting a required field entirely is a legal partial update.
	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/tasks/t1",
		input(meta.Record{"priority": "High"}))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_MalformedBody(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/tasks", "application/json", bytes.NewBufferString("{nope"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp2, env := doJSON(t, http.MethodPost, ts.URL+"/tasks", map[string]any{"title": "no wrapper"})
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
	assert.Equal(t, "missing input_data", env.Error)
}

func TestServer_DistinctValues(t *testing.T) {
	ts, store := newTestServer(t)
	ctx := context.Background()

	ada := map[string]any{"id": "u1", "name": "Ada"}
	grace := map[string]any{"id": "u2", "name": "Grace"}
	_, _ = store.Create(ctx, "task", meta.Record{"title": "a", "status": "Open", "assignee": ada})
	_, _ = store.Create(ctx, "task", meta.Record{"title": "b", "status": "Open", "assignee": ada})
	_, _ = store.Create(ctx, "task", meta.Record{"title": "c", "status": "Open", "assignee": grace})
	_, _ = store.Create(ctx, "task", meta.Record{"title": "d", "status": "Open"})

	_, env := doJSON(t, http.MethodGet, ts.URL+"/tasks/assignee", nil)
	require.True(t, env.Success)

	var rows []meta.Record
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 2, "duplicates collapse by referenced id")
	assert.Equal(t, "Ada", rows[0]["name"])
	assert.Equal(t, "Grace", rows[1]["name"])
}

func TestServer_ChildScoping(t *testing.T) {
	ts, store := newTestServer(t)
	ctx := context.Background()

	_, _ = store.Create(ctx, "dealer", meta.Record{"id": "d1", "name": "Acme", "email": "a@x", "status": "Active"})
	_, _ = store.Create(ctx, "task", meta.Record{"title": "a", "status": "Open", "dealer_id": "d1"})
	_, _ = store.Create(ctx, "task", meta.Record{"title": "b", "status": "Open", "dealer_id": "d2"})

	_, env := doJSON(t, http.MethodGet, ts.URL+"/dealers/d1/tasks", nil)
	require.True(t, env.Success)
	var rows []meta.Record
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0]["title"])

	// Entities with no declared relationship 404.
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/dealers/d1/meetings", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_DeleteAndRestore(t *testing.T) {
	ts, store := newTestServer(t)
	_, err := store.Create(context.Background(), "dealer",
		meta.Record{"id": "d1", "name": "Acme", "email": "a@x", "status": "Active"})
	require.NoError(t, err)

	resp, _ := doJSON(t, http.MethodDelete, ts.URL+"/dealers/d1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/dealers/d1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, env := doJSON(t, http.MethodPost, ts.URL+"/dealers/d1/restore", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rec meta.Record
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, "Acme", rec["name"])
}

// The stub must satisfy the same client stack the real backend does.
func TestServer_ServesApiClientAndProvider(t *testing.T) {
	ts, store := newTestServer(t)
	require.NoError(t, Seed(context.Background(), store, nil))

	sess := session.New(nil, nil, nil)
	client := api.NewClient(ts.URL, sess, nil)

	catalog, err := schema.LoadCatalog()
	require.NoError(t, err)
	provider := schema.NewProvider(client, catalog, nil)

	m, err := provider.EntityMeta(context.Background(), "dealer")
	require.NoError(t, err)
	assert.Equal(t, "dealer", m.Entity)

	raw, err := client.Get(context.Background(), "dealers")
	require.NoError(t, err)
	rows, err := api.DecodeRows(raw)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	raw, err = client.Post(context.Background(), "tasks",
		map[string]any{"input_data": meta.Record{"title": "From client", "status": "Open"}})
	require.NoError(t, err)
	rec, err := api.DecodeRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, "From client", rec["title"])
}

func TestSeed_Idempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, Seed(ctx, store, nil))
	dealers, err := store.List(ctx, "dealer", ListOptions{})
	require.NoError(t, err)
	first := len(dealers)
	require.Greater(t, first, 0)

	require.NoError(t, Seed(ctx, store, nil))
	dealers, err = store.List(ctx, "dealer", ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, first, len(dealers))
}
