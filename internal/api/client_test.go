package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/metaform/internal/session"
)

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	defer srv.Close()

	sess := session.New(func() string { return "tok-123" }, nil, nil)
	c := NewClient(srv.URL, sess, nil)

	_, err := c.Get(context.Background(), "/dealers")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	_, err := c.Get(context.Background(), "dealers")
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClient_EnvelopeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"name already taken"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	_, err := c.Post(context.Background(), "/dealers", map[string]any{"input_data": map[string]any{}})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "name already taken", apiErr.Message)
}

func TestClient_EnvelopeFailureWithoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	_, err := c.Get(context.Background(), "/dealers")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, genericErrorMessage, apiErr.Message)
}

func TestClient_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":"not found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	_, err := c.Get(context.Background(), "/dealers/_metainfo")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "not found", apiErr.Message)
}

func TestClient_PassThroughWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entity":"dealer","primaryKey":"id","fields":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	raw, err := c.Get(context.Background(), "/dealers/_metainfo")
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "dealer", body["entity"])
}

func TestDecodeRows_Shapes(t *testing.T) {
	cases := map[string]string{
		"bare array":       `[{"id":"1"},{"id":"2"}]`,
		"data envelope":    `{"data":[{"id":"1"},{"id":"2"}]}`,
		"content envelope": `{"content":[{"id":"1"},{"id":"2"}]}`,
	}
	for name, raw := range cases {
		rows, err := DecodeRows(json.RawMessage(raw))
		require.NoError(t, err, name)
		assert.Len(t, rows, 2, name)
	}
}

func TestDecodeRows_SingleObject(t *testing.T) {
	rows, err := DecodeRows(json.RawMessage(`{"id":"42","name":"Acme"}`))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Acme", rows[0]["name"])
}

func TestDecodeRows_Empty(t *testing.T) {
	rows, err := DecodeRows(nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
