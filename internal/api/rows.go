package api

import (
	"encoding/json"
	"fmt"

	"github.com/matthewbaird/metaform/internal/meta"
)

// DecodeRows accepts every row-list shape the backend has shipped over
// the years: a bare array, {"data":[...]}, {"content":[...]}, or a
// single object (returned as a one-element slice).
func DecodeRows(raw json.RawMessage) ([]meta.Record, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var rows []meta.Record
	if err := json.Unmarshal(raw, &rows); err == nil {
		return rows, nil
	}

	var wrapped struct {
		Data    []meta.Record `json:"data"`
		Content []meta.Record `json:"content"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		if wrapped.Data != nil {
			return wrapped.Data, nil
		}
		if wrapped.Content != nil {
			return wrapped.Content, nil
		}
	}

	var single meta.Record
	if err := json.Unmarshal(raw, &single); err == nil && len(single) > 0 {
		return []meta.Record{single}, nil
	}

	return nil, fmt.Errorf("decoding rows: unrecognized response shape")
}

// DecodeRecord decodes a single-object response.
func DecodeRecord(raw json.RawMessage) (meta.Record, error) {
	var rec meta.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return rec, nil
}
