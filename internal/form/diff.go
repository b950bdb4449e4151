package form

import (
	"reflect"

	"github.com/matthewbaird/metaform/internal/meta"
)

// createPayload builds the create-path payload: every schema field whose
// current value is set and non-empty, excluding file fields (their
// upload is a separate flow) and collection relationships (which never
// carry scalar values).
func createPayload(m *meta.EntityMeta, values map[string]any) map[string]any {
	out := make(map[string]any)
	for _, f := range m.ScalarFields() {
		if f.Type == meta.TypeFile {
			continue
		}
		v, ok := values[f.Name]
		if !ok || isEmpty(v) {
			continue
		}
		out[f.Name] = v
	}
	return out
}

// changedFields builds the edit-path payload: only fields whose current
// value differs from the initial snapshot, excluding file fields.
func changedFields(m *meta.EntityMeta, values, initial map[string]any) map[string]any {
	out := make(map[string]any)
	for _, f := range m.ScalarFields() {
		if f.Type == meta.TypeFile {
			continue
		}
		cur, old := values[f.Name], initial[f.Name]
		if !valueEqual(&f, cur, old) {
			out[f.Name] = cur
		}
	}
	return out
}

// valueEqual compares a field's current and initial values. Reference
// picks are freshly constructed option objects, so identity or even
// field-for-field equality of the map is the wrong test; they are
// normalized to the referenced id before comparing. Everything else is
// deep equality.
func valueEqual(f *meta.FieldMeta, a, b any) bool {
	if f.IsScalarRef() {
		return reflect.DeepEqual(meta.RefID(a), meta.RefID(b))
	}
	return reflect.DeepEqual(a, b)
}

// isEmpty reports whether a value is absent for payload purposes: nil
// or the empty string. False and zero are real values.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}
