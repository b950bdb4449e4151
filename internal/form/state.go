package form

import "github.com/matthewbaird/metaform/internal/meta"

// State holds one form instance's values, the initial snapshot taken at
// seed time (the baseline for diff-based updates), and per-field
// validation errors.
//
// Forms run on the single event-driven goroutine of their screen, so
// State is not synchronized; reference option loading happens in the
// resolver, not here.
type State struct {
	values  map[string]any
	initial map[string]any
	errors  map[string]string
}

// NewState creates an empty State.
func NewState() *State {
	return &State{
		values:  make(map[string]any),
		initial: make(map[string]any),
		errors:  make(map[string]string),
	}
}

// Seed populates values from an existing record (nil for the create
// path), applies checkbox defaults for booleans the record does not
// carry, and snapshots the result as the diff baseline.
func (s *State) Seed(m *meta.EntityMeta, rec meta.Record) {
	for _, f := range m.ScalarFields() {
		if rec != nil {
			if v, ok := rec[f.Name]; ok {
				s.values[f.Name] = v
				continue
			}
		}
		if f.Type == meta.TypeBoolean {
			s.values[f.Name] = f.BoolDefault()
		}
	}
	s.initial = make(map[string]any, len(s.values))
	for k, v := range s.values {
		s.initial[k] = v
	}
}

// Value returns the current value for a field, nil when unset.
func (s *State) Value(name string) any {
	return s.values[name]
}

// Set writes a field value.
func (s *State) Set(name string, v any) {
	s.values[name] = v
}

// Values returns the live value map.
func (s *State) Values() map[string]any {
	return s.values
}

// Initial returns the snapshot taken at seed time.
func (s *State) Initial() map[string]any {
	return s.initial
}

// SetError records a validation message for a field.
func (s *State) SetError(name, msg string) {
	s.errors[name] = msg
}

// ClearError removes a field's validation message.
func (s *State) ClearError(name string) {
	delete(s.errors, name)
}

// FieldError returns the validation message for a field, "" when clean.
func (s *State) FieldError(name string) string {
	return s.errors[name]
}

// Errors returns all current validation messages.
func (s *State) Errors() map[string]string {
	return s.errors
}
