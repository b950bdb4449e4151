package form

import (
	"encoding/json"

	"github.com/matthewbaird/metaform/internal/meta"
	"github.com/matthewbaird/metaform/internal/reference"
)

// ControlKind is the closed set of interactive control shapes. Dispatch
// is on DisplayType, with the field's logical type as a secondary
// discriminant only for dropdowns (closed enum list vs. open ref
// lookup) and checkbox defaulting.
type ControlKind int

const (
	ControlText ControlKind = iota
	ControlTextArea
	ControlCheckbox
	ControlDate
	ControlDateTime
	ControlSelect   // closed enum choice list
	ControlLookup   // ref_entity lookup, options from the resolver
	ControlFileList // accumulating file picker
	ControlJSON     // parse-on-change JSON editor
	ControlColor    // paired swatch + text input, one shared value
)

// kindFor maps a field to its control kind. Unrecognized display types
// degrade to plain text input — never an error.
func kindFor(f meta.FieldMeta) ControlKind {
	switch f.DisplayType {
	case meta.DisplayMultiLine:
		return ControlTextArea
	case meta.DisplayCheckbox:
		return ControlCheckbox
	case meta.DisplayDatePicker:
		return ControlDate
	case meta.DisplayDateTimePicker:
		return ControlDateTime
	case meta.DisplayDropdown:
		if f.Type == meta.TypeRefEntity {
			return ControlLookup
		}
		return ControlSelect
	case meta.DisplayFileUpload:
		return ControlFileList
	case meta.DisplayJSONEditor:
		return ControlJSON
	case meta.DisplayColorPicker:
		return ControlColor
	case meta.DisplaySingleLine, meta.DisplayEmail, meta.DisplayPhone,
		meta.DisplayNumber, meta.DisplayDecimal:
		return ControlText
	default:
		return ControlText
	}
}

// FileHandle identifies one selected file. Upload transport is handled
// by a separate flow; the form only tracks the selection list.
type FileHandle struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
}

// Control binds one field's metadata to the shared form state with the
// value coercions its kind requires.
type Control struct {
	Field    meta.FieldMeta
	Kind     ControlKind
	Label    string
	Required bool

	state    *State
	resolver *reference.Resolver
}

func newControl(f meta.FieldMeta, st *State, res *reference.Resolver) Control {
	return Control{
		Field:    f,
		Kind:     kindFor(f),
		Label:    f.Label(),
		Required: !f.Nullable,
		state:    st,
		resolver: res,
	}
}

// Value returns the control's current value. Text-shaped kinds coerce a
// missing value to "" so the control stays controlled; checkboxes fall
// back to the constraint default.
func (c *Control) Value() any {
	v := c.state.Value(c.Field.Name)
	switch c.Kind {
	case ControlText, ControlTextArea, ControlDate, ControlDateTime,
		ControlSelect, ControlColor:
		if v == nil {
			return ""
		}
	case ControlCheckbox:
		if b, ok := v.(bool); ok {
			return b
		}
		return c.Field.BoolDefault()
	}
	return v
}

// SetValue writes a new value through the kind's coercion rules.
func (c *Control) SetValue(v any) {
	name := c.Field.Name
	switch c.Kind {
	case ControlCheckbox:
		b, _ := v.(bool)
		c.state.Set(name, b)
	case ControlJSON:
		// Valid JSON replaces the stored object; invalid JSON is kept
		// as the raw string so keystrokes are never lost, and the next
		// edit re-attempts the parse.
		if s, ok := v.(string); ok {
			var parsed any
			if err := json.Unmarshal([]byte(s), &parsed); err == nil {
				c.state.Set(name, parsed)
			} else {
				c.state.Set(name, s)
			}
			return
		}
		c.state.Set(name, v)
	case ControlFileList:
		switch fh := v.(type) {
		case FileHandle:
			c.AddFiles(fh)
		case []FileHandle:
			c.AddFiles(fh...)
		default:
			c.state.Set(name, v)
		}
	default:
		c.state.Set(name, v)
	}
}

// Options returns the loaded reference options for a lookup control.
// Empty until the resolver's fetch for this field completes.
func (c *Control) Options() []meta.Record {
	if c.Kind != ControlLookup || c.resolver == nil {
		return nil
	}
	return c.resolver.Options(c.Field.Name)
}

// EnumOptions returns the closed value set for a select control.
func (c *Control) EnumOptions() []string {
	if c.Kind != ControlSelect {
		return nil
	}
	return c.Field.EnumValues()
}

// SelectOption stores a picked reference option. The whole {id,
// displayKey} pair is stored, never a bare id, so the label renders
// without a second lookup.
func (c *Control) SelectOption(opt meta.Record) {
	c.state.Set(c.Field.Name, opt)
}

// SelectedLabel returns the display label of the picked option, "" when
// nothing is picked.
func (c *Control) SelectedLabel() string {
	return meta.RefLabel(c.state.Value(c.Field.Name), c.Field.DisplayKeyOrDefault())
}

// Files returns the current selection list of a file control.
func (c *Control) Files() []FileHandle {
	fh, _ := c.state.Value(c.Field.Name).([]FileHandle)
	return fh
}

// AddFiles appends to the selection list; selections accumulate across
// events rather than replacing each other.
func (c *Control) AddFiles(files ...FileHandle) {
	c.state.Set(c.Field.Name, append(c.Files(), files...))
}

// RemoveFile drops one file by name from the selection list.
func (c *Control) RemoveFile(name string) {
	files := c.Files()
	kept := make([]FileHandle, 0, len(files))
	for _, f := range files {
		if f.Name != name {
			kept = append(kept, f)
		}
	}
	c.state.Set(c.Field.Name, kept)
}

// Err returns the field's current validation message.
func (c *Control) Err() string {
	return c.state.FieldError(c.Field.Name)
}

// Layout is the partition of an entity's controls for rendering: the
// primary grid, the collapsed "Additional Details" section, and file
// controls, which render in their own upload area. Collection fields
// never appear — they belong to the child sub-table UI.
type Layout struct {
	Primary   []Control
	Secondary []Control
	Files     []Control
}

// buildLayout partitions the schema's scalar fields by PartialField.
func buildLayout(m *meta.EntityMeta, st *State, res *reference.Resolver) Layout {
	var l Layout
	for _, f := range m.ScalarFields() {
		c := newControl(f, st, res)
		if f.Type == meta.TypeFile {
			l.Files = append(l.Files, c)
			continue
		}
		if f.PartialField {
			l.Primary = append(l.Primary, c)
		} else {
			l.Secondary = append(l.Secondary, c)
		}
	}
	return l
}
