// Package meta defines the entity metadata model that drives every other
// component: forms, tables, and payload construction are all derived from
// an EntityMeta, never from entity-specific code.
//
// The metadata is server-supplied (see internal/schema) and arrives as
// JSON from the `GET /{entity}s/_metainfo` endpoint, or from the bundled
// CUE catalog when the backend is unreachable.
package meta

import (
	"encoding/json"
	"fmt"
)

// FieldType is the logical type of a field value.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeNumber    FieldType = "number"
	TypeDecimal   FieldType = "decimal"
	TypeBoolean   FieldType = "boolean"
	TypeEnum      FieldType = "enum"
	TypeDate      FieldType = "date"
	TypeDateTime  FieldType = "datetime"
	TypeRefEntity FieldType = "ref_entity"
	TypeFile      FieldType = "file"
	TypeJSON      FieldType = "json"
)

// DisplayType is the presentation hint for a field, independent of its
// logical type: an enum and a ref_entity both render as DisplayDropdown
// but draw options from different sources.
//
// The set is closed. Unknown wire values parse to DisplaySingleLine so a
// newer backend never breaks an older console.
type DisplayType int

const (
	DisplaySingleLine DisplayType = iota
	DisplayMultiLine
	DisplayEmail
	DisplayPhone
	DisplayNumber
	DisplayDecimal
	DisplayCheckbox
	DisplayDatePicker
	DisplayDateTimePicker
	DisplayDropdown
	DisplayFileUpload
	DisplayJSONEditor
	DisplayColorPicker
)

var displayTypeNames = map[DisplayType]string{
	DisplaySingleLine:     "Single Line",
	DisplayMultiLine:      "Multi Line",
	DisplayEmail:          "Email",
	DisplayPhone:          "Phone",
	DisplayNumber:         "Number",
	DisplayDecimal:        "Decimal",
	DisplayCheckbox:       "Checkbox",
	DisplayDatePicker:     "Date Picker",
	DisplayDateTimePicker: "Date Time Picker",
	DisplayDropdown:       "Dropdown",
	DisplayFileUpload:     "File Upload",
	DisplayJSONEditor:     "JSON Editor",
	DisplayColorPicker:    "Color Picker",
}

var displayTypeValues = func() map[string]DisplayType {
	m := make(map[string]DisplayType, len(displayTypeNames))
	for dt, name := range displayTypeNames {
		m[name] = dt
	}
	return m
}()

// ParseDisplayType maps a wire label to its DisplayType. Unrecognized
// labels fall back to DisplaySingleLine rather than failing.
func ParseDisplayType(s string) DisplayType {
	if dt, ok := displayTypeValues[s]; ok {
		return dt
	}
	return DisplaySingleLine
}

// String returns the wire label.
func (dt DisplayType) String() string {
	if name, ok := displayTypeNames[dt]; ok {
		return name
	}
	return displayTypeNames[DisplaySingleLine]
}

// MarshalJSON encodes the display type as its wire label.
func (dt DisplayType) MarshalJSON() ([]byte, error) {
	return json.Marshal(dt.String())
}

// UnmarshalJSON decodes a wire label, degrading unknown values to
// DisplaySingleLine.
func (dt *DisplayType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*dt = ParseDisplayType(s)
	return nil
}

// Constraints is the optional per-field constraint bag.
type Constraints struct {
	// Values is the closed option set for enum fields.
	Values []string `json:"values,omitempty"`
	// Default is the initial value for boolean fields.
	Default any `json:"default,omitempty"`
	// AllowedTypes lists accepted file extensions (advisory only).
	AllowedTypes []string `json:"allowed_types,omitempty"`
	// MaxSizeMB caps upload size (advisory only).
	MaxSizeMB float64 `json:"max_size_mb,omitempty"`
}

// RelationalMapping describes where a ref_entity field points and how
// child queries are scoped.
type RelationalMapping struct {
	// RefEntity is the target entity name (singular, lowercase).
	RefEntity string `json:"refEntity"`
	// MappedBy is the foreign-key field on the child used to scope
	// queries by parent id.
	MappedBy string `json:"mappedBy,omitempty"`
	// Fetch is a strategy hint ("eager", "lazy"); informational.
	Fetch string `json:"fetch,omitempty"`
}

// FieldMeta describes one attribute of an entity.
type FieldMeta struct {
	// Name is the unique key, used as both form-state key and payload key.
	Name        string      `json:"name"`
	Type        FieldType   `json:"type"`
	DisplayType DisplayType `json:"displayType"`
	// Nullable false means the field is required in the form.
	Nullable bool `json:"nullable"`
	// PartialField true puts the field in the primary form section and
	// makes it a default-visible table column.
	PartialField bool `json:"partialField"`
	// Collection true marks a one-to-many relationship; never a scalar
	// control, never a table column of its parent.
	Collection bool `json:"collection,omitempty"`
	// Standalone is only meaningful when Collection is true: the
	// relationship is surfaced as an independently fetched sub-tab.
	Standalone  bool               `json:"standalone,omitempty"`
	Constraints *Constraints       `json:"constraints,omitempty"`
	Relational  *RelationalMapping `json:"relationalMapping,omitempty"`
	// DisplayKey is the attribute of a referenced record shown as its
	// label. Empty means "name".
	DisplayKey string `json:"displayKey,omitempty"`
}

// Label returns the human-readable label for the field.
func (f *FieldMeta) Label() string {
	return FieldLabel(f.Name)
}

// RefEntity returns the referenced entity name, or "" for non-ref fields.
func (f *FieldMeta) RefEntity() string {
	if f.Relational == nil {
		return ""
	}
	return f.Relational.RefEntity
}

// DisplayKeyOrDefault returns the label attribute of referenced records.
func (f *FieldMeta) DisplayKeyOrDefault() string {
	if f.DisplayKey != "" {
		return f.DisplayKey
	}
	return "name"
}

// IsScalarRef reports whether the field is a single-valued reference,
// i.e. rendered as a lookup dropdown rather than a child sub-table.
func (f *FieldMeta) IsScalarRef() bool {
	return f.Type == TypeRefEntity && !f.Collection
}

// EnumValues returns the closed option set for enum fields, or nil.
func (f *FieldMeta) EnumValues() []string {
	if f.Constraints == nil {
		return nil
	}
	return f.Constraints.Values
}

// BoolDefault returns the default for boolean fields, false when absent.
func (f *FieldMeta) BoolDefault() bool {
	if f.Constraints == nil || f.Constraints.Default == nil {
		return false
	}
	b, _ := f.Constraints.Default.(bool)
	return b
}

// EntityMeta describes one entity type. Field order is display order.
type EntityMeta struct {
	Entity     string      `json:"entity"`
	PrimaryKey string      `json:"primaryKey"`
	Fields     []FieldMeta `json:"fields"`
}

// Field returns the named field, or nil.
func (m *EntityMeta) Field(name string) *FieldMeta {
	for i := range m.Fields {
		if m.Fields[i].Name == name {
			return &m.Fields[i]
		}
	}
	return nil
}

// ScalarFields returns the fields that can carry a scalar form value,
// excluding collection relationships.
func (m *EntityMeta) ScalarFields() []FieldMeta {
	out := make([]FieldMeta, 0, len(m.Fields))
	for _, f := range m.Fields {
		if f.Collection {
			continue
		}
		out = append(out, f)
	}
	return out
}

// CollectionFields returns the one-to-many relationship fields.
func (m *EntityMeta) CollectionFields() []FieldMeta {
	var out []FieldMeta
	for _, f := range m.Fields {
		if f.Collection {
			out = append(out, f)
		}
	}
	return out
}

// Validate checks the structural invariants: non-empty entity name,
// unique field names, ref_entity fields carry a relational mapping, and
// collection fields are ref_entity typed.
func (m *EntityMeta) Validate() error {
	if m.Entity == "" {
		return fmt.Errorf("entity meta: missing entity name")
	}
	if len(m.Fields) == 0 {
		return fmt.Errorf("entity meta %q: no fields", m.Entity)
	}
	seen := make(map[string]bool, len(m.Fields))
	for _, f := range m.Fields {
		if f.Name == "" {
			return fmt.Errorf("entity meta %q: field with empty name", m.Entity)
		}
		if seen[f.Name] {
			return fmt.Errorf("entity meta %q: duplicate field %q", m.Entity, f.Name)
		}
		seen[f.Name] = true
		if f.Type == TypeRefEntity && (f.Relational == nil || f.Relational.RefEntity == "") {
			return fmt.Errorf("entity meta %q: ref field %q missing relationalMapping.refEntity", m.Entity, f.Name)
		}
		if f.Collection && f.Type != TypeRefEntity {
			return fmt.Errorf("entity meta %q: collection field %q must be ref_entity, got %q", m.Entity, f.Name, f.Type)
		}
	}
	return nil
}

// Record is a schema-shaped mapping from field name to value. Values for
// scalar ref_entity fields are {id, displayKey} pairs, never bare
// foreign keys.
type Record = map[string]any

// RefID extracts the id of a reference value: a picked option map yields
// its "id" entry, anything else is returned as-is. Used for diffing and
// payload normalization, where two freshly constructed option objects
// must compare equal when they point at the same record.
func RefID(v any) any {
	if m, ok := v.(map[string]any); ok {
		if id, ok := m["id"]; ok {
			return id
		}
	}
	return v
}

// RefLabel extracts the display label of a reference value using the
// given display key. Returns "" when the value is not a picked option or
// the key is absent.
func RefLabel(v any, displayKey string) string {
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	if s, ok := m[displayKey].(string); ok {
		return s
	}
	return ""
}
