// Package table derives tabular column sets from entity metadata and
// provides the generic client-side data table over them: search,
// per-column filtering, sorting, pagination, CSV export/import, and row
// actions. The table knows nothing about entity semantics — everything
// it does is driven by the derived columns.
package table

import (
	"context"

	"github.com/matthewbaird/metaform/internal/meta"
	"github.com/matthewbaird/metaform/internal/reference"
)

// FilterKind classifies a column's filter control.
type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterEnum // closed dropdown from constraints.values
	FilterRef  // dropdown from the distinct-values endpoint
	FilterBool // binary Yes/No dropdown
)

// BadgeStyle names the rendering style for a badge cell value.
type BadgeStyle string

const (
	BadgeSuccess BadgeStyle = "success"
	BadgeWarning BadgeStyle = "warning"
	BadgeError   BadgeStyle = "error"
	BadgeSurface BadgeStyle = "surface"
)

// badgeStyles is the fixed label→style lookup applied to status and
// priority columns. Unmatched values render unstyled.
var badgeStyles = map[string]BadgeStyle{
	"Active":      BadgeSuccess,
	"Done":        BadgeSuccess,
	"Open":        BadgeSurface,
	"Pending":     BadgeWarning,
	"In Progress": BadgeWarning,
	"Suspended":   BadgeError,
	"Closed":      BadgeSurface,
	"Low":         BadgeSurface,
	"Medium":      BadgeWarning,
	"High":        BadgeError,
}

// badgeFields are the enum columns governed by the badge lookup.
var badgeFields = map[string]bool{
	"status":   true,
	"priority": true,
}

// Column is one derived table column.
type Column struct {
	Name     string
	Label    string
	Type     meta.FieldType
	Visible  bool
	Sortable bool

	Filter FilterKind
	// EnumValues backs FilterEnum dropdowns.
	EnumValues []string
	// RefOptions backs FilterRef dropdowns, loaded via the resolver.
	RefOptions []meta.Record
	// DisplayKey unwraps ref cell values to their label.
	DisplayKey string
	// Badged columns render their value as a styled badge.
	Badged bool
}

// BadgeFor returns the style for a badge value, "" when unmatched.
func (c *Column) BadgeFor(value string) BadgeStyle {
	if !c.Badged {
		return ""
	}
	return badgeStyles[value]
}

// DeriveOptions tune column derivation.
type DeriveOptions struct {
	// Hidden overrides the default visibility of named fields.
	Hidden map[string]bool
	// ParentEntity is the plural-path owner used for the per-field
	// distinct-values filter endpoint.
	ParentEntity string
	// Resolver populates ref filter option lists; nil leaves them empty.
	Resolver *reference.Resolver
}

// DeriveColumns maps a schema to its column set and the names of the
// free-text searchable fields.
//
// Collection relationships, files, json blobs, and long free-text
// fields never become columns. Every remaining field is a column;
// default visibility follows partialField, but hidden columns stay
// toggleable.
func DeriveColumns(ctx context.Context, m *meta.EntityMeta, opts DeriveOptions) ([]Column, []string) {
	parent := opts.ParentEntity
	if parent == "" {
		parent = m.Entity
	}

	var cols []Column
	var searchable []string
	for _, f := range m.Fields {
		if f.Collection || f.Type == meta.TypeFile || f.Type == meta.TypeJSON {
			continue
		}
		if f.DisplayType == meta.DisplayMultiLine {
			continue
		}

		col := Column{
			Name:       f.Name,
			Label:      f.Label(),
			Type:       f.Type,
			Visible:    f.PartialField && !opts.Hidden[f.Name],
			Sortable:   true,
			DisplayKey: f.DisplayKeyOrDefault(),
		}

		switch f.Type {
		case meta.TypeEnum:
			col.Filter = FilterEnum
			col.EnumValues = f.EnumValues()
			col.Badged = badgeFields[f.Name]
		case meta.TypeRefEntity:
			col.Filter = FilterRef
			if opts.Resolver != nil {
				col.RefOptions = opts.Resolver.ResolveDistinct(ctx, f.Name, f.RefEntity(), parent)
			}
		case meta.TypeBoolean:
			col.Filter = FilterBool
			// True/false ordering carries no useful meaning.
			col.Sortable = false
		}

		cols = append(cols, col)

		if searchableType(f.Type) {
			searchable = append(searchable, f.Name)
		}
	}
	return cols, searchable
}

// searchableType reports whether free-text search scans the field:
// strings (including email/phone display variants), enums, and
// reference labels.
func searchableType(t meta.FieldType) bool {
	switch t {
	case meta.TypeString, meta.TypeEnum, meta.TypeRefEntity:
		return true
	default:
		return false
	}
}
