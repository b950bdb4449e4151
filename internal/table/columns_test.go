package table

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/metaform/internal/meta"
)

func taskMeta() *meta.EntityMeta {
	return &meta.EntityMeta{
		Entity:     "task",
		PrimaryKey: "id",
		Fields: []meta.FieldMeta{
			{Name: "id", Type: meta.TypeString, DisplayType: meta.DisplaySingleLine},
			{Name: "title", Type: meta.TypeString, DisplayType: meta.DisplaySingleLine, PartialField: true, Nullable: false},
			{Name: "description", Type: meta.TypeString, DisplayType: meta.DisplayMultiLine},
			{Name: "status", Type: meta.TypeEnum, DisplayType: meta.DisplayDropdown, PartialField: true,
				Constraints: &meta.Constraints{Values: []string{"Open", "In Progress", "Done"}}},
			{Name: "assignee", Type: meta.TypeRefEntity, DisplayType: meta.DisplayDropdown, PartialField: true,
				Relational: &meta.RelationalMapping{RefEntity: "user"}},
			{Name: "archived", Type: meta.TypeBoolean, DisplayType: meta.DisplayCheckbox, PartialField: true},
			{Name: "hours", Type: meta.TypeNumber, DisplayType: meta.DisplayNumber, PartialField: true},
			{Name: "due_date", Type: meta.TypeDate, DisplayType: meta.DisplayDatePicker},
			{Name: "attachment", Type: meta.TypeFile, DisplayType: meta.DisplayFileUpload},
			{Name: "payload", Type: meta.TypeJSON, DisplayType: meta.DisplayJSONEditor},
			{Name: "subtasks", Type: meta.TypeRefEntity, DisplayType: meta.DisplayDropdown, Collection: true,
				Relational: &meta.RelationalMapping{RefEntity: "task", MappedBy: "parent_id"}},
		},
	}
}

func colNames(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func TestDeriveColumns_Exclusions(t *testing.T) {
	cols, _ := DeriveColumns(context.Background(), taskMeta(), DeriveOptions{})

	names := colNames(cols)
	assert.Equal(t, []string{"id", "title", "status", "assignee", "archived", "hours", "due_date"}, names)
	assert.NotContains(t, names, "description") // multi-line
	assert.NotContains(t, names, "attachment")
	assert.NotContains(t, names, "payload")
	assert.NotContains(t, names, "subtasks")
}

func TestDeriveColumns_Visibility(t *testing.T) {
	cols, _ := DeriveColumns(context.Background(), taskMeta(), DeriveOptions{
		Hidden: map[string]bool{"hours": true},
	})
	byName := make(map[string]Column)
	for _, c := range cols {
		byName[c.Name] = c
	}

	assert.False(t, byName["id"].Visible, "non-partial fields start hidden")
	assert.False(t, byName["due_date"].Visible)
	assert.True(t, byName["title"].Visible)
	assert.False(t, byName["hours"].Visible, "explicit hide overrides partialField")
}

func TestDeriveColumns_Filters(t *testing.T) {
	cols, _ := DeriveColumns(context.Background(), taskMeta(), DeriveOptions{})
	byName := make(map[string]Column)
	for _, c := range cols {
		byName[c.Name] = c
	}

	require.Equal(t, FilterEnum, byName["status"].Filter)
	assert.Equal(t, []string{"Open", "In Progress", "Done"}, byName["status"].EnumValues)
	assert.True(t, byName["status"].Badged)

	assert.Equal(t, FilterRef, byName["assignee"].Filter)
	assert.Equal(t, "name", byName["assignee"].DisplayKey)

	assert.Equal(t, FilterBool, byName["archived"].Filter)
	assert.False(t, byName["archived"].Sortable)

	assert.Equal(t, FilterNone, byName["title"].Filter)
	assert.True(t, byName["title"].Sortable)
}

func TestDeriveColumns_Searchable(t *testing.T) {
	_, searchable := DeriveColumns(context.Background(), taskMeta(), DeriveOptions{})
	assert.Equal(t, []string{"id", "title", "status", "assignee"}, searchable)
}

func TestColumn_BadgeFor(t *testing.T) {
	c := Column{Name: "status", Badged: true}
	assert.Equal(t, BadgeSuccess, c.BadgeFor("Done"))
	assert.Equal(t, BadgeWarning, c.BadgeFor("In Progress"))
	assert.Equal(t, BadgeStyle(""), c.BadgeFor("Bespoke"))

	plain := Column{Name: "kind"}
	assert.Equal(t, BadgeStyle(""), plain.BadgeFor("Done"))
}
