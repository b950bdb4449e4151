package table

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/matthewbaird/metaform/internal/meta"
)

// SortDir is the active sort direction for the sort column.
type SortDir int

const (
	SortAsc SortDir = iota
	SortDesc
)

// PageSizes are the selectable rows-per-page values.
var PageSizes = []int{10, 25, 50, 100}

// DefaultPageSize is the initial rows-per-page.
const DefaultPageSize = 10

// emptyCell is rendered for nil and missing values.
const emptyCell = "—"

// Action is a per-row action exposed alongside the data columns.
type Action struct {
	Name string
	// Enabled gates the action per row; nil means always enabled.
	Enabled func(meta.Record) bool
	Run     func(meta.Record) error
}

// Table is the generic client-side data table: it holds the full row
// set and applies search, filters, sort, and pagination on read. All
// state mutations reset or preserve the current page per the usual
// list-view rules: anything that changes the result set snaps back to
// page one, sorting does not.
//
// Table is not safe for concurrent use; it models a single view.
type Table struct {
	columns    []Column
	searchable []string
	rows       []meta.Record
	actions    []Action

	search   string
	filters  map[string]string
	sortCol  string
	sortDir  SortDir
	page     int
	pageSize int

	hidden map[string]bool
}

// New creates a table over the derived columns and row set.
func New(columns []Column, searchable []string, rows []meta.Record) *Table {
	return &Table{
		columns:    columns,
		searchable: searchable,
		rows:       rows,
		filters:    make(map[string]string),
		hidden:     make(map[string]bool),
		page:       1,
		pageSize:   DefaultPageSize,
	}
}

// SetRows replaces the row set, keeping search/filter/sort state but
// resetting to page one.
func (t *Table) SetRows(rows []meta.Record) {
	t.rows = rows
	t.page = 1
}

// AddAction registers a row action.
func (t *Table) AddAction(a Action) {
	t.actions = append(t.actions, a)
}

// Actions returns the actions enabled for the given row, in
// registration order.
func (t *Table) Actions(row meta.Record) []Action {
	out := make([]Action, 0, len(t.actions))
	for _, a := range t.actions {
		if a.Enabled == nil || a.Enabled(row) {
			out = append(out, a)
		}
	}
	return out
}

// ── Search and filters ──

// SetSearch sets the free-text query and resets to page one. Matching
// is case-insensitive substring across all searchable fields (OR).
func (t *Table) SetSearch(q string) {
	t.search = q
	t.page = 1
}

// Search returns the active free-text query.
func (t *Table) Search() string { return t.search }

// SetFilter sets an exact-match filter on a column and resets to page
// one. An empty value clears the filter.
func (t *Table) SetFilter(column, value string) {
	if value == "" {
		delete(t.filters, column)
	} else {
		t.filters[column] = value
	}
	t.page = 1
}

// Filter returns the active filter value for a column, "" when unset.
func (t *Table) Filter(column string) string { return t.filters[column] }

// ClearFilters removes every filter and the search query.
func (t *Table) ClearFilters() {
	t.filters = make(map[string]string)
	t.search = ""
	t.page = 1
}

// ── Sorting ──

// ToggleSort cycles the sort state for a column: first click sorts
// ascending, second descending, third back to ascending. Switching to a
// different column starts at ascending. The current page is preserved.
func (t *Table) ToggleSort(column string) {
	col := t.column(column)
	if col == nil || !col.Sortable {
		return
	}
	if t.sortCol == column {
		if t.sortDir == SortAsc {
			t.sortDir = SortDesc
		} else {
			t.sortDir = SortAsc
		}
		return
	}
	t.sortCol = column
	t.sortDir = SortAsc
}

// Sort returns the active sort column ("" when unsorted) and direction.
func (t *Table) Sort() (string, SortDir) { return t.sortCol, t.sortDir }

// ── Pagination ──

// SetPageSize changes rows-per-page and resets to page one. Sizes
// outside PageSizes are ignored.
func (t *Table) SetPageSize(n int) {
	for _, s := range PageSizes {
		if s == n {
			t.pageSize = n
			t.page = 1
			return
		}
	}
}

// PageSize returns the active rows-per-page.
func (t *Table) PageSize() int { return t.pageSize }

// SetPage moves to the given 1-based page, clamped to the valid range.
func (t *Table) SetPage(p int) {
	last := t.PageCount()
	if p < 1 {
		p = 1
	}
	if p > last {
		p = last
	}
	t.page = p
}

// Page returns the current 1-based page.
func (t *Table) Page() int { return t.page }

// PageCount returns the number of pages for the current result set,
// at least one.
func (t *Table) PageCount() int {
	n := len(t.Matching())
	if n == 0 {
		return 1
	}
	return (n + t.pageSize - 1) / t.pageSize
}

// PageButtons returns up to five page numbers centered on the current
// page, clamped to the valid range.
func (t *Table) PageButtons() []int {
	last := t.PageCount()
	lo := t.page - 2
	hi := t.page + 2
	if lo < 1 {
		hi += 1 - lo
		lo = 1
	}
	if hi > last {
		lo -= hi - last
		hi = last
	}
	if lo < 1 {
		lo = 1
	}
	out := make([]int, 0, hi-lo+1)
	for p := lo; p <= hi; p++ {
		out = append(out, p)
	}
	return out
}

// ── Column visibility ──

// SetColumnVisible toggles a column on or off.
func (t *Table) SetColumnVisible(name string, visible bool) {
	if t.column(name) == nil {
		return
	}
	t.hidden[name] = !visible
}

// VisibleColumns returns the columns currently shown, in schema order.
func (t *Table) VisibleColumns() []Column {
	out := make([]Column, 0, len(t.columns))
	for _, c := range t.columns {
		visible := c.Visible
		if forced, ok := t.hidden[c.Name]; ok {
			visible = !forced
		}
		if visible {
			out = append(out, c)
		}
	}
	return out
}

// Columns returns every derived column, shown or not.
func (t *Table) Columns() []Column { return t.columns }

func (t *Table) column(name string) *Column {
	for i := range t.columns {
		if t.columns[i].Name == name {
			return &t.columns[i]
		}
	}
	return nil
}

// ── Result set ──

// Matching returns the rows surviving search and filters, sorted.
func (t *Table) Matching() []meta.Record {
	out := make([]meta.Record, 0, len(t.rows))
	for _, row := range t.rows {
		if t.matches(row) {
			out = append(out, row)
		}
	}
	t.sortRows(out)
	return out
}

// Rows returns the current page of the result set.
func (t *Table) Rows() []meta.Record {
	all := t.Matching()
	lo := (t.page - 1) * t.pageSize
	if lo >= len(all) {
		return nil
	}
	hi := lo + t.pageSize
	if hi > len(all) {
		hi = len(all)
	}
	return all[lo:hi]
}

// Total returns the size of the filtered result set.
func (t *Table) Total() int { return len(t.Matching()) }

func (t *Table) matches(row meta.Record) bool {
	for name, want := range t.filters {
		col := t.column(name)
		if col == nil {
			continue
		}
		if t.CellValue(row, *col) != want {
			return false
		}
	}
	if t.search == "" {
		return true
	}
	q := strings.ToLower(t.search)
	for _, name := range t.searchable {
		col := t.column(name)
		if col == nil {
			continue
		}
		if strings.Contains(strings.ToLower(t.CellValue(row, *col)), q) {
			return true
		}
	}
	return false
}

func (t *Table) sortRows(rows []meta.Record) {
	if t.sortCol == "" {
		return
	}
	col := t.column(t.sortCol)
	if col == nil {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := compareCell(rows[i][col.Name], rows[j][col.Name], *col)
		if t.sortDir == SortDesc {
			return c > 0
		}
		return c < 0
	})
}

// CellValue renders a row value for a column as display text: ref
// values unwrap to their display key, booleans map to Yes/No, nil and
// missing values map to the empty-cell marker.
func (t *Table) CellValue(row meta.Record, col Column) string {
	v, ok := row[col.Name]
	if !ok || v == nil {
		return emptyCell
	}
	switch col.Type {
	case meta.TypeRefEntity:
		if label := meta.RefLabel(v, col.DisplayKey); label != "" {
			return label
		}
		return emptyCell
	case meta.TypeBoolean:
		if b, ok := v.(bool); ok && b {
			return "Yes"
		}
		return "No"
	}
	switch x := v.(type) {
	case string:
		if x == "" {
			return emptyCell
		}
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// compareCell orders two raw cell values: numbers numerically, ref
// values by label, everything else by display text. nil sorts first.
func compareCell(a, b any, col Column) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := cellText(a, col), cellText(b, col)
	return strings.Compare(strings.ToLower(as), strings.ToLower(bs))
}

func cellText(v any, col Column) string {
	if col.Type == meta.TypeRefEntity {
		return meta.RefLabel(v, col.DisplayKey)
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}
