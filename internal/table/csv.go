package table

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/matthewbaird/metaform/internal/meta"
)

// ExportCSV writes the current result set — every row surviving search
// and filters, in sort order, across all pages — as CSV. The header row
// carries the visible columns' labels; cells are the same display text
// the table renders, so ref values export as labels and booleans as
// Yes/No.
func (t *Table) ExportCSV(w io.Writer) error {
	cols := t.VisibleColumns()
	cw := csv.NewWriter(w)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Label
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("csv export: %w", err)
	}

	for _, row := range t.Matching() {
		rec := make([]string, len(cols))
		for i, c := range cols {
			cell := t.CellValue(row, c)
			if cell == emptyCell {
				cell = ""
			}
			rec[i] = cell
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("csv export: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ImportCSV parses CSV rows into records keyed by field name. The
// header row is matched against column labels (case-sensitive); headers
// that match no column are skipped. Short rows leave trailing fields
// unset; empty cells are unset rather than empty strings.
func (t *Table) ImportCSV(r io.Reader) ([]meta.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("csv import: read header: %w", err)
	}

	// header position → field name, "" when the label is unknown
	fields := make([]string, len(header))
	for i, label := range header {
		for _, c := range t.columns {
			if c.Label == label {
				fields[i] = c.Name
				break
			}
		}
	}

	var out []meta.Record
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv import: %w", err)
		}
		row := make(meta.Record)
		for i, cell := range rec {
			if i >= len(fields) || fields[i] == "" || cell == "" {
				continue
			}
			row[fields[i]] = cell
		}
		if len(row) > 0 {
			out = append(out, row)
		}
	}
	return out, nil
}
