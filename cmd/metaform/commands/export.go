package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/metaform/internal/api"
	"github.com/matthewbaird/metaform/internal/meta"
	"github.com/matthewbaird/metaform/internal/reference"
	"github.com/matthewbaird/metaform/internal/table"
)

var (
	exportOut     string
	exportSearch  string
	exportFilters []string
	exportSort    string
)

var exportCmd = &cobra.Command{
	Use:   "export <entity>",
	Short: "Export an entity's rows as CSV",
	Long: `Fetch an entity's rows and write them as CSV, applying the same
search, filter, and sort pipeline the console's table uses.

Examples:
  metaform export dealers --out dealers.csv
  metaform export tasks --filter status=Open --sort title`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&exportSearch, "search", "", "free-text search")
	exportCmd.Flags().StringArrayVar(&exportFilters, "filter", nil, "column filter as name=value (repeatable)")
	exportCmd.Flags().StringVar(&exportSort, "sort", "", "sort column")
}

func runExport(cmd *cobra.Command, args []string) error {
	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.log.Sync()

	entity := strings.TrimSuffix(args[0], "s")
	m, err := st.provider.EntityMeta(cmd.Context(), entity)
	if err != nil {
		return err
	}

	raw, err := st.client.Get(cmd.Context(), meta.Plural(entity))
	if err != nil {
		return err
	}
	rows, err := api.DecodeRows(raw)
	if err != nil {
		return err
	}

	resolver := reference.NewResolver(st.client, st.catalog.RefOptions, st.log)
	cols, searchable := table.DeriveColumns(cmd.Context(), m, table.DeriveOptions{Resolver: resolver})

	tbl := table.New(cols, searchable, rows)
	tbl.SetSearch(exportSearch)
	for _, f := range exportFilters {
		name, value, ok := strings.Cut(f, "=")
		if !ok {
			return fmt.Errorf("malformed --filter %q, want name=value", f)
		}
		tbl.SetFilter(name, value)
	}
	if exportSort != "" {
		tbl.ToggleSort(exportSort)
	}

	out := cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := tbl.ExportCSV(out); err != nil {
		return err
	}
	if exportOut != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", tbl.Total(), exportOut)
	}
	return nil
}
