package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/metaform/internal/reference"
	"github.com/matthewbaird/metaform/internal/table"
)

var columnsCmd = &cobra.Command{
	Use:   "columns <entity>",
	Short: "Show the table columns derived for an entity",
	Args:  cobra.ExactArgs(1),
	RunE:  runColumns,
}

func init() {
	rootCmd.AddCommand(columnsCmd)
}

func runColumns(cmd *cobra.Command, args []string) error {
	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.log.Sync()

	entity := args[0]
	m, err := st.provider.EntityMeta(cmd.Context(), entity)
	if err != nil {
		return err
	}

	resolver := reference.NewResolver(st.client, st.catalog.RefOptions, st.log)
	cols, searchable := table.DeriveColumns(cmd.Context(), m, table.DeriveOptions{Resolver: resolver})

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tLABEL\tTYPE\tVISIBLE\tSORTABLE\tFILTER")
	for _, c := range cols {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%v\t%s\n",
			c.Name, c.Label, c.Type, c.Visible, c.Sortable, filterName(c.Filter))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nsearchable: %v\n", searchable)
	return nil
}

func filterName(f table.FilterKind) string {
	switch f {
	case table.FilterEnum:
		return "enum"
	case table.FilterRef:
		return "ref"
	case table.FilterBool:
		return "bool"
	default:
		return "-"
	}
}
