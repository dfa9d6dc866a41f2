package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/erdview/internal/schema"
	"github.com/leapstack-labs/erdview/internal/store"
	"github.com/spf13/cobra"
)

// NewSchemasCommand creates the schemas command.
func NewSchemasCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List the stored schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewStoreContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			names, err := cmdCtx.Store.Schemas(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range schema.SortFold(names) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "tables <schema>",
		Short: "List the tables of a schema",
		Long: `List the tables of a schema with their column count, outgoing foreign
keys and incoming references.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewStoreContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			names, err := cmdCtx.Store.Tables(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(names) == 0 {
				return fmt.Errorf("schema %s has no tables", args[0])
			}
			names = schema.SortFold(names)
			if plain {
				for _, name := range names {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}
			return renderTables(cmd, cmdCtx.Store, args[0], names)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Print table names only")

	return cmd
}

func renderTables(cmd *cobra.Command, s store.Store, schemaName string, names []string) error {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Table", "Columns", "References", "Referenced by"})

	for _, name := range names {
		cols, err := s.Columns(cmd.Context(), schema.Table{Schema: schemaName, Name: name})
		if err != nil {
			return err
		}
		var fks, pks int
		for _, c := range cols {
			fks += len(c.FKReferences)
			pks += len(c.PKReferences)
		}
		t.AppendRow(table.Row{name, len(cols), fks, pks})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d tables", len(names))})

	t.Render()
	return nil
}
