package commands

import (
	"fmt"

	"github.com/leapstack-labs/erdview/internal/loader"
	"github.com/leapstack-labs/erdview/internal/store"
	"github.com/spf13/cobra"
)

// LoadOptions holds options for the load command.
type LoadOptions struct {
	CSV  bool
	Refs string
}

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	opts := &LoadOptions{}

	cmd := &cobra.Command{
		Use:   "load <dump>",
		Short: "Load a schema dump into the schema store",
		Long: `Replace the stored schema with the contents of a dump file.

A dump is a JSON or YAML list of schemas, each with its tables and their
ordered columns. Only fk_references are required: PK back-references are
rebuilt on every load.

With --csv the argument is a semicolon separated catalog export of columns
(TABLE_SCHEMA;TABLE_NAME;COLUMN_NAME;DATA_TYPE;IS_NULLABLE) and --refs names
the matching export of foreign keys.`,
		Example: `  # Load a JSON dump
  erdview load schema.json

  # Load catalog exports
  erdview load --csv columns.csv --refs references.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.CSV, "csv", false, "Treat the argument as a CSV column export")
	cmd.Flags().StringVar(&opts.Refs, "refs", "", "CSV export of foreign keys (with --csv)")

	return cmd
}

func runLoad(cmd *cobra.Command, path string, opts *LoadOptions) error {
	if opts.Refs != "" && !opts.CSV {
		return fmt.Errorf("--refs requires --csv")
	}

	cmdCtx, cleanup, err := NewStoreContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	l := loader.New(cmdCtx.Store, cmdCtx.Logger)
	var load store.Load
	if opts.CSV {
		load, err = l.LoadCSV(cmd.Context(), path, opts.Refs)
	} else {
		load, err = l.LoadFile(cmd.Context(), path)
	}
	if err != nil {
		return err
	}

	return printLoadSummary(cmd, cmdCtx.Store, load)
}

// printLoadSummary reports what a load left in the store.
func printLoadSummary(cmd *cobra.Command, s store.Catalog, load store.Load) error {
	schemas, err := s.Schemas(cmd.Context())
	if err != nil {
		return err
	}
	tables := 0
	for _, name := range schemas {
		names, err := s.Tables(cmd.Context(), name)
		if err != nil {
			return err
		}
		tables += len(names)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d tables in %d schemas from %s\n", tables, len(schemas), load.Source)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Snapshot %s\n", load.ID)
	return nil
}
