package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/leapstack-labs/erdview/internal/cli/config"
	"github.com/leapstack-labs/erdview/internal/introspect"
	"github.com/leapstack-labs/erdview/internal/loader"
	"github.com/leapstack-labs/erdview/internal/schema"
	"github.com/spf13/cobra"
)

// NewIntrospectCommand creates the introspect command.
func NewIntrospectCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Read a schema from a live database",
		Long: `Read tables, columns and foreign keys from a database catalog and load
them into the schema store, or write them to a dump file with --out.

Supported sources: ` + strings.Join(introspect.ListSources(), ", ") + `.
Connection settings come from the source section of erdview.yaml, from
ERDVIEW_SOURCE_* variables or from the flags below.`,
		Example: `  # Load two schemas of a Postgres database
  erdview introspect --source postgres --dsn postgres://erd@db/app --schemas public,billing

  # Write a SQLite catalog to a dump file instead
  erdview introspect --source sqlite --source-path app.db --out schema.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIntrospect(cmd, out)
		},
	}

	cmd.Flags().String("source", "", "Source type ("+strings.Join(introspect.ListSources(), "|")+")")
	cmd.Flags().String("dsn", "", "Connection string")
	cmd.Flags().String("source-path", "", "Database file (sqlite, duckdb)")
	cmd.Flags().StringSlice("schemas", nil, "Schemas to read (default: all)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write a JSON dump here instead of loading it")

	_ = cmd.RegisterFlagCompletionFunc("source", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return introspect.ListSources(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runIntrospect(cmd *cobra.Command, out string) error {
	cfg := getConfig()
	if cfg.Source.Type == "" {
		return fmt.Errorf("no source configured: set --source or source.type")
	}

	logger := config.GetLogger(cmd.Context())
	src, err := introspect.Open(cmd.Context(), cfg.Source, logger)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	d, err := src.Introspect(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to introspect %s: %w", src.Name(), err)
	}

	if out != "" {
		return writeDump(cmd, d, out)
	}

	cmdCtx, cleanup, err := NewStoreContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	load, err := loader.New(cmdCtx.Store, cmdCtx.Logger).Load(cmd.Context(), d, src.Name())
	if err != nil {
		return err
	}
	return printLoadSummary(cmd, cmdCtx.Store, load)
}

func writeDump(cmd *cobra.Command, d schema.Dump, path string) error {
	f, err := os.Create(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := schema.EncodeDump(f, d); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d tables in %d schemas to %s\n", d.TableCount(), len(d), path)
	return nil
}
