package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/erdview/internal/store"
	"github.com/spf13/cobra"
)

// loadHistory is implemented by stores that keep a record of past loads.
type loadHistory interface {
	Loads(ctx context.Context, limit int) ([]store.Load, error)
}

// NewLoadsCommand creates the loads command.
func NewLoadsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "loads",
		Short: "Show the most recent schema loads",
		Long: `Show the most recent loads recorded by the schema store, newest first.
Only the sqlite store keeps a history; other stores report the current
snapshot.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewStoreContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			h, ok := cmdCtx.Store.(loadHistory)
			if !ok {
				snap, err := cmdCtx.Store.Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				if snap == "" {
					snap = "(nothing loaded)"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Current snapshot: %s\n", snap)
				return nil
			}

			loads, err := h.Loads(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(loads) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No loads recorded")
				return nil
			}
			renderLoads(cmd.OutOrStdout(), loads)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of loads to show")

	return cmd
}

// renderLoads prints the load history.
func renderLoads(w io.Writer, loads []store.Load) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Snapshot", "Source", "Loaded at"})
	for _, l := range loads {
		t.AppendRow(table.Row{l.ID, l.Source, l.LoadedAt.Local().Format("2006-01-02 15:04:05")})
	}
	t.Render()
}
