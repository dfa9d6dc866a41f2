package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/erdview/internal/explorer"
	"github.com/leapstack-labs/erdview/internal/graph"
	"github.com/leapstack-labs/erdview/internal/schema"
	"github.com/spf13/cobra"
)

// RouteOptions holds options for the route command.
type RouteOptions struct {
	Exclude  []string
	OnlyRefs bool
	All      bool
	List     bool
	Output   string
}

// NewRouteCommand creates the route command.
func NewRouteCommand() *cobra.Command {
	opts := &RouteOptions{}

	cmd := &cobra.Command{
		Use:   "route <from> <to>",
		Short: "Render the route between two tables",
		Long: `Find how two tables are connected through foreign keys, following
references in both directions, and render the tables along the way.

By default the first (shortest) route is drawn. With --all one route is kept
for every reference that reaches the destination. When the tables are not
connected the diagram holds just the two endpoints.`,
		Example: `  # Shortest route as SVG
  erdview route sales.orders hr.employees -o route.svg

  # Print every route as text instead of rendering
  erdview route sales.orders hr.employees --all --list`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Exclude, "exclude", "x", nil, "Tables the route may not pass through (schema.table, repeatable)")
	cmd.Flags().BoolVar(&opts.OnlyRefs, "only-refs", false, "Show only key columns")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Keep one route per reference into the destination")
	cmd.Flags().BoolVar(&opts.List, "list", false, "Print the routes as text instead of rendering them")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Write the diagram to this file")

	return cmd
}

func runRoute(cmd *cobra.Command, fromArg, toArg string, opts *RouteOptions) error {
	start, err := schema.ParseTable(fromArg)
	if err != nil {
		return err
	}
	dest, err := schema.ParseTable(toArg)
	if err != nil {
		return err
	}
	excluded, err := parseExcluded(opts.Exclude)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	req := explorer.RouteRequest{
		Start:          start,
		Dest:           dest,
		Excluded:       excluded,
		OnlyKeyColumns: opts.OnlyRefs,
		Shortest:       !opts.All,
	}

	if opts.List {
		paths, err := cmdCtx.Explorer.Routes(cmd.Context(), req)
		if err != nil {
			return err
		}
		printRoutes(cmd, start, dest, paths)
		return nil
	}

	data, err := cmdCtx.Explorer.FindRoute(cmd.Context(), req)
	if err != nil {
		return err
	}
	return writeDiagram(cmd, data, cmdCtx.Explorer.Format(), opts.Output)
}

func printRoutes(cmd *cobra.Command, start, dest schema.Table, paths []graph.Path) {
	out := cmd.OutOrStdout()
	if len(paths) == 0 {
		_, _ = fmt.Fprintf(out, "No route from %s to %s\n", start, dest)
		return
	}
	for i, p := range paths {
		hops := make([]string, len(p))
		for j, e := range p {
			hops[j] = e.String()
		}
		_, _ = fmt.Fprintf(out, "%d. %s\n", i+1, strings.Join(hops, ", "))
	}
}
