package commands

import (
	"github.com/leapstack-labs/erdview/internal/explorer"
	"github.com/leapstack-labs/erdview/internal/schema"
	"github.com/spf13/cobra"
)

// RelatedOptions holds options for the related command.
type RelatedOptions struct {
	Depth    int
	Exclude  []string
	OnlyRefs bool
	Output   string
}

// NewRelatedCommand creates the related command.
func NewRelatedCommand() *cobra.Command {
	opts := &RelatedOptions{}

	cmd := &cobra.Command{
		Use:   "related <schema.table>",
		Short: "Render the tables around a seed table",
		Long: `Render the tables reachable from the seed table within --depth foreign
key hops, following references in both directions. Depth 0 renders the seed
alone. Excluded tables are neither drawn nor traversed through.`,
		Example: `  # Tables directly related to sales.orders, as SVG
  erdview related sales.orders -o orders.svg

  # Two hops, skipping a hub table, keys only
  erdview related sales.orders --depth 2 --exclude core.users --only-refs -f dot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelated(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Depth, "depth", "d", 1, "Number of reference hops to follow")
	cmd.Flags().StringSliceVarP(&opts.Exclude, "exclude", "x", nil, "Tables to leave out (schema.table, repeatable)")
	cmd.Flags().BoolVar(&opts.OnlyRefs, "only-refs", false, "Show only key columns")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Write the diagram to this file")

	return cmd
}

func runRelated(cmd *cobra.Command, seedArg string, opts *RelatedOptions) error {
	seed, err := schema.ParseTable(seedArg)
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

	data, err := cmdCtx.Explorer.RelatedTables(cmd.Context(), explorer.RelatedRequest{
		Seed:           seed,
		Depth:          opts.Depth,
		Excluded:       excluded,
		OnlyKeyColumns: opts.OnlyRefs,
	})
	if err != nil {
		return err
	}
	return writeDiagram(cmd, data, cmdCtx.Explorer.Format(), opts.Output)
}

// parseExcluded turns --exclude values into a set. Each value may itself be
// a comma separated list.
func parseExcluded(values []string) (schema.TableSet, error) {
	var excluded schema.TableSet
	for _, v := range values {
		tables, err := schema.ParseTableList(v)
		if err != nil {
			return nil, err
		}
		for _, t := range tables {
			if excluded == nil {
				excluded = make(schema.TableSet)
			}
			excluded.Add(t)
		}
	}
	return excluded, nil
}
