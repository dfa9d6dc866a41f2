package commands

import (
	"github.com/leapstack-labs/erdview/internal/explorer"
	"github.com/spf13/cobra"
)

// NewRenderSchemaCommand creates the render-schema command.
func NewRenderSchemaCommand() *cobra.Command {
	var (
		onlyRefs bool
		output   string
	)

	cmd := &cobra.Command{
		Use:   "render-schema <schema>",
		Short: "Render every table of a schema",
		Long: `Render all tables of one schema with the references between them.
Schemas with more tables than limits.max_tables are refused; use related or
route to look at part of them instead.`,
		Example: `  erdview render-schema billing -o billing.svg`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			data, err := cmdCtx.Explorer.RenderSchema(cmd.Context(), explorer.SchemaRequest{
				Schema:         args[0],
				OnlyKeyColumns: onlyRefs,
			})
			if err != nil {
				return err
			}
			return writeDiagram(cmd, data, cmdCtx.Explorer.Format(), output)
		},
	}

	cmd.Flags().BoolVar(&onlyRefs, "only-refs", false, "Show only key columns")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the diagram to this file")

	return cmd
}
