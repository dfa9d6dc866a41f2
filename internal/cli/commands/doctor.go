package commands

import (
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/erdview/internal/cache"
	"github.com/leapstack-labs/erdview/internal/cli/config"
	"github.com/leapstack-labs/erdview/internal/render"
	"github.com/leapstack-labs/erdview/internal/store"
	"github.com/spf13/cobra"
)

// Check statuses.
const (
	StatusOK   = "ok"
	StatusWarn = "warn"
	StatusFail = "fail"
)

// errUnhealthy is returned when at least one check failed.
var errUnhealthy = errors.New("doctor found problems")

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	JSON bool
}

// HealthCheck is the result of a single check.
type HealthCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// migrated is implemented by stores that track a schema version.
type migrated interface {
	Path() string
	MigrationVersion() (int64, error)
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the configured store, cache and renderer",
		Long: `Check that erdview can work with its configuration:
the schema store opens and holds a snapshot, the diagram cache opens,
and the render backend is available.

Exits with an error when a check fails. Warnings do not fail.`,
		Example: `  # Run all checks
  erdview doctor

  # Machine-readable output
  erdview doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checks := runChecks(cmd)
			if opts.JSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(checks); err != nil {
					return fmt.Errorf("failed to encode checks: %w", err)
				}
			} else {
				renderChecks(cmd.OutOrStdout(), checks)
			}
			for _, c := range checks {
				if c.Status == StatusFail {
					return errUnhealthy
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the checks as JSON")

	return cmd
}

func runChecks(cmd *cobra.Command) []HealthCheck {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	ctx := cmd.Context()

	configDetail := "built-in defaults"
	if used := config.GetConfigFileUsed(); used != "" {
		configDetail = used
	}
	checks := []HealthCheck{{Name: "config", Status: StatusOK, Detail: configDetail}}

	s, err := openStore(cmd, cfg, logger)
	if err != nil {
		checks = append(checks, HealthCheck{Name: "schema store", Status: StatusFail, Detail: err.Error()})
	} else {
		checks = append(checks, storeChecks(cmd, cfg.Store.Type, s)...)
		if err := s.Close(); err != nil {
			logger.Warn("failed to close schema store", "error", err)
		}
	}

	if c, err := cache.Open(ctx, cfg.CacheOptions(logger)); err != nil {
		checks = append(checks, HealthCheck{Name: "cache", Status: StatusFail, Detail: err.Error()})
	} else {
		checks = append(checks, HealthCheck{Name: "cache", Status: StatusOK, Detail: cfg.Cache.Type})
		if err := c.Close(); err != nil {
			logger.Warn("failed to close cache", "error", err)
		}
	}

	return append(checks, rendererCheck(cfg.Render.Backend, cfg.Render.Binary))
}

func storeChecks(cmd *cobra.Command, storeType string, s store.SchemaStore) []HealthCheck {
	ctx := cmd.Context()

	detail := storeType
	if m, ok := s.(migrated); ok {
		version, err := m.MigrationVersion()
		if err != nil {
			return []HealthCheck{{Name: "schema store", Status: StatusFail, Detail: err.Error()}}
		}
		detail = fmt.Sprintf("%s %s (schema version %d)", storeType, m.Path(), version)
	}
	checks := []HealthCheck{{Name: "schema store", Status: StatusOK, Detail: detail}}

	snap, err := s.Snapshot(ctx)
	switch {
	case err != nil:
		checks = append(checks, HealthCheck{Name: "snapshot", Status: StatusFail, Detail: err.Error()})
	case snap == "":
		checks = append(checks, HealthCheck{Name: "snapshot", Status: StatusWarn, Detail: "nothing loaded, run erdview load"})
	default:
		checks = append(checks, HealthCheck{Name: "snapshot", Status: StatusOK, Detail: snap})
	}

	schemas, err := s.Schemas(ctx)
	if err != nil {
		return append(checks, HealthCheck{Name: "schemas", Status: StatusFail, Detail: err.Error()})
	}
	return append(checks, HealthCheck{Name: "schemas", Status: StatusOK, Detail: fmt.Sprintf("%d schemas", len(schemas))})
}

func rendererCheck(backend, binary string) HealthCheck {
	if backend == "source" {
		return HealthCheck{Name: "renderer", Status: StatusOK, Detail: "source (DOT only)"}
	}
	if binary == "" {
		binary = render.DefaultGraphvizBinary
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return HealthCheck{Name: "renderer", Status: StatusFail, Detail: fmt.Sprintf("graphviz %q not found", binary)}
	}
	return HealthCheck{Name: "renderer", Status: StatusOK, Detail: "graphviz " + path}
}

func renderChecks(w io.Writer, checks []HealthCheck) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Check", "Status", "Detail"})
	for _, c := range checks {
		t.AppendRow(table.Row{c.Name, c.Status, c.Detail})
	}
	t.Render()
}
