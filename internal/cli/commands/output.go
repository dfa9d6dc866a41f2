package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/leapstack-labs/erdview/internal/cli/config"
	"github.com/leapstack-labs/erdview/internal/render"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// binaryFormats are not written to a terminal.
var binaryFormats = map[string]bool{
	render.FormatPNG: true,
	render.FormatPDF: true,
}

// writeDiagram inflates a rendered diagram and writes it to outPath, or to
// stdout when outPath is empty.
func writeDiagram(cmd *cobra.Command, data []byte, format, outPath string) error {
	raw, err := render.Decompress(data)
	if err != nil {
		return err
	}

	if outPath != "" {
		if err := os.WriteFile(outPath, raw, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", outPath, err)
		}
		config.GetLogger(cmd.Context()).Info("diagram written", "path", outPath, "format", format, "bytes", len(raw))
		return nil
	}

	out := cmd.OutOrStdout()
	if binaryFormats[format] && isTerminal(out) {
		return fmt.Errorf("refusing to write %s output to a terminal: use --output or redirect stdout", format)
	}
	_, err = out.Write(raw)
	return err
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}
