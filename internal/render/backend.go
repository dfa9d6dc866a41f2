package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Backend lays out a DOT document and returns it in the requested format.
type Backend interface {
	Layout(ctx context.Context, dot []byte, format string) ([]byte, error)
}

// Output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
	FormatDOT  = "dot"
)

// ContentType returns the MIME type for a format.
func ContentType(format string) string {
	switch format {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	case FormatJSON:
		return "application/json"
	default:
		return "text/vnd.graphviz"
	}
}

// DefaultGraphvizBinary is the Graphviz executable used by Graphviz.
const DefaultGraphvizBinary = "dot"

// Graphviz runs the Graphviz command line tool. The layout engine is taken
// from the document's graph attributes.
type Graphviz struct {
	Binary string
}

// Layout implements Backend.
func (g Graphviz) Layout(ctx context.Context, dot []byte, format string) ([]byte, error) {
	binary := g.Binary
	if binary == "" {
		binary = DefaultGraphvizBinary
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "-T"+format)
	cmd.Stdin = bytes.NewReader(dot)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("graphviz %s failed: %w: %s", binary, err, msg)
		}
		return nil, fmt.Errorf("graphviz %s failed: %w", binary, err)
	}
	return stdout.Bytes(), nil
}

// Source returns the DOT document itself. It serves clients that lay the
// graph out on their side.
type Source struct{}

// Layout implements Backend.
func (Source) Layout(_ context.Context, dot []byte, format string) ([]byte, error) {
	if format != FormatDOT {
		return nil, fmt.Errorf("source backend only produces %q, not %q", FormatDOT, format)
	}
	return dot, nil
}

// NewBackend returns the backend registered under name: "graphviz" or "source".
func NewBackend(name, binary string) (Backend, error) {
	switch name {
	case "graphviz", "":
		return Graphviz{Binary: binary}, nil
	case "source":
		return Source{}, nil
	default:
		return nil, fmt.Errorf("unknown render backend %q", name)
	}
}
