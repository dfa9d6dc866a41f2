package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Renderer builds the DOT document, lays it out and compresses the result.
type Renderer struct {
	backend Backend
	format  string
	level   int
	logger  *slog.Logger
}

// Config holds configuration for a Renderer.
type Config struct {
	Backend Backend
	// Format is the backend output format. Defaults to svg.
	Format string
	// Level is the gzip level. Zero means gzip.DefaultCompression.
	Level  int
	Logger *slog.Logger
}

// NewRenderer creates a Renderer.
func NewRenderer(cfg Config) (*Renderer, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("render backend not specified")
	}
	format := cfg.Format
	if format == "" {
		format = FormatSVG
	}
	switch format {
	case FormatSVG, FormatPNG, FormatPDF, FormatJSON, FormatDOT:
	default:
		return nil, fmt.Errorf("unsupported render format %q", format)
	}
	level := cfg.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, fmt.Errorf("invalid gzip level %d", level)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Renderer{backend: cfg.Backend, format: format, level: level, logger: logger}, nil
}

// Format returns the output format.
func (r *Renderer) Format() string {
	return r.format
}

// Render lays out sg and returns the gzip-compressed output.
func (r *Renderer) Render(ctx context.Context, sg Subgraph, onlyKeyColumns bool) ([]byte, error) {
	start := time.Now()
	dot := BuildDOT(sg, onlyKeyColumns)

	out, err := r.backend.Layout(ctx, dot, r.format)
	if err != nil {
		return nil, fmt.Errorf("failed to lay out diagram: %w", err)
	}

	compressed, err := Compress(out, r.level)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("rendered diagram",
		"tables", len(sg.Tables), "edges", len(sg.Edges), "format", r.format,
		"bytes", len(out), "compressed", len(compressed), "duration", time.Since(start))
	return compressed, nil
}

// Compress gzips data at the given level. The header carries no name or
// timestamp, so equal input gives equal output.
func Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress diagram: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress diagram: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read gzip header: %w", err)
	}
	defer func() { _ = zr.Close() }()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress diagram: %w", err)
	}
	return out, nil
}
