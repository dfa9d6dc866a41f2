// Package loader fills a schema store from dump files, CSV catalog exports or
// an already built schema.Dump. Every load replaces the stored schema and
// records a fresh snapshot id.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/erdview/internal/schema"
	"github.com/leapstack-labs/erdview/internal/store"
)

// Loader writes dumps into a store.
type Loader struct {
	writer store.Writer
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Loader. A nil logger discards output.
func New(w store.Writer, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{writer: w, logger: logger, now: time.Now}
}

// Load replaces the stored schema with d. PK back-references are always
// rebuilt from the FK references, so a dump only needs to carry the latter.
func (l *Loader) Load(ctx context.Context, d schema.Dump, source string) (store.Load, error) {
	d.DeriveBackReferences()
	load := store.Load{
		ID:       uuid.NewString(),
		Source:   source,
		LoadedAt: l.now().UTC(),
	}
	if err := l.writer.Replace(ctx, d, load); err != nil {
		return store.Load{}, fmt.Errorf("failed to store schema from %s: %w", source, err)
	}
	l.logger.Info("schema loaded",
		"source", source,
		"snapshot", load.ID,
		"schemas", len(d),
		"tables", d.TableCount())
	return load, nil
}

// LoadFile reads a JSON or YAML dump and loads it.
func (l *Loader) LoadFile(ctx context.Context, path string) (store.Load, error) {
	d, err := ReadFile(path)
	if err != nil {
		return store.Load{}, err
	}
	return l.Load(ctx, d, path)
}

// LoadCSV reads a column export and a reference export and loads them.
func (l *Loader) LoadCSV(ctx context.Context, columnsPath, refsPath string) (store.Load, error) {
	d, err := ReadCSVFiles(columnsPath, refsPath)
	if err != nil {
		return store.Load{}, err
	}
	return l.Load(ctx, d, columnsPath)
}

// FormatOf returns the dump format implied by the file extension.
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return schema.FormatJSON, nil
	case ".yaml", ".yml":
		return schema.FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported dump file %s: expected .json, .yaml or .yml", path)
	}
}

// ReadFile decodes the dump at path.
func ReadFile(path string) (schema.Dump, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open dump: %w", err)
	}
	defer func() { _ = f.Close() }()

	d, err := schema.DecodeDump(f, format)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return d, nil
}
