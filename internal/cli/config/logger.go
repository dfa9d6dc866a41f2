package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	intconfig "github.com/leapstack-labs/erdview/internal/config"
)

// NewLogger builds the process logger described by lc.
func NewLogger(w io.Writer, lc intconfig.LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(lc.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", lc.Format)
	}
}
