package introspect

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Source)
)

// Register adds a source factory to the registry.
// Called by source implementations in their init() functions.
func Register(name string, factory func(*slog.Logger) Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a source factory by name.
func Get(name string) (func(*slog.Logger) Source, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// NewSource creates a new, unconnected source based on cfg.Type.
// A nil logger discards output.
func NewSource(cfg Config, logger *slog.Logger) (Source, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("source type not specified")
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownSourceError{
			Type:      cfg.Type,
			Available: ListSources(),
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return factory(logger), nil
}

// ListSources returns all registered source names (sorted).
func ListSources() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a source type is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownSourceError is returned when an unknown source type is requested.
type UnknownSourceError struct {
	Type      string
	Available []string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source type %q\nAvailable sources: %v\nHint: Check source.type in erdview.yaml", e.Type, e.Available)
}
