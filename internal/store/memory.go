package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/leapstack-labs/erdview/internal/schema"
)

// MemoryStore keeps the schema in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	tables   map[schema.Table][]schema.Column
	snapshot string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[schema.Table][]schema.Column)}
}

// NewMemoryStoreFromDump returns a store holding the tables of d.
func NewMemoryStoreFromDump(d schema.Dump) *MemoryStore {
	s := NewMemoryStore()
	s.put(d)
	return s
}

// Put stores the columns of a single table.
func (s *MemoryStore) Put(t schema.Table, columns []schema.Column) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t] = slices.Clone(columns)
}

func (s *MemoryStore) put(d schema.Dump) {
	for _, sc := range d {
		for _, t := range sc.Tables {
			s.tables[schema.Table{Schema: sc.Name, Name: t.Name}] = slices.Clone(t.Columns)
		}
	}
}

// Columns implements Store.
func (s *MemoryStore) Columns(_ context.Context, t schema.Table) ([]schema.Column, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tables[t]), nil
}

// Schemas implements Catalog.
func (s *MemoryStore) Schemas(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var names []string
	for t := range s.tables {
		if _, ok := seen[t.Schema]; ok {
			continue
		}
		seen[t.Schema] = struct{}{}
		names = append(names, t.Schema)
	}
	sort.Strings(names)
	return names, nil
}

// Tables implements Catalog.
func (s *MemoryStore) Tables(_ context.Context, schemaName string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for t := range s.tables {
		if t.Schema == schemaName {
			names = append(names, t.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Snapshot implements Versioned.
func (s *MemoryStore) Snapshot(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, nil
}

// Replace implements Writer.
func (s *MemoryStore) Replace(_ context.Context, d schema.Dump, load Load) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[schema.Table][]schema.Column)
	s.put(d)
	s.snapshot = load.ID
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
