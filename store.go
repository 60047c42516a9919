package dataterm

import (
	"fmt"
	"slices"
	"strings"
)

// Store is the named registry of the datasets loaded in a session.
//
// A Store is not safe for concurrent mutation, commands run sequentially.
type Store struct {
	datasets map[string]*Table
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{datasets: make(map[string]*Table)}
}

// Put registers table under name, replacing any previous dataset.
func (s *Store) Put(name string, table *Table) error {
	if strings.TrimSpace(name) == "" {
		return invalidf("empty dataset name")
	}
	if table == nil {
		return invalidf("nil dataset %q", name)
	}
	s.datasets[name] = table
	return nil
}

// Get returns the dataset registered under name.
func (s *Store) Get(name string) (*Table, error) {
	t, ok := s.datasets[name]
	if !ok {
		return nil, fmt.Errorf("dataset %q: %w", name, ErrNotFound)
	}
	return t, nil
}

// Delete removes the named dataset.
func (s *Store) Delete(name string) error {
	if _, ok := s.datasets[name]; !ok {
		return fmt.Errorf("dataset %q: %w", name, ErrNotFound)
	}
	delete(s.datasets, name)
	return nil
}

// List returns the names of the loaded datasets, sorted.
func (s *Store) List() []string {
	names := make([]string, 0, len(s.datasets))
	for name := range s.datasets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of loaded datasets.
func (s *Store) Len() int { return len(s.datasets) }
