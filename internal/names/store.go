// Package names keeps the set of distinct character names seen across a run
// together with their translations, so a name is translated once and reused
// for every line it speaks.
package names

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Entry is one character name.
type Entry struct {
	Name        string `yaml:"name"`
	Translation string `yaml:"translation,omitempty"`
}

// Store is a first-seen ordered name table. The zero path keeps it in memory.
type Store struct {
	path    string
	order   []string
	entries map[string]string
	dirty   bool
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{entries: make(map[string]string)}
}

// Open loads the store at path. A missing file yields an empty store that
// Save will create.
func Open(path string) (*Store, error) {
	s := New()
	s.path = path
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("names: read %s: %w", path, err)
	}
	var list []Entry
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("names: parse %s: %w", path, err)
	}
	for _, e := range list {
		if _, ok := s.entries[e.Name]; ok {
			continue
		}
		s.order = append(s.order, e.Name)
		s.entries[e.Name] = e.Translation
	}
	return s, nil
}

// Add registers name and reports whether it was new. Empty names are ignored.
func (s *Store) Add(name string) bool {
	if name == "" {
		return false
	}
	if _, ok := s.entries[name]; ok {
		return false
	}
	s.order = append(s.order, name)
	s.entries[name] = ""
	s.dirty = true
	return true
}

// Set records a translation for name, adding the name if needed.
func (s *Store) Set(name, translation string) {
	s.Add(name)
	if s.entries[name] != translation {
		s.entries[name] = translation
		s.dirty = true
	}
}

// Translation returns the stored translation of name, if one is set.
func (s *Store) Translation(name string) (string, bool) {
	tr := s.entries[name]
	return tr, tr != ""
}

// Len returns the number of distinct names.
func (s *Store) Len() int { return len(s.order) }

// Entries returns the names in first-seen order.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, Entry{Name: n, Translation: s.entries[n]})
	}
	return out
}

// Save writes the store back to its path when it changed.
func (s *Store) Save() error {
	if s.path == "" || !s.dirty {
		return nil
	}
	data, err := yaml.Marshal(s.Entries())
	if err != nil {
		return fmt.Errorf("names: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("names: mkdir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("names: write %s: %w", s.path, err)
	}
	s.dirty = false
	return nil
}
