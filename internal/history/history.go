// Package history persists the conversation log: one entry per first
// question, with the URL its answer was grounded on.
package history

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
)

// Entry is a single logged conversation turn.
type Entry struct {
	CreatedTime  string `json:"created_time"`
	UserQuestion string `json:"user_question"`
	URL          string `json:"url"`
}

// Store keeps entries in a single JSON array on disk. All methods are safe
// for concurrent use within one process.
type Store struct {
	Path string

	mu sync.Mutex
}

// All returns every stored entry; a missing file is an empty log.
func (s *Store) All() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Append stores an entry unless one with the same created time already
// exists.
func (s *Store) Append(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load()
	if err != nil {
		return err
	}
	for _, have := range entries {
		if have.CreatedTime == e.CreatedTime {
			return nil
		}
	}
	return s.save(append(entries, e))
}

// DeleteByDatePrefix removes entries whose created time starts with
// prefix, e.g. "2026-08-28".
func (s *Store) DeleteByDatePrefix(prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load()
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if !strings.HasPrefix(e.CreatedTime, prefix) {
			kept = append(kept, e)
		}
	}
	return s.save(kept)
}

// DeleteAll removes the log file.
func (s *Store) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) load() ([]Entry, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) save(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, b, 0o644)
}
