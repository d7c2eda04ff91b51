package app

import (
	"sync"

	"github.com/qubelab/qubecrawl/internal/search"
)

// Session carries per-conversation state explicitly: the active query, the
// URL the conversation is grounded on, and whether a search has happened.
// It replaces what would otherwise be process-wide mutable globals.
type Session struct {
	mu       sync.Mutex
	query    string
	url      string
	searched bool
}

// Snapshot is a read-only view of a session for the info endpoint.
type Snapshot struct {
	Query    string          `json:"first_message"`
	URL      string          `json:"url"`
	Searched bool            `json:"searched"`
	Results  []search.Result `json:"search_results,omitempty"`
}

// state returns a consistent copy of the mutable fields. Callers read the
// state once, run pipeline work unlocked, then write back; the pipeline's
// own coalescing handles concurrent same-key fetches.
func (s *Session) state() (query, url string, searched bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query, s.url, s.searched
}

// record stores the outcome of an initial search turn.
func (s *Session) record(query, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query, s.url, s.searched = query, url, true
}

// setURL re-grounds the conversation on a different link.
func (s *Session) setURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = url
}

func (s *Session) snapshot(results []search.Result) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Query: s.query, URL: s.url, Searched: s.searched, Results: results}
}

// reset clears the grounding URL but keeps the query and result set, so
// the user can pick a different link for the same search.
func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = ""
}

// clear wipes the whole session.
func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = ""
	s.url = ""
	s.searched = false
}
