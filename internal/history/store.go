// Package history keeps a bounded in-memory record of detection cycles.
package history

import (
	"sync"
	"time"

	"github.com/statuswatch/statuswatch/internal/classify"
)

// Entry is the observable outcome of one detection cycle. The monitor
// records one per cycle and streams the same struct to API consumers.
type Entry struct {
	Time        time.Time       `json:"time"`
	Person      string          `json:"person"`
	Status      classify.Status `json:"status"`
	Found       bool            `json:"found"`
	MatchedText string          `json:"matched_text,omitempty"`
	FullMatch   bool            `json:"full_match,omitempty"`
	X           int             `json:"x"`
	Y           int             `json:"y"`
	W           int             `json:"w"`
	H           int             `json:"h"`
	Notified    bool            `json:"notified"`
	Reason      string          `json:"reason,omitempty"`
	Err         string          `json:"error,omitempty"`
}

// Store is a fixed-capacity ring of entries, oldest dropped first.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	maxSize int
}

// NewStore creates a store keeping at most maxEntries entries.
func NewStore(maxEntries int) *Store {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Store{entries: make([]Entry, 0, maxEntries), maxSize: maxEntries}
}

// Add appends an entry, evicting the oldest past capacity.
func (s *Store) Add(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, e)
	if len(s.entries) > s.maxSize {
		s.entries = s.entries[len(s.entries)-s.maxSize:]
	}
}

// Recent returns the last n entries in chronological order.
func (s *Store) Recent(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]Entry, n)
	copy(out, s.entries[len(s.entries)-n:])
	return out
}

// Latest returns the newest entry, if any.
func (s *Store) Latest() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[len(s.entries)-1], true
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
