// Package memory keeps the most recent summaries in a bounded ring.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/article-summarizer/internal/summarizer"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 100

// Store is a fixed-size ring of records. Once full, the oldest is overwritten.
type Store struct {
	mu    sync.RWMutex
	ring  []summarizer.Record
	next  int
	count int
}

// New returns a Store holding at most capacity records.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{ring: make([]summarizer.Record, capacity)}
}

// Save appends record, evicting the oldest entry when full.
func (s *Store) Save(_ context.Context, record summarizer.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ring[s.next] = record
	s.next = (s.next + 1) % len(s.ring)
	if s.count < len(s.ring) {
		s.count++
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(_ context.Context, limit int) ([]summarizer.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit > s.count {
		limit = s.count
	}
	if limit < 0 {
		limit = 0
	}
	out := make([]summarizer.Record, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + len(s.ring)) % len(s.ring)
		out = append(out, s.ring[idx])
	}
	return out, nil
}
