// Package history provides the bounded in-memory ledger of past sync run
// outcomes.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of run records retained before the oldest
// are evicted.
const DefaultCapacity = 100

// RunRecord is the immutable summary of one completed sync run. It is
// created exactly once, at run completion, and never mutated afterward.
type RunRecord struct {
	ID               string    `json:"id"`
	Succeeded        bool      `json:"succeeded"`
	Trigger          string    `json:"trigger"`
	StartedAt        time.Time `json:"started_at"`
	DurationMs       int64     `json:"duration_ms"`
	RecordsProcessed int       `json:"records_processed"`
	RejectedLines    int       `json:"rejected_lines"`
	PayloadSizeBytes int64     `json:"payload_size_bytes"`
	SourceFile       string    `json:"source_file,omitempty"`
	ErrorDetail      string    `json:"error_detail,omitempty"`
}

// Store is an append-only ring buffer of run records. Reads return copies,
// so callers never observe later mutation of the underlying buffer.
type Store struct {
	mu       sync.RWMutex
	records  []RunRecord
	capacity int
}

// NewStore creates a store with the given capacity. A capacity of zero or
// less falls back to DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		records:  make([]RunRecord, 0, capacity),
		capacity: capacity,
	}
}

// Append adds a record to the ledger, evicting the oldest record when the
// store is at capacity. The record's ID is assigned here if empty.
func (s *Store) Append(rec RunRecord) RunRecord {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) == s.capacity {
		copy(s.records, s.records[1:])
		s.records = s.records[:len(s.records)-1]
	}
	s.records = append(s.records, rec)
	return rec
}

// Recent returns up to limit records, newest first. A limit of zero or
// less returns all retained records.
func (s *Store) Recent(limit int) []RunRecord {
	return s.Page(limit, 0)
}

// Page returns up to limit records starting at offset from the newest.
// A limit of zero or less returns everything from the offset onward.
func (s *Store) Page(limit, offset int) []RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.records)
	if offset < 0 {
		offset = 0
	}
	if offset >= n {
		return []RunRecord{}
	}

	available := n - offset
	if limit <= 0 || limit > available {
		limit = available
	}

	out := make([]RunRecord, limit)
	for i := 0; i < limit; i++ {
		// Newest first: walk the buffer backwards from the offset.
		out[i] = s.records[n-1-offset-i]
	}
	return out
}

// Len returns the number of retained records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
