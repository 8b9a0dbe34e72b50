package audit

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository keeps entries in memory. Used in tests and in
// deployments without an Elasticsearch sink.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Save(_ context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *MemoryRepository) Query(_ context.Context, from, to time.Time, userID, resource string) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []Entry
	for _, e := range r.entries {
		if e.Timestamp.Before(from) || e.Timestamp.After(to) {
			continue
		}
		if userID != "" && e.UserID != userID {
			continue
		}
		if resource != "" && e.Resource != resource {
			continue
		}
		matched = append(matched, e)
	}
	return matched, nil
}

// Len returns the number of stored entries.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
