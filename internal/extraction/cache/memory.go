package cache

import (
	"context"
	"sync"
	"time"

	"github.com/joblens/extractor/internal/core/domain"
)

type memoryEntry struct {
	record    *domain.JobPosting
	expiresAt time.Time
}

// Memory is an in-process Store backed by a mutex-protected map.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

// NewMemory creates an in-memory cache. ttl of zero means entries never
// expire.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
}

func (m *Memory) Get(ctx context.Context, source string) (*domain.JobPosting, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[source]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		// Expired entries are swept by CleanExpired
		return nil, false, nil
	}
	return e.record, true, nil
}

func (m *Memory) Put(ctx context.Context, source string, record *domain.JobPosting) error {
	e := memoryEntry{record: record}
	if m.ttl > 0 {
		e.expiresAt = time.Now().Add(m.ttl)
	}

	m.mu.Lock()
	m.entries[source] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(ctx context.Context, source string) error {
	m.mu.Lock()
	delete(m.entries, source)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Len returns the number of entries, expired included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// CleanExpired removes expired entries and returns how many were dropped.
func (m *Memory) CleanExpired() int {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for source, e := range m.entries {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(m.entries, source)
			removed++
		}
	}
	return removed
}
