// Package cache provides ai.Cache backends.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/spigell/job-ranker/internal/ai"
)

type memoryEntry struct {
	result    ai.ScoreResult
	expiresAt time.Time
}

// Memory is an in-process cache. Expired entries are evicted on read.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (*ai.ScoreResult, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		m.mu.Lock()
		if current, ok := m.entries[key]; ok && current.expiresAt.Equal(entry.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}

	result := entry.result
	return &result, true, nil
}

// Set stores a copy of result. A non-positive ttl keeps the entry forever.
func (m *Memory) Set(_ context.Context, key string, result *ai.ScoreResult, ttl time.Duration) error {
	if result == nil {
		return nil
	}

	entry := memoryEntry{result: *result}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()

	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
