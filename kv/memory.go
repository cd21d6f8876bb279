package kv

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process Store for tests and local development.
// Keys are enumerated in sorted order; the scan cursor is the offset
// into that order.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryStore) Scan(_ context.Context, cursor, match string, count int) ([]string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	offset, err := strconv.Atoi(cursor)
	if err != nil {
		return nil, "", err
	}
	if count <= 0 {
		count = 10
	}

	now := time.Now()
	var matching []string
	for key, entry := range m.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			continue
		}
		if matchPattern(match, key) {
			matching = append(matching, key)
		}
	}
	sort.Strings(matching)

	if offset >= len(matching) {
		return nil, InitialCursor, nil
	}

	end := offset + count
	if end >= len(matching) {
		return matching[offset:], InitialCursor, nil
	}
	return matching[offset:end], strconv.Itoa(end), nil
}

func (m *MemoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

// matchPattern supports the glob subset the processor uses: a literal
// prefix with an optional trailing star.
func matchPattern(pattern, key string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(key, strings.TrimSuffix(pattern, "*"))
	}
	return key == pattern
}
