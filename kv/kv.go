package kv

import (
	"context"
	"errors"
	"time"
)

// InitialCursor starts a scan; a scan is complete when the store hands
// it back.
const InitialCursor = "0"

var (
	// ErrNotConfigured is returned when no store backend is available.
	ErrNotConfigured = errors.New("kv: store is not configured")

	// ErrEnumerationIncomplete is returned by ScanAll when the store never
	// came back to the initial cursor within the iteration bound.
	ErrEnumerationIncomplete = errors.New("kv: enumeration incomplete, iteration bound reached")
)

// Store is the narrow persistence contract used by the scheduler and the
// daily processor. Writes replace the previous value wholesale; callers
// needing field updates must read-modify-write.
type Store interface {
	// Put stores value under key. A ttl > 0 bounds the entry's lifetime.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value for key, with false when the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)

	// Scan returns one page of keys matching the glob pattern, plus the
	// cursor for the next page. A returned cursor equal to InitialCursor
	// signals completion. Keys may repeat across pages under concurrent
	// mutation.
	Scan(ctx context.Context, cursor, match string, count int) ([]string, string, error)

	// Del removes the given keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error
}
