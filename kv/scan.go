package kv

import "context"

// scanPageSize is the COUNT hint passed to the store per page.
const scanPageSize = 100

// maxScanIterations bounds a full enumeration so a store that never
// returns the initial cursor cannot loop forever.
const maxScanIterations = 1000

// ScanAll enumerates every key matching pattern by walking the store's
// paginated scan from the initial cursor until it is returned again.
// Duplicate keys are passed through untouched; callers filtering on
// record state stay correct regardless. When the iteration bound is hit,
// the keys collected so far are returned together with
// ErrEnumerationIncomplete.
func ScanAll(ctx context.Context, s Store, pattern string) ([]string, error) {
	var keys []string
	cursor := InitialCursor

	for i := 0; i < maxScanIterations; i++ {
		batch, next, err := s.Scan(ctx, cursor, pattern, scanPageSize)
		if err != nil {
			return keys, err
		}
		keys = append(keys, batch...)
		if next == InitialCursor {
			return keys, nil
		}
		cursor = next
	}

	return keys, ErrEnumerationIncomplete
}
