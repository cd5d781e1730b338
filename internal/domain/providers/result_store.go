package providers

import (
	"context"
)

// ResultStore is the shared key/value store holding search results and place
// details. It is owned outside the service and may be written by other flows.
type ResultStore interface {
	// Get retrieves a value. found is false on miss.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores a value, replacing any existing one
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes a value. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// RemoveMatching deletes every key for which match returns true
	RemoveMatching(ctx context.Context, match func(key string) bool) (int, error)

	// Keys lists every key currently held
	Keys(ctx context.Context) ([]string, error)
}
