package shared

import (
	"context"
)

// KeyLocker serialises work per key (one holder at a time per key).
// Different keys never block each other.
type KeyLocker interface {
	// Lock blocks until the key is acquired or ctx is done.
	// The returned function releases the key and is safe to call once.
	Lock(ctx context.Context, key string) (unlock func(), err error)

	// Close releases resources held by the locker
	Close() error
}
