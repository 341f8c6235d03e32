package replay

import (
	"context"
	"time"
)

// Cache records one-time-use handles with an absolute expiration. Entries
// are write-once and existence-checked; the caller's protocol logic is
// expected to check-then-act. The grant store, not this cache, is the
// system of record for security-critical one-time codes.
type Cache interface {
	// Add records the handle for the given purpose until expiration.
	// Writes are unconditional; last write wins.
	Add(ctx context.Context, purpose string, handle string, expiration time.Time) error

	// Exists reports whether the handle was recorded for the purpose and
	// has not yet expired.
	Exists(ctx context.Context, purpose string, handle string) (bool, error)
}
