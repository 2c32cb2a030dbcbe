// Package lock provides in-flight exclusivity for bundling runs.
//
// A [Locker] keeps two builds of the same package version from running side
// by side. It is advisory: callers that time out proceed without a lease.
// It never remembers results, so the second request still does the full
// work once the first one is done.
//
// Backends:
//   - [Memory]: single process
//   - [Redis]: shared between instances
package lock

import (
	"context"
	"time"

	"github.com/matzehuels/snackpack/pkg/errors"
)

// DefaultTimeout bounds how long Acquire waits for a held key.
const DefaultTimeout = 5 * time.Minute

// Lease is a held lock.
type Lease interface {
	// Release gives the lock up. Releasing twice is a no-op.
	Release(ctx context.Context) error
}

// Locker hands out exclusive leases per key.
type Locker interface {
	// Acquire blocks until key is free, ctx is done, or the locker's wait
	// timeout passes. A timeout fails with LOCK_TIMEOUT; cancellation
	// returns ctx.Err().
	Acquire(ctx context.Context, key string) (Lease, error)

	Close() error
}

// Key returns the lock key for a package version.
func Key(name, version string) string {
	return name + "@" + version
}

func timeoutError(key string, waited time.Duration) error {
	return errors.New(errors.ErrCodeLockTimeout, "timed out after %s waiting for %s", waited.Round(time.Millisecond), key)
}
