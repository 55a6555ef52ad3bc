// SPDX-License-Identifier: AGPL-3.0-only
package singleton

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock represents an acquired exclusive lock for an on-disk store path.
type Lock struct {
	flock *flock.Flock
}

// TryAcquire attempts to acquire an exclusive lock for the given store path.
// It returns the lock and true if acquired, or nil and false if the lock is
// already held by another process (e.g. a concurrent ingestion into the same
// vector store).
func TryAcquire(storePath string) (*Lock, bool, error) {
	lockPath := storePath + ".lock"

	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, false, fmt.Errorf("singleton: create lock directory: %w", err)
	}

	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("singleton: try lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, false, nil
	}
	return &Lock{flock: fl}, true, nil
}

// Release releases the lock.
func (l *Lock) Release() error {
	return l.flock.Unlock()
}
