package cmd

import (
	"fmt"

	"github.com/gofrs/flock"

	"github.com/ytgrab/ytgrab/internal/config"
)

var instanceLock *flock.Flock

// AcquireLock takes the single-instance file lock. It returns false when
// another instance already holds it.
func AcquireLock() (bool, error) {
	instanceLock = flock.New(config.GetLockPath())
	locked, err := instanceLock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquiring instance lock: %w", err)
	}
	return locked, nil
}

// ReleaseLock drops the single-instance lock if held.
func ReleaseLock() {
	if instanceLock != nil {
		_ = instanceLock.Unlock()
	}
}
