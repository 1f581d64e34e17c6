package concurrency

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnknownResource is returned when unlocking a resource that was never locked.
	ErrUnknownResource = errors.New("tried to unlock nonexistent resource")

	// ErrBadLockType is returned for lock types other than R_LOCK and W_LOCK.
	ErrBadLockType = errors.New("unknown lock type")
)

// ResourceLockManager hands out a reader/writer lock per table. Any number
// of readers may hold a table at once; a writer holds it alone.
type ResourceLockManager struct {
	locks map[Resource]*sync.RWMutex
	mtx   sync.Mutex
}

func NewResourceLockManager() *ResourceLockManager {
	return &ResourceLockManager{
		locks: make(map[Resource]*sync.RWMutex),
	}
}

// Lock the resource in the database (read lock or write lock depending on `lType`)
func (lm *ResourceLockManager) Lock(r Resource, lType LockType) error {
	if lType != R_LOCK && lType != W_LOCK {
		return fmt.Errorf("%w: %v", ErrBadLockType, lType)
	}
	// Safely acquire the mutex guarding the Resource, initializing the mutex if needed
	lm.mtx.Lock()
	lock, found := lm.locks[r]
	if !found {
		lock = &sync.RWMutex{}
		lm.locks[r] = lock
	}
	lm.mtx.Unlock()
	if lType == R_LOCK {
		lock.RLock()
	} else {
		lock.Lock()
	}
	return nil
}

// Unlock the resource in the database (read unlock or write unlock depending on `lType`)
func (lm *ResourceLockManager) Unlock(r Resource, lType LockType) error {
	if lType != R_LOCK && lType != W_LOCK {
		return fmt.Errorf("%w: %v", ErrBadLockType, lType)
	}
	lm.mtx.Lock()
	lock, found := lm.locks[r]
	lm.mtx.Unlock()
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownResource, r.GetTableName())
	}
	if lType == R_LOCK {
		lock.RUnlock()
	} else {
		lock.Unlock()
	}
	return nil
}

// WithLock runs f while holding r with the given lock type.
func (lm *ResourceLockManager) WithLock(r Resource, lType LockType, f func() error) error {
	if err := lm.Lock(r, lType); err != nil {
		return err
	}
	defer lm.Unlock(r, lType)
	return f()
}
