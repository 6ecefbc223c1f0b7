// Package concurrency provides the named-lock discipline that
// serializes access to a storage instance. The engine itself carries no
// internal locking: slot mutations are short and CPU-only, so the
// owning layer takes the container's lock around every operation.
package concurrency

import "sync"

// LockManager handles named locks, one per key, created on first use.
type LockManager struct {
	locks sync.Map
}

// NewLockManager creates a new LockManager.
func NewLockManager() *LockManager {
	return &LockManager{}
}

// GetLock returns the mutex for the given key.
func (lm *LockManager) GetLock(key string) *sync.Mutex {
	lock, _ := lm.locks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// WithLock runs fn while holding the key's lock.
func (lm *LockManager) WithLock(key string, fn func() error) error {
	lock := lm.GetLock(key)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}
