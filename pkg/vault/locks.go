package vault

import (
	"path/filepath"
	"sync"
)

// LockRegistry hands out one mutex per canonical vault root.
// Mutexes are created on first use and never removed.
// Vaults built without one share a process-wide registry; pass a private
// registry only to isolate a group of vaults from the rest of the process.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// processLocks serializes every Vault opened without an explicit registry.
var processLocks = NewLockRegistry()

// ProcessLocks returns the registry used by vaults built without one.
func ProcessLocks() *LockRegistry {
	return processLocks
}

// NewLockRegistry returns an empty registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[string]*sync.Mutex)}
}

// Acquire blocks until the lock for root is held and returns its release func.
func (r *LockRegistry) Acquire(root string) func() {
	m := r.get(Canonical(root))
	m.Lock()
	return m.Unlock
}

// Len returns the number of roots seen so far.
func (r *LockRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}

func (r *LockRegistry) get(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.locks[key]
	if !ok {
		m = new(sync.Mutex)
		r.locks[key] = m
	}
	return m
}

// Canonical returns the absolute, symlink-free form of path.
// Paths that cannot be resolved fall back to their cleaned absolute form.
func Canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
