// Package locking coalesces overlapping triggers: a job that is already running when a
// new trigger for the same name arrives is skipped rather than queued, per the
// scheduler's "at most one phase procedure runs at a time" rule.
package locking

import "sync"

// Manager tracks named in-flight sections and refuses a second concurrent Acquire for
// the same name.
type Manager struct {
	mu      sync.Mutex
	running map[string]bool
}

// NewManager returns an empty lock manager.
func NewManager() *Manager {
	return &Manager{running: make(map[string]bool)}
}

// Acquire attempts to take the named lock. It returns true if the lock was free and is
// now held by the caller; false if it was already held, in which case the caller must
// skip its work.
func (m *Manager) Acquire(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running[name] {
		return false
	}
	m.running[name] = true
	return true
}

// Release frees the named lock. It is a no-op if the lock is not held.
func (m *Manager) Release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.running, name)
}

// IsRunning reports whether the named lock is currently held.
func (m *Manager) IsRunning(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running[name]
}
