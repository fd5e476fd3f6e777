// Package interrupt implements cross-process cooperative cancellation for
// agent sessions. A persisted per-thread flag is checked before every model
// call and tool call (fresh) and between streamed tokens (cached, refreshed
// on a bounded interval).
package interrupt

import (
	"context"
	"sync"
)

// Status is the lifecycle state of a session. Interruption only moves
// forward: running -> completing -> interrupted. completed is reachable
// from any state on normal finish.
type Status string

const (
	StatusRunning     Status = "running"
	StatusCompleting  Status = "completing"
	StatusInterrupted Status = "interrupted"
	StatusCompleted   Status = "completed"
)

// SessionStore persists per-thread session status. Implementations must
// make Transition atomic so two racing interrupt requests cannot both
// observe running.
type SessionStore interface {
	// Get returns the stored status. Absent threads report ok=false.
	Get(ctx context.Context, threadID string) (Status, bool, error)
	// Put unconditionally sets the status.
	Put(ctx context.Context, threadID string, status Status) error
	// Transition atomically moves from -> to and reports whether the swap
	// happened.
	Transition(ctx context.Context, threadID string, from, to Status) (bool, error)
	// Delete removes the thread's record.
	Delete(ctx context.Context, threadID string) error
}

// MemoryStore is a process-local SessionStore for tests and single-node
// deployments.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Status
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Status)}
}

func (m *MemoryStore) Get(_ context.Context, threadID string) (Status, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[threadID]
	return s, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, threadID string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[threadID] = status
	return nil
}

func (m *MemoryStore) Transition(_ context.Context, threadID string, from, to Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[threadID] != from {
		return false, nil
	}
	m.sessions[threadID] = to
	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, threadID)
	return nil
}
