package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/brendondev/central-empresa/internal/apperrors"
	"github.com/brendondev/central-empresa/internal/model"
	"github.com/brendondev/central-empresa/internal/observer"
)

// Handle is the live end of one running session: its runner's cancel func,
// its completion signal and its in-memory status. The persisted status may
// briefly lag this one; the handle is authoritative while it exists.
type Handle struct {
	sessionID string
	cancel    context.CancelFunc
	done      chan struct{}

	mu     sync.RWMutex
	status string
}

// SessionID returns the owning session identifier.
func (h *Handle) SessionID() string {
	return h.sessionID
}

// Status returns the handle's current lifecycle status.
func (h *Handle) Status() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

func (h *Handle) setStatus(status string) {
	h.mu.Lock()
	h.status = status
	h.mu.Unlock()
}

// Stop cancels the runner. Safe to call more than once.
func (h *Handle) Stop() {
	h.cancel()
}

// Done is closed when the runner has fully torn down.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Registry holds the live session handles and enforces at-most-one handle
// per session id. All mutation goes through the mutex; no handle is visible
// before it is fully registered.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// Acquire registers a new handle for the session. When a handle already
// exists the call fails with apperrors.ErrAlreadyActive and the existing
// handle is untouched; losers of a concurrent connect race land here.
func (r *Registry) Acquire(sessionID string, cancel context.CancelFunc) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handles[sessionID]; exists {
		return nil, fmt.Errorf("%w: session %s", apperrors.ErrAlreadyActive, sessionID)
	}

	h := &Handle{
		sessionID: sessionID,
		cancel:    cancel,
		done:      make(chan struct{}),
		status:    model.SessionStatusConnecting,
	}
	r.handles[sessionID] = h
	observer.SetSessionsActive(len(r.handles))
	return h, nil
}

// Release removes the handle and marks it done. A handle may only be
// released by its owner; releasing a superseded handle is a no-op.
func (r *Registry) Release(h *Handle) {
	r.mu.Lock()
	if current, ok := r.handles[h.sessionID]; ok && current == h {
		delete(r.handles, h.sessionID)
	}
	observer.SetSessionsActive(len(r.handles))
	r.mu.Unlock()

	close(h.done)
}

// Get returns the live handle for the session, if any.
func (r *Registry) Get(sessionID string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[sessionID]
	return h, ok
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// ActiveSessionIDs lists the sessions with a live handle.
func (r *Registry) ActiveSessionIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	return ids
}
