package services

import "sync"

// LivenessRegistry is the process-wide set of session identifiers presumed
// currently executing. It prevents duplicate concurrent dispatch of one
// session within this process's lifetime.
//
// The registry is a liveness heuristic, not a source of truth: it is empty
// after a restart, and a crashed worker that never calls ClearActive leaves
// its session non-resumable until an explicit cancel or a process restart.
type LivenessRegistry struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewLivenessRegistry creates an empty registry.
func NewLivenessRegistry() *LivenessRegistry {
	return &LivenessRegistry{active: make(map[string]struct{})}
}

// Session ids share the flag namespace with other identifiers in a
// multi-process deployment, so keys carry a prefix.
func livenessKey(sessionID string) string {
	return "_" + sessionID
}

// TryMarkActive atomically adds the session to the registry. It returns true
// if this call performed the insertion (the caller may dispatch) and false
// if the session was already active.
func (r *LivenessRegistry) TryMarkActive(sessionID string) bool {
	key := livenessKey(sessionID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.active[key]; ok {
		return false
	}
	r.active[key] = struct{}{}
	return true
}

// ClearActive removes the session from the registry. Clearing an absent
// session is a no-op; the external worker calls this on completion, error,
// or cancellation, so stale double-clears must be harmless.
func (r *LivenessRegistry) ClearActive(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, livenessKey(sessionID))
}

// IsActive reports whether the session is currently marked active.
func (r *LivenessRegistry) IsActive(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[livenessKey(sessionID)]
	return ok
}
