package pipeline

import (
	"context"
	"sync"
)

type runHandle struct {
	cancel context.CancelFunc
}

// RunRegistry enforces at most one in-flight run per file id. Acquire
// is a check-and-set under one lock; there is no window where two runs
// can both claim a file.
type RunRegistry struct {
	mu   sync.Mutex
	runs map[string]*runHandle
}

func NewRunRegistry() *RunRegistry {
	return &RunRegistry{runs: make(map[string]*runHandle)}
}

// Acquire claims the file id for a new run. It returns false when a run
// already holds the claim.
func (r *RunRegistry) Acquire(fileID string, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[fileID]; exists {
		return false
	}
	r.runs[fileID] = &runHandle{cancel: cancel}
	return true
}

func (r *RunRegistry) Release(fileID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, fileID)
}

// Cancel asks the in-flight run to stop. The run observes it at the
// next stage boundary.
func (r *RunRegistry) Cancel(fileID string) bool {
	r.mu.Lock()
	handle, ok := r.runs[fileID]
	r.mu.Unlock()

	if !ok {
		return false
	}
	handle.cancel()
	return true
}

func (r *RunRegistry) IsRunning(fileID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.runs[fileID]
	return ok
}
