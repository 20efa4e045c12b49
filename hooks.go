package graphmerge

import (
	"sync"

	"github.com/agentstation/graphmerge/pkg/entities"
)

// Hook function types for run events
type (
	// EntityResolvedHook is called for every canonical entity once it has a stable identifier
	EntityResolvedHook func(entity *entities.CanonicalEntity)

	// RunCompletedHook is called after a run finished without a fatal error
	RunCompletedHook func(report *MergeReport)
)

// hooks manages event callbacks for pipeline runs
type hooks struct {
	mu               sync.RWMutex
	onEntityResolved []EntityResolvedHook
	onRunCompleted   []RunCompletedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnEntityResolved registers a callback for resolved entities
func (h *hooks) OnEntityResolved(fn EntityResolvedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEntityResolved = append(h.onEntityResolved, fn)
}

// OnRunCompleted registers a callback for completed runs
func (h *hooks) OnRunCompleted(fn RunCompletedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRunCompleted = append(h.onRunCompleted, fn)
}

func (h *hooks) entityResolved(e *entities.CanonicalEntity) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onEntityResolved {
		fn(e)
	}
}

func (h *hooks) runCompleted(r *MergeReport) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onRunCompleted {
		fn(r)
	}
}
