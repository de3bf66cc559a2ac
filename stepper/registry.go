package stepper

import (
	"sync"

	"github.com/patchsim/engine/entity"
)

// Registry maps an EntityRef's stable id back to the live *entity.Entity it
// names. The stepper owns this graph since it is the only component that
// sees every entity created over a run, including those spawned
// mid-substep.
type Registry struct {
	mu   sync.RWMutex
	byID map[int64]*entity.Entity
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[int64]*entity.Entity)}
}

// Register adds e (and, recursively, nothing else — callers register each
// entity as it is created) to the registry.
func (r *Registry) Register(e *entity.Entity) {
	r.mu.Lock()
	r.byID[e.ID()] = e
	r.mu.Unlock()
}

// Lookup resolves id to its live entity, if still registered.
func (r *Registry) Lookup(id int64) (*entity.Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	return e, ok
}

// All returns a snapshot of every currently registered entity, used by
// publish/export passes that must visit the whole live entity graph.
func (r *Registry) All() []*entity.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.Entity, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e)
	}
	return out
}

// Unregister removes id, used when an entity is permanently retired.
func (r *Registry) Unregister(id int64) {
	r.mu.Lock()
	delete(r.byID, id)
	r.mu.Unlock()
}
