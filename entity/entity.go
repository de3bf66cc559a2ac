// Package entity implements the per-instance attribute storage of spec
// §4.2: a fixed-length slot array, current state, lock, prior snapshot,
// resolution cache, and cycle-detection set. Grounded on the teacher's
// storage/database.go split between an in-flight Transaction and the
// committed Database state: an entity's live slots are the in-flight view,
// its prior snapshot the last committed one.
package entity

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/patchsim/engine/geo"
	"github.com/patchsim/engine/handler"
	"github.com/patchsim/engine/value"
)

// StateAttribute is the reserved attribute name whose writes schedule a
// state transition instead of taking effect immediately (spec §3, §4.5
// "state transitions deferred to end-of-substep").
const StateAttribute = "state"

var nextID atomic.Int64

// Resolver is the narrow interface Entity.Get calls into. Implemented by
// package resolver's Resolver; declared here (rather than imported) so
// package entity stays a leaf the resolver can depend on without a cycle.
type Resolver interface {
	Resolve(e *Entity, attribute string, event handler.Event) (value.Value, error)
}

// Entity is one instance of an EntityType: the simulation entity, a patch,
// or an organism/disturbance living inside a patch.
type Entity struct {
	id    int64
	typ   *handler.EntityType
	mu    sync.Mutex

	slots []value.Option // persistent across substeps; written when a handler fires
	prior []value.Option // frozen snapshot as of the end of the previous timestep

	state          string
	pendingState   string
	hasPendingState bool
	currentEvent   handler.Event

	parent   *Entity // non-owning
	geometry geo.Geometry

	cache    map[string]value.Value
	cycleSet map[string]bool

	spawned []*Entity

	resolver Resolver
}

// New constructs an Entity of the given type in initialState, owning
// geometry (or inheriting parent's if geometry is nil), with a stable
// sequence id assigned at construction (spec §3).
func New(typ *handler.EntityType, initialState string, geometry geo.Geometry, parent *Entity) *Entity {
	if geometry == nil && parent != nil {
		geometry = parent.Geometry()
	}
	n := typ.NumSlots()
	e := &Entity{
		id:       nextID.Add(1),
		typ:      typ,
		slots:    make([]value.Option, n),
		prior:    make([]value.Option, n),
		state:    initialState,
		parent:   parent,
		geometry: geometry,
		cache:    make(map[string]value.Value, n),
		cycleSet: make(map[string]bool, 4),
	}
	return e
}

// ID returns the entity's stable sequence id.
func (e *Entity) ID() int64 { return e.id }

// Type returns the entity's compiled EntityType.
func (e *Entity) Type() *handler.EntityType { return e.typ }

// State returns the state that was current as of substep entry (invariant
// 5: state transitions take effect only at substep boundaries).
func (e *Entity) State() string { return e.state }

// Parent returns the non-owning parent reference, or nil for root entities
// (the simulation entity and patches).
func (e *Entity) Parent() *Entity { return e.parent }

// Geometry returns the entity's geometry handle.
func (e *Entity) Geometry() geo.Geometry { return e.geometry }

// SetResolver wires the Resolver this entity's Get delegates to. Called
// once by the stepper during model setup.
func (e *Entity) SetResolver(r Resolver) { e.resolver = r }

// Lock acquires the entity's lock, held across a substep per spec §5.
func (e *Entity) Lock() { e.mu.Lock() }

// Unlock releases the entity's lock.
func (e *Entity) Unlock() { e.mu.Unlock() }

// BeginSubstep snapshots the substep's event, clears the resolution cache
// and cycle-detection set (spec §4.2). Discovery itself is orchestrated by
// the stepper, not the entity.
func (e *Entity) BeginSubstep(event handler.Event) {
	e.currentEvent = event
	for k := range e.cache {
		delete(e.cache, k)
	}
	for k := range e.cycleSet {
		delete(e.cycleSet, k)
	}
	e.spawned = e.spawned[:0]
}

// EndSubstep applies any pending state transition scheduled during this
// substep (spec §4.2, §4.5's "deferred to end-of-substep").
func (e *Entity) EndSubstep() {
	if e.hasPendingState {
		e.state = e.pendingState
		e.hasPendingState = false
	}
}

// PublishPrior freezes the current slot values as the new prior snapshot,
// called once per timestep after the `end` substep (spec §3: "live becomes
// the new prior atomically").
func (e *Entity) PublishPrior() {
	copy(e.prior, e.slots)
}

// CurrentEvent returns the substep event this entity is presently
// resolving attributes for.
func (e *Entity) CurrentEvent() handler.Event { return e.currentEvent }

// Get returns the resolved value of attribute during the entity's current
// substep, triggering resolution through the wired Resolver on a cache
// miss (spec §4.2).
func (e *Entity) Get(attribute string) (value.Value, error) {
	if e.resolver == nil {
		return value.Value{}, errNoResolver(e, attribute)
	}
	return e.resolver.Resolve(e, attribute, e.currentEvent)
}

// SlotValue reads the persistent slot for attribute without triggering
// resolution, used by the Resolver's prior-fallback and fast-path reads.
func (e *Entity) SlotValue(attribute string) (value.Value, bool) {
	idx := e.typ.SlotIndex(attribute)
	if idx < 0 {
		return value.Value{}, false
	}
	return e.slots[idx].Get()
}

// PriorValue reads the frozen prior snapshot for attribute (spec §4.4:
// "prior.X").
func (e *Entity) PriorValue(attribute string) (value.Value, bool) {
	idx := e.typ.SlotIndex(attribute)
	if idx < 0 {
		return value.Value{}, false
	}
	return e.prior[idx].Get()
}

// SetSlot writes v into attribute's persistent slot. Writing to the
// reserved "state" attribute schedules a transition for end-of-substep
// instead of changing State() immediately (spec §4.5).
func (e *Entity) SetSlot(attribute string, v value.Value) {
	idx := e.typ.SlotIndex(attribute)
	if idx < 0 {
		return
	}
	e.slots[idx] = value.Some(v)
	if attribute == StateAttribute {
		if s, ok := v.AsString(); ok {
			e.pendingState = s
			e.hasPendingState = true
		}
	}
}

// CacheGet reads the current substep's resolution cache.
func (e *Entity) CacheGet(attribute string) (value.Value, bool) {
	v, ok := e.cache[attribute]
	return v, ok
}

// CacheSet writes the current substep's resolution cache.
func (e *Entity) CacheSet(attribute string, v value.Value) {
	e.cache[attribute] = v
}

// InCycle reports whether attribute is presently being resolved higher up
// the call stack (spec §3 invariant 3).
func (e *Entity) InCycle(attribute string) bool {
	return e.cycleSet[attribute]
}

// EnterCycle marks attribute as in-flight.
func (e *Entity) EnterCycle(attribute string) {
	e.cycleSet[attribute] = true
}

// ExitCycle clears attribute's in-flight marker.
func (e *Entity) ExitCycle(attribute string) {
	delete(e.cycleSet, attribute)
}

// RecordSpawn appends a newly created child entity to this entity's
// spawn list, drained by the stepper's discovery pass (spec §4.5). Called
// by the compiled model's `create N of T` evaluation.
func (e *Entity) RecordSpawn(child *Entity) {
	e.spawned = append(e.spawned, child)
}

// DrainSpawned returns and clears entities spawned during the current
// substep's resolution.
func (e *Entity) DrainSpawned() []*Entity {
	out := e.spawned
	e.spawned = nil
	return out
}

func errNoResolver(e *Entity, attribute string) error {
	return fmt.Errorf("entity: no resolver wired for entity %d attribute %s", e.id, attribute)
}
