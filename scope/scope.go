// Package scope implements the variable-resolution environment handed to
// every handler callable and selector evaluation (spec §4.4).
package scope

import (
	"fmt"
	"math/rand"

	"github.com/patchsim/engine/entity"
	"github.com/patchsim/engine/handler"
	"github.com/patchsim/engine/value"
)

// AllFunc produces the unrestricted distribution of all realized-in-sight
// entities, used for spatial queries (spec §4.4's `all`).
type AllFunc func() (value.Value, error)

// ExternalFunc performs an external-data fetch at the scope's current
// geometry (spec §4.4's `external NAME`).
type ExternalFunc func(name string) (value.Value, error)

// Scope is the stackable name-resolution environment of spec §4.4: block
// scopes for `const` bindings, sub-entity scopes for entities seen in
// distribution contexts, resolved outside-in from innermost.
type Scope struct {
	current *entity.Entity
	here    *entity.Entity
	meta    *entity.Entity

	all      AllFunc
	external ExternalFunc

	parent *Scope
	vars   map[string]value.Value

	rng *rand.Rand
}

// New builds the root Scope for a substep's resolution of current's
// attributes: here is current's patch (or current itself if current IS the
// patch), meta is the simulation entity.
func New(current, here, meta *entity.Entity, all AllFunc, external ExternalFunc) *Scope {
	return &Scope{current: current, here: here, meta: meta, all: all, external: external}
}

// Block returns a child Scope introducing free-variable bindings from a
// `const x = ...` block, shadowing any outer binding of the same name.
func (s *Scope) Block(bindings map[string]value.Value) *Scope {
	return &Scope{
		current: s.current, here: s.here, meta: s.meta,
		all: s.all, external: s.external,
		parent: s, vars: bindings,
	}
}

// ForEntity returns a child Scope whose `current` is a different entity,
// used when a distribution context iterates member entities (e.g.
// evaluating a selector per neighbor). here/meta/all/external are
// inherited unchanged; free-variable bindings still resolve outside-in.
func (s *Scope) ForEntity(e *entity.Entity) *Scope {
	return &Scope{
		current: e, here: s.here, meta: s.meta,
		all: s.all, external: s.external,
		parent: s,
	}
}

// SpawnSource is an optional capability an Env may satisfy, letting a
// Callable that creates a new entity mid-substep register it against the
// entity currently being resolved, so the stepper's discovery catch-up
// (spec §4.5) brings it through the substeps it missed. Mirrors the
// RNGSource pattern in package handler: a type-asserted capability rather
// than a method every Callable must otherwise satisfy.
type SpawnSource interface {
	SpawnTarget() *entity.Entity
}

// SpawnTarget implements SpawnSource.
func (s *Scope) SpawnTarget() *entity.Entity { return s.current }

// Current implements handler.Env: resolves attribute on the scope's
// current entity, triggering resolution on a cache miss.
func (s *Scope) Current(attribute string) (value.Value, error) {
	if s.current == nil {
		return value.Value{}, fmt.Errorf("scope: no current entity bound")
	}
	return s.current.Get(attribute)
}

// Prior implements handler.Env: reads attribute on the current entity as of
// the end of the previous timestep. Prior is never placed in the cycle set
// (spec §9: "Valid self-reference is expressed via prior.X").
func (s *Scope) Prior(attribute string) (value.Value, error) {
	if s.current == nil {
		return value.Value{}, fmt.Errorf("scope: no current entity bound")
	}
	v, ok := s.current.PriorValue(attribute)
	if !ok {
		return value.Value{}, nil
	}
	return v, nil
}

// Here implements handler.Env: resolves attribute on the current entity's
// patch (self if the entity IS the patch).
func (s *Scope) Here(attribute string) (value.Value, error) {
	if s.here == nil {
		return value.Value{}, fmt.Errorf("scope: no patch bound for `here`")
	}
	return s.here.Get(attribute)
}

// Meta implements handler.Env: resolves attribute on the simulation entity.
func (s *Scope) Meta(attribute string) (value.Value, error) {
	if s.meta == nil {
		return value.Value{}, fmt.Errorf("scope: no simulation entity bound for `meta`")
	}
	return s.meta.Get(attribute)
}

// All implements handler.Env.
func (s *Scope) All() (value.Value, error) {
	if s.all == nil {
		return value.Value{}, fmt.Errorf("scope: `all` is not available in this context")
	}
	return s.all()
}

// Var implements handler.Env: resolves a free variable outside-in,
// starting at the innermost (this) scope and walking outward through
// enclosing block scopes.
func (s *Scope) Var(name string) (value.Value, bool) {
	for scope := s; scope != nil; scope = scope.parent {
		if v, ok := scope.vars[name]; ok {
			return v, true
		}
	}
	return value.Value{}, false
}

// External implements handler.Env.
func (s *Scope) External(name string) (value.Value, error) {
	if s.external == nil {
		return value.Value{}, fmt.Errorf("scope: no external data source bound")
	}
	return s.external(name)
}

// CurrentEntity returns the entity bound as `current`, used by the
// resolver to drive the actual resolution algorithm.
func (s *Scope) CurrentEntity() *entity.Entity { return s.current }

// WithRNG returns a shallow copy of s carrying rng, used by the resolver to
// attach the entity's deterministic per-patch random stream (spec §5) before
// evaluating a callable that samples a distribution.
func (s *Scope) WithRNG(rng *rand.Rand) *Scope {
	cp := *s
	cp.rng = rng
	return &cp
}

// RNG returns the random stream bound to this scope, or nil if none was
// attached. Callables that sample analytic distributions (`sample uniform
// from ...`) use this, type-asserting Env to a handler.RNGSource rather than
// widening the handler.Env interface every caller must implement.
func (s *Scope) RNG() *rand.Rand { return s.rng }

var _ handler.Env = (*Scope)(nil)
