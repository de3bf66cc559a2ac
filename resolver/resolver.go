// Package resolver implements the Resolve algorithm of spec §4.3: the
// central lazy, cached, cycle-detecting attribute computation every
// entity's Get delegates to. Grounded on the teacher's
// datalog/planner query-resolution loop (plan lookup -> cache check ->
// evaluate -> cache store), generalized from query plans to handler
// groups and given the entity-local cycle set spec §9 requires.
package resolver

import (
	"math/rand"

	"github.com/patchsim/engine/annotate"
	"github.com/patchsim/engine/entity"
	"github.com/patchsim/engine/handler"
	"github.com/patchsim/engine/scope"
	"github.com/patchsim/engine/simerrors"
	"github.com/patchsim/engine/value"
)

// HereFunc returns the patch entity backing e's `here` scope (e itself if
// e IS a patch).
type HereFunc func(e *entity.Entity) *entity.Entity

// AllFunc produces the `all` distribution available to every resolution.
type AllFunc func() (value.Value, error)

// ExternalFactory returns the `external NAME` lookup closure for e,
// capturing e's geometry for the fetch.
type ExternalFactory func(e *entity.Entity) scope.ExternalFunc

// RNGFunc returns the deterministic per-patch random stream backing e's
// distribution sampling (spec §5).
type RNGFunc func(e *entity.Entity) *rand.Rand

// AssertionSink receives the pass/fail outcome of an assert.* group, per
// spec §4.6's "Assertion sink".
type AssertionSink func(entityID int64, attribute string, timestep int, ok bool, message string)

// Resolver implements entity.Resolver, wired into every entity at model
// setup via Entity.SetResolver.
type Resolver struct {
	meta      *entity.Entity
	here      HereFunc
	all       AllFunc
	external  ExternalFactory
	rng       RNGFunc
	assert    AssertionSink
	collector *annotate.Collector

	timestep int
}

// New builds a Resolver. meta is the simulation entity; here locates an
// entity's patch; all and external back the corresponding Scope names; rng
// (optional) attaches the deterministic per-patch random stream; assert
// receives assertion-group outcomes; collector (optional) receives
// resolve/cycle annotations when a circular dependency is detected.
func New(meta *entity.Entity, here HereFunc, all AllFunc, external ExternalFactory, rng RNGFunc, assert AssertionSink, collector *annotate.Collector) *Resolver {
	return &Resolver{meta: meta, here: here, all: all, external: external, rng: rng, assert: assert, collector: collector}
}

// SetTimestep records the timestep presently running, attached to any
// error or assertion result produced during this substep.
func (r *Resolver) SetTimestep(t int) { r.timestep = t }

// Timestep returns the timestep presently running, so an external-fetch
// helper built against this Resolver can tag its fetches correctly.
func (r *Resolver) Timestep() int { return r.timestep }

// SetExternal attaches the `external NAME` factory after construction,
// letting callers build it from a DataSourceFetcher bound to this
// Resolver's own Timestep method (resolver.New(..., nil, ...) followed by
// SetExternal breaks that constructor-argument cycle).
func (r *Resolver) SetExternal(external ExternalFactory) { r.external = external }

func (r *Resolver) scopeFor(e *entity.Entity) *scope.Scope {
	here := e
	if r.here != nil {
		if h := r.here(e); h != nil {
			here = h
		}
	}
	var externalFn scope.ExternalFunc
	if r.external != nil {
		externalFn = r.external(e)
	}
	env := scope.New(e, here, r.meta, scope.AllFunc(r.all), externalFn)
	if r.rng != nil {
		if rng := r.rng(e); rng != nil {
			env = env.WithRNG(rng)
		}
	}
	return env
}

// Resolve implements spec §4.3 exactly: cache check, cycle check, the
// bitset fast path (consulted only to skip the lookup entirely, never to
// infer whether a conditional handler would fire — spec §9), group lookup,
// selector/callable iteration, and the prior fallback when no handler in
// the group fires.
func (r *Resolver) Resolve(e *entity.Entity, attribute string, event handler.Event) (value.Value, error) {
	if v, ok := e.CacheGet(attribute); ok {
		return v, nil
	}
	if e.InCycle(attribute) {
		if r.collector != nil {
			r.collector.Add(annotate.Event{Name: annotate.ResolveCycle, Data: map[string]interface{}{
				"entity": e.ID(), "attribute": attribute, "timestep": r.timestep,
			}})
		}
		return value.Value{}, simerrors.New(simerrors.CircularDependency, e.ID(), attribute, r.timestep,
			"attribute is already being resolved higher up this entity's call stack")
	}

	slot := e.Type().SlotIndex(attribute)
	if slot < 0 {
		return value.Value{}, simerrors.New(simerrors.CompileTime, e.ID(), attribute, r.timestep,
			"attribute not declared on this entity type")
	}

	// Fast path: spec §9 — this bitset answers "does ANY handler exist for
	// (attribute,event)", not "would one fire". It must only ever gate
	// skipping the lookup below, never substitute for running it.
	if !e.Type().Table.HasAnyHandler(slot, event) {
		return r.priorFallback(e, attribute), nil
	}

	e.EnterCycle(attribute)
	groups := e.Type().Table.GroupsFor(attribute, event, e.State())
	if len(groups) == 0 {
		e.ExitCycle(attribute)
		return r.priorFallback(e, attribute), nil
	}

	env := r.scopeFor(e)
	group := groups[0]
	for _, h := range group.Handlers {
		if h.Selector != nil {
			ok, err := h.Selector(env)
			if err != nil {
				e.ExitCycle(attribute)
				return value.Value{}, simerrors.Wrap(simerrors.TypeError, e.ID(), attribute, r.timestep,
					"selector evaluation failed", err)
			}
			if !ok {
				continue
			}
		}

		result, err := h.Callable(env)
		if err != nil {
			e.ExitCycle(attribute)
			return value.Value{}, err
		}

		if group.IsAssertion() {
			return r.finishAssertion(e, attribute, result)
		}

		e.SetSlot(attribute, result)
		e.CacheSet(attribute, result)
		e.ExitCycle(attribute)
		return result, nil
	}

	// No handler in the group matched any selector: fall through to prior.
	e.ExitCycle(attribute)
	return r.priorFallback(e, attribute), nil
}

func (r *Resolver) priorFallback(e *entity.Entity, attribute string) value.Value {
	v, ok := e.PriorValue(attribute)
	if !ok {
		v = value.Value{}
	}
	e.CacheSet(attribute, v)
	return v
}

func (r *Resolver) finishAssertion(e *entity.Entity, attribute string, result value.Value) (value.Value, error) {
	e.CacheSet(attribute, result)
	e.ExitCycle(attribute)
	ok, isBool := result.AsBool()
	if !isBool {
		return value.Value{}, simerrors.New(simerrors.TypeError, e.ID(), attribute, r.timestep,
			"assertion group must evaluate to a boolean")
	}
	if r.assert != nil {
		r.assert(e.ID(), attribute, r.timestep, ok, attribute)
	}
	if !ok {
		return result, simerrors.New(simerrors.AssertionFailed, e.ID(), attribute, r.timestep,
			"assertion returned false")
	}
	return result, nil
}

var _ entity.Resolver = (*Resolver)(nil)
