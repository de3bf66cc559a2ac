// Package handler implements the compiled per-EntityType handler table of
// spec §4.1: the (state, attribute, event) -> EventHandlerGroup map, plus
// its two precomputed acceleration structures.
package handler

import (
	"fmt"
	"math/rand"

	"github.com/patchsim/engine/ident"
	"github.com/patchsim/engine/value"
)

// Event is one of the four substep phases, per spec §3.
type Event int

const (
	Init Event = iota
	Start
	Step
	End
)

func (e Event) String() string {
	switch e {
	case Init:
		return "init"
	case Start:
		return "start"
	case Step:
		return "step"
	case End:
		return "end"
	default:
		return "unknown"
	}
}

// AssertionPrefix is the reserved attribute-name prefix that marks an
// EventHandlerGroup as an assertion group (spec §3).
const AssertionPrefix = "assert."

// EventKey is the composite identity of a handler binding: (state,
// attribute, event). state == "" means "applies in every state". Keys are
// interned (via their attribute/state Keywords) for cheap comparison, per
// spec §3.
type EventKey struct {
	State     *ident.Keyword // nil means default (every state)
	Attribute *ident.Keyword
	Event     Event
}

// NewEventKey interns state and attribute and returns the composite key.
// Pass state == "" for a default-state (unscoped) key.
func NewEventKey(state, attribute string, event Event) EventKey {
	var stateKw *ident.Keyword
	if state != "" {
		stateKw = ident.InternKeyword(state)
	}
	return EventKey{
		State:     stateKw,
		Attribute: ident.InternKeyword(attribute),
		Event:     event,
	}
}

func (k EventKey) String() string {
	state := "*"
	if k.State != nil {
		state = k.State.String()
	}
	return fmt.Sprintf("(%s, %s, %s)", state, k.Attribute.String(), k.Event)
}

// Env is the variable-resolution environment handlers and selectors
// evaluate against: package scope's *scope.Scope implements it. Declaring
// the interface here (rather than depending on package scope directly)
// keeps handler a leaf package: scope depends on handler for EntityType,
// not the reverse.
type Env interface {
	// Current resolves attribute on the entity the handler is evaluating
	// for (spec §4.4: "current.X / bare X").
	Current(attribute string) (value.Value, error)
	// Prior reads attribute as of the end of the previous timestep.
	Prior(attribute string) (value.Value, error)
	// Here resolves attribute on the entity's patch.
	Here(attribute string) (value.Value, error)
	// Meta resolves attribute on the simulation entity.
	Meta(attribute string) (value.Value, error)
	// All returns the unrestricted distribution of all realized-in-sight
	// entities.
	All() (value.Value, error)
	// Var looks up a free variable bound by an enclosing block.
	Var(name string) (value.Value, bool)
	// External fetches external data at the current geometry.
	External(name string) (value.Value, error)
}

// RNGSource is an optional capability an Env may satisfy, letting a
// Callable that samples an analytic distribution (`sample uniform from ...`)
// type-assert for the deterministic per-patch random stream (spec §5)
// without widening the base Env interface every Callable must otherwise
// satisfy.
type RNGSource interface {
	RNG() *rand.Rand
}

// Callable computes a new attribute value given an Env. It returns a Value
// or propagates an evaluation error, which the resolver unwinds (spec §7).
type Callable func(env Env) (value.Value, error)

// Selector evaluates to a boolean that gates a handler's execution. A
// non-boolean result is a TypeError (spec §7).
type Selector func(env Env) (bool, error)

// EventHandler is a single (callable, optional selector) pair (spec §3).
type EventHandler struct {
	Callable Callable
	Selector Selector // nil means unconditional
}

// HasSelector reports whether this handler is conditional.
func (h EventHandler) HasSelector() bool {
	return h.Selector != nil
}

// EventHandlerGroup is an ordered list of EventHandlers sharing an
// EventKey, representing an if/elif/else chain. At most one handler per
// group fires per resolution (spec §3).
type EventHandlerGroup struct {
	Key      EventKey
	Handlers []EventHandler
}

// IsAssertion reports whether this group's attribute begins with the
// reserved "assert." prefix (spec §3): assertion groups do not write
// attributes, they produce pass/fail diagnostics.
func (g EventHandlerGroup) IsAssertion() bool {
	return len(g.Key.Attribute.String()) >= len(AssertionPrefix) &&
		g.Key.Attribute.String()[:len(AssertionPrefix)] == AssertionPrefix
}

// Declaration is one compiled (attribute, event, optional state, optional
// selector, callable) input to BuildTable, mirroring spec §4.1's input
// shape.
type Declaration struct {
	Attribute string
	Event     Event
	State     string // "" for default/unscoped
	Selector  Selector
	Callable  Callable
}

// EntityType is the compile-time shared record per model-declared entity
// type: ordered attribute names, name->slot index, and the full handler
// table with its acceleration structures (spec §3).
type EntityType struct {
	Name           string
	AttributeNames []string
	slotIndex      map[string]int
	Table          *Table
}

// NewEntityType compiles declarations into an EntityType. Called once per
// model load; the result is immutable and safe for concurrent read.
func NewEntityType(name string, attributeNames []string, decls []Declaration) (*EntityType, error) {
	slotIndex := make(map[string]int, len(attributeNames))
	for i, a := range attributeNames {
		if _, dup := slotIndex[a]; dup {
			return nil, fmt.Errorf("handler: CompileTimeError: duplicate attribute %q on entity type %q", a, name)
		}
		slotIndex[a] = i
	}
	for _, d := range decls {
		if _, ok := slotIndex[d.Attribute]; !ok {
			return nil, fmt.Errorf("handler: CompileTimeError: handler declared for undefined attribute %q on entity type %q", d.Attribute, name)
		}
	}
	table, err := buildTable(attributeNames, slotIndex, decls)
	if err != nil {
		return nil, err
	}
	return &EntityType{
		Name:           name,
		AttributeNames: attributeNames,
		slotIndex:      slotIndex,
		Table:          table,
	}, nil
}

// SlotIndex returns the slot index for attribute, or -1 if undeclared.
func (t *EntityType) SlotIndex(attribute string) int {
	if i, ok := t.slotIndex[attribute]; ok {
		return i
	}
	return -1
}

// NumSlots returns the number of attribute slots.
func (t *EntityType) NumSlots() int {
	return len(t.AttributeNames)
}
