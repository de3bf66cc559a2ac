package handler

import "fmt"

// Table is the compiled handler table for one EntityType: the interned
// EventKey -> EventHandlerGroup map plus the two acceleration tables of
// spec §4.1.
type Table struct {
	// groups holds one merged EventHandlerGroup per distinct EventKey;
	// state-scoped and default-state groups for the same (attribute,
	// event) are kept as separate entries; GroupsFor picks the state-scoped
	// one when it exists for the current state, else the default one.
	groups map[EventKey]EventHandlerGroup

	// attributesWithHandlers[event] is a bitset over slot indices: true
	// iff any handler (conditional or not) is registered for that
	// attribute under that event. Computed once; never invalidated
	// (spec §9).
	attributesWithHandlers [4]bitset

	// commonHandlerCache unions handler groups across all states and
	// events for a given attribute, used when state changes mid-substep
	// (spec §3's EntityType definition).
	commonHandlerCache map[string][]EventHandlerGroup

	anyStateScoped bool

	cache *GroupCache
}

func buildTable(attributeNames []string, slotIndex map[string]int, decls []Declaration) (*Table, error) {
	t := &Table{
		groups:             make(map[EventKey]EventHandlerGroup),
		commonHandlerCache: make(map[string][]EventHandlerGroup),
	}
	for e := range t.attributesWithHandlers {
		t.attributesWithHandlers[e] = newBitset(len(attributeNames))
	}

	for _, d := range decls {
		if d.State != "" {
			t.anyStateScoped = true
		}
		key := NewEventKey(d.State, d.Attribute, d.Event)
		g, exists := t.groups[key]
		if !exists {
			g = EventHandlerGroup{Key: key}
		}
		g.Handlers = append(g.Handlers, EventHandler{Callable: d.Callable, Selector: d.Selector})
		t.groups[key] = g

		slot, ok := slotIndex[d.Attribute]
		if !ok {
			return nil, fmt.Errorf("handler: CompileTimeError: undefined attribute %q", d.Attribute)
		}
		t.attributesWithHandlers[d.Event].set(slot)
	}

	for key, g := range t.groups {
		t.commonHandlerCache[key.Attribute.String()] = append(t.commonHandlerCache[key.Attribute.String()], g)
	}

	t.cache = NewGroupCache()
	return t, nil
}

// RequiresState reports whether any `state` stanza appears in this table
// (spec §4.1).
func (t *Table) RequiresState() bool {
	return t.anyStateScoped
}

// HasAnyHandler is the O(1) bitset lookup of spec §4.1: true iff any
// handler at all is registered for (attribute, event), regardless of
// whether its selectors would actually fire. Per spec §9 this must be
// consulted only to skip the handler lookup entirely, never to infer
// whether a handler will fire.
func (t *Table) HasAnyHandler(slot int, event Event) bool {
	return t.attributesWithHandlers[event].test(slot)
}

// GroupsFor returns the ordered list of EventHandlerGroups applicable to
// (attribute, event, currentState), de-duplicating between state-scoped
// and default-state bindings: a state-scoped group takes priority over the
// default group for that attribute/event pair when the entity is in that
// state (spec §4.1).
func (t *Table) GroupsFor(attribute string, event Event, currentState string) []EventHandlerGroup {
	if cached, ok := t.cache.get(attribute, event, currentState); ok {
		return cached
	}
	result := t.computeGroupsFor(attribute, event, currentState)
	t.cache.put(attribute, event, currentState, result)
	return result
}

func (t *Table) computeGroupsFor(attribute string, event Event, currentState string) []EventHandlerGroup {
	var result []EventHandlerGroup
	if currentState != "" {
		scoped := NewEventKey(currentState, attribute, event)
		if g, ok := t.groups[scoped]; ok {
			result = append(result, g)
		}
	}
	if len(result) == 0 {
		def := NewEventKey("", attribute, event)
		if g, ok := t.groups[def]; ok {
			result = append(result, g)
		}
	}
	return result
}

// CommonHandlers returns the union of EventHandlerGroups across all states
// and events for attribute, used when a state transition mid-substep needs
// to re-evaluate what could apply (spec §3).
func (t *Table) CommonHandlers(attribute string) []EventHandlerGroup {
	return t.commonHandlerCache[attribute]
}
