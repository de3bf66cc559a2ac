// Package stepper implements the timestep/substep phase machine of spec
// §4.5: beginStep/start/step/end in sequence, patch-parallel fan-out, the
// two-pass discovery walk that finds entity-bearing attribute slots, and
// the publish/swap that freezes prior at each timestep boundary. Grounded
// on the teacher's storage/database.go transaction-commit cycle (an
// in-flight Transaction becomes the new committed Database atomically) and
// its executor.WorkerPool for the patch fan-out.
package stepper

import (
	"github.com/patchsim/engine/annotate"
	"github.com/patchsim/engine/entity"
	"github.com/patchsim/engine/handler"
	"github.com/patchsim/engine/value"
)

// discoverChildren enumerates E's attribute slots that presently hold an
// entity-bearing value (a single EntityRef or a distribution of them),
// resolved against reg. Reads the live slot, not the resolved value — this
// pass runs before E's own handlers fire for this substep, per spec §4.5.
func discoverChildren(e *entity.Entity, reg *Registry) []*entity.Entity {
	var out []*entity.Entity
	for _, attr := range e.Type().AttributeNames {
		v, ok := e.SlotValue(attr)
		if !ok {
			continue
		}
		out = append(out, entitiesIn(v, reg)...)
	}
	return out
}

func entitiesIn(v value.Value, reg *Registry) []*entity.Entity {
	switch v.Kind() {
	case value.KindEntityRef:
		ref, _ := v.AsRef()
		if child, ok := reg.Lookup(ref.ID); ok {
			return []*entity.Entity{child}
		}
		return nil
	case value.KindDistribution:
		dist, _ := v.AsDistribution()
		if !dist.ContainsEntities() {
			return nil
		}
		items, err := dist.Contents()
		if err != nil {
			// Analytic, non-entity distributions never contain refs; an
			// unrealizable entity-bearing distribution is a modeling error
			// the discovery pass silently tolerates rather than aborting a
			// substep over bookkeeping.
			return nil
		}
		var out []*entity.Entity
		for _, item := range items {
			if item.Kind() != value.KindEntityRef {
				continue
			}
			ref, _ := item.AsRef()
			if child, ok := reg.Lookup(ref.ID); ok {
				out = append(out, child)
			}
		}
		return out
	default:
		return nil
	}
}

// RunSubstep executes spec §4.5's runSubstep(E, V) recursively: discovery
// pass before E's own handlers, attribute resolution in declaration order,
// and a second discovery pass over anything E spawned during this call.
// collector (optional) receives a discovery/spawned annotation for every
// child a parent spawns mid-substep.
func RunSubstep(e *entity.Entity, event handler.Event, reg *Registry, collector *annotate.Collector) error {
	e.BeginSubstep(event)

	for _, child := range discoverChildren(e, reg) {
		if err := RunSubstep(child, event, reg, collector); err != nil {
			return err
		}
	}

	for _, attr := range e.Type().AttributeNames {
		if _, err := e.Get(attr); err != nil {
			return err
		}
	}

	for _, child := range e.DrainSpawned() {
		reg.Register(child)
		if collector != nil {
			collector.Add(annotate.Event{Name: annotate.DiscoverySpawned, Data: map[string]interface{}{
				"parent": e.ID(), "child": child.ID(), "type": child.Type().Name, "substep": event.String(),
			}})
		}
		if err := catchUpSpawned(child, event, reg, collector); err != nil {
			return err
		}
	}

	e.EndSubstep()
	return nil
}

// catchUpSpawned brings a newly created child through whichever substeps
// of the current timestep it missed by not existing at the moment its
// parent began resolving V (spec §4.5's second discovery pass rule).
func catchUpSpawned(child *entity.Entity, event handler.Event, reg *Registry, collector *annotate.Collector) error {
	events := []handler.Event{handler.Init}
	switch event {
	case handler.Start:
		events = append(events, handler.Start)
	case handler.Step:
		events = append(events, handler.Start, handler.Step)
	case handler.End:
		// Init only; start/step/end are deferred to next timestep.
	}
	for _, ev := range events {
		if err := RunSubstep(child, ev, reg, collector); err != nil {
			return err
		}
	}
	return nil
}
