package stepper

import (
	"context"
	"strings"
	"time"

	"github.com/patchsim/engine/annotate"
	"github.com/patchsim/engine/entity"
	"github.com/patchsim/engine/external"
	"github.com/patchsim/engine/handler"
	"github.com/patchsim/engine/resolver"
)

// ExportAttributePrefix marks an attribute for export-stream emission
// after every `end` substep (spec §4.6).
const ExportAttributePrefix = "export."

// Stepper drives the timestep/substep phase machine of spec §4.5 across
// the simulation entity and the patch set, publishing prior snapshots and
// draining exports at each timestep boundary.
type Stepper struct {
	sim     *entity.Entity
	patches []*entity.Entity

	reg        *Registry
	pool       *WorkerPool
	res        *resolver.Resolver
	collector  *annotate.Collector
	exportSink external.ExportSink

	patchID map[int64]string

	stepsLow, stepsHigh int
}

// New builds a Stepper. sim is the simulation entity (already SetResolver
// wired); cells is the constructed patch grid; res is the shared Resolver;
// collector (optional) receives lifecycle annotations; exportSink
// (optional) receives export.* records.
func New(sim *entity.Entity, cells []external.PatchCell, reg *Registry, pool *WorkerPool, res *resolver.Resolver, collector *annotate.Collector, exportSink external.ExportSink, stepsLow, stepsHigh int) *Stepper {
	s := &Stepper{
		reg: reg, pool: pool, res: res, collector: collector, exportSink: exportSink,
		sim: sim, stepsLow: stepsLow, stepsHigh: stepsHigh,
		patchID: make(map[int64]string, len(cells)),
	}
	reg.Register(sim)
	s.patches = make([]*entity.Entity, 0, len(cells))
	for _, c := range cells {
		reg.Register(c.Entity)
		s.patches = append(s.patches, c.Entity)
		s.patchID[c.Entity.ID()] = c.ID
	}
	return s
}

// Run executes every timestep in [stepsLow, stepsHigh], checking ctx for
// cancellation at each substep barrier (spec §5).
func (s *Stepper) Run(ctx context.Context) error {
	if s.collector != nil {
		s.collector.Add(annotate.Event{Name: annotate.RunBegin, Data: map[string]interface{}{
			"steps.low": s.stepsLow, "steps.high": s.stepsHigh,
		}})
	}

	var runErr error
	timesteps := 0
	for t := s.stepsLow; t <= s.stepsHigh; t++ {
		s.res.SetTimestep(t)
		if s.collector != nil {
			s.collector.Add(annotate.Event{Name: annotate.TimestepBegin, Data: map[string]interface{}{"timestep": t}})
		}

		if t == s.stepsLow {
			if err := s.runPhase(ctx, handler.Init); err != nil {
				runErr = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		phaseErr := s.runPhase(ctx, handler.Start)
		if phaseErr == nil {
			phaseErr = s.runPhase(ctx, handler.Step)
		}
		if phaseErr == nil {
			phaseErr = s.runPhase(ctx, handler.End)
		}
		if phaseErr != nil {
			runErr = phaseErr
			break
		}

		exported := s.exportPass(t)
		s.publishAll()
		timesteps++

		if s.collector != nil {
			s.collector.Add(annotate.Event{Name: annotate.TimestepPublish, Data: map[string]interface{}{
				"timestep": t, "export.count": exported,
			}})
		}

		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
	}

	if s.collector != nil {
		data := map[string]interface{}{"success": runErr == nil, "timesteps": timesteps}
		if runErr != nil {
			data["error"] = runErr.Error()
		}
		s.collector.Add(annotate.Event{Name: annotate.RunComplete, Data: data})
	}
	return runErr
}

// runPhase runs one substep event: the simulation entity first and alone,
// then the patch set concurrently through the worker pool (spec §5: "the
// simulation entity is processed alone before the patch fan-out").
func (s *Stepper) runPhase(ctx context.Context, event handler.Event) error {
	start := time.Now()
	if s.collector != nil {
		s.collector.Add(annotate.Event{Name: annotate.SubstepBegin, Data: map[string]interface{}{
			"substep": event.String(), "entity.count": len(s.patches) + 1,
		}})
	}

	s.sim.Lock()
	err := RunSubstep(s.sim, event, s.reg, s.collector)
	s.sim.Unlock()
	if err != nil {
		return err
	}

	inputs := make([]interface{}, len(s.patches))
	for i, p := range s.patches {
		inputs[i] = p
	}
	err = s.pool.ExecuteParallel(ctx, inputs, func(ctx context.Context, in interface{}) error {
		p := in.(*entity.Entity)
		p.Lock()
		defer p.Unlock()
		return RunSubstep(p, event, s.reg, s.collector)
	})

	if s.collector != nil {
		s.collector.AddTiming(annotate.SubstepComplete, start, map[string]interface{}{"substep": event.String()})
	}
	return err
}

// exportPass walks every registered entity's export.* attributes after the
// `end` substep, before prior is published, and returns the record count
// (spec §4.6).
func (s *Stepper) exportPass(timestep int) int {
	if s.exportSink == nil {
		return 0
	}
	count := 0
	for _, e := range s.reg.All() {
		for _, attr := range e.Type().AttributeNames {
			if !strings.HasPrefix(attr, ExportAttributePrefix) {
				continue
			}
			v, ok := e.SlotValue(attr)
			if !ok {
				continue
			}
			s.exportSink.Emit(s.patchCoordOf(e), timestep, attr, v)
			count++
		}
	}
	return count
}

// patchCoordOf returns the deterministic patch id of e's nearest patch
// ancestor (self included), or "" if e has no registered patch ancestor
// (true only of the simulation entity).
func (s *Stepper) patchCoordOf(e *entity.Entity) string {
	for cur := e; cur != nil; cur = cur.Parent() {
		if id, ok := s.patchID[cur.ID()]; ok {
			return id
		}
	}
	return ""
}

// publishAll freezes every registered entity's current slots as its new
// prior snapshot, the swap point of spec §3/§4.5.
func (s *Stepper) publishAll() {
	for _, e := range s.reg.All() {
		e.PublishPrior()
	}
}
