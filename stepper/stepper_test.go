package stepper

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchsim/engine/entity"
	"github.com/patchsim/engine/external"
	"github.com/patchsim/engine/geo"
	"github.com/patchsim/engine/handler"
	"github.com/patchsim/engine/resolver"
	"github.com/patchsim/engine/scope"
	"github.com/patchsim/engine/value"
)

// countingPatchType declares a single "count" attribute that increments by
// one on every `step` substep, starting from its prior value (0 initially),
// plus an "export.count" attribute mirroring it for the export pass.
func countingPatchType(t *testing.T) *handler.EntityType {
	t.Helper()
	incr := func(env handler.Env) (value.Value, error) {
		prior, err := env.Prior("count")
		if err != nil {
			return value.Value{}, err
		}
		n, _ := prior.AsInt()
		return value.Int(n+1, value.Dimensionless()), nil
	}
	mirror := func(env handler.Env) (value.Value, error) {
		return env.Current("count")
	}
	typ, err := handler.NewEntityType("Patch", []string{"count", "export.count"}, []handler.Declaration{
		{Attribute: "count", Event: handler.Step, Callable: incr},
		{Attribute: "export.count", Event: handler.Step, Callable: mirror},
	})
	require.NoError(t, err)
	return typ
}

func simType(t *testing.T) *handler.EntityType {
	t.Helper()
	typ, err := handler.NewEntityType("Simulation", nil, nil)
	require.NoError(t, err)
	return typ
}

type recordingSink struct {
	records []string
}

func (s *recordingSink) Emit(patchCoord string, timestep int, attribute string, v value.Value) {
	n, _ := v.AsInt()
	s.records = append(s.records, patchCoord)
	_ = timestep
	_ = attribute
	_ = n
}

func TestStepperRunsMultiTimestepSingleGridCounter(t *testing.T) {
	patchTyp := countingPatchType(t)
	sim := entity.New(simType(t), "", geo.NewRect(0, 0, 1, 1), nil)

	cfg := external.GridConfig{Size: 1, HighX: 1, HighY: 1}
	cells := external.BuildPatchSet(cfg, patchTyp, "", 7)
	require.Len(t, cells, 1)

	reg := NewRegistry()
	pool := NewWorkerPool(2)

	here := func(e *entity.Entity) *entity.Entity {
		for cur := e; cur != nil; cur = cur.Parent() {
			if cur.Type().Name == "Patch" {
				return cur
			}
		}
		return nil
	}
	all := func() (value.Value, error) { return value.FromDistribution(value.NewRealized(nil, value.Dimensionless())), nil }
	externalFactory := func(e *entity.Entity) scope.ExternalFunc {
		return func(name string) (value.Value, error) { return value.Value{}, assert.AnError }
	}

	res := resolver.New(sim, here, all, externalFactory, nil, nil, nil)
	sim.SetResolver(res)
	for _, c := range cells {
		c.Entity.SetResolver(res)
	}

	sink := &recordingSink{}
	s := New(sim, cells, reg, pool, res, nil, sink, 0, 2)

	err := s.Run(context.Background())
	require.NoError(t, err)

	final, ok := cells[0].Entity.PriorValue("count")
	require.True(t, ok)
	n, _ := final.AsInt()
	assert.EqualValues(t, 3, n)
	assert.NotEmpty(t, sink.records)
}

func TestStepperHonorsContextCancellation(t *testing.T) {
	patchTyp := countingPatchType(t)
	sim := entity.New(simType(t), "", geo.NewRect(0, 0, 1, 1), nil)

	cfg := external.GridConfig{Size: 1, HighX: 2, HighY: 1}
	cells := external.BuildPatchSet(cfg, patchTyp, "", 1)

	reg := NewRegistry()
	pool := NewWorkerPool(2)
	res := resolver.New(sim, func(e *entity.Entity) *entity.Entity { return nil },
		func() (value.Value, error) { return value.Value{}, nil }, nil, nil, nil, nil)
	sim.SetResolver(res)
	for _, c := range cells {
		c.Entity.SetResolver(res)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(sim, cells, reg, pool, res, nil, nil, 0, 5)
	err := s.Run(ctx)
	assert.Error(t, err)
}

// TestDiscoverySpawnedChildReceivesStepEveryTimestepAfterward is the S2
// regression: a patch spawns a child mid-`step` once its own count reaches
// a threshold, recording the spawn as an EntityRef-valued attribute (the
// discovery pass's only way of finding a child again in a later timestep,
// spec §4.5). It asserts the child is caught up within the spawning
// timestep and then rediscovered and stepped forward on every timestep
// after that, not just the one it was born in.
func TestDiscoverySpawnedChildReceivesStepEveryTimestepAfterward(t *testing.T) {
	var sproutType *handler.EntityType
	var err error
	sproutType, err = handler.NewEntityType("Sprout", []string{"ticks"}, []handler.Declaration{
		{Attribute: "ticks", Event: handler.Step, Callable: func(env handler.Env) (value.Value, error) {
			prior, err := env.Prior("ticks")
			if err != nil {
				return value.Value{}, err
			}
			n, _ := prior.AsInt()
			return value.Int(n+1, value.Dimensionless()), nil
		}},
	})
	require.NoError(t, err)

	incrCount := func(env handler.Env) (value.Value, error) {
		prior, err := env.Prior("count")
		if err != nil {
			return value.Value{}, err
		}
		n, _ := prior.AsInt()
		return value.Int(n+1, value.Dimensionless()), nil
	}
	spawnOnce := func(env handler.Env) (value.Value, error) {
		prior, err := env.Prior("spawnedChild")
		if err != nil {
			return value.Value{}, err
		}
		if prior.Kind() == value.KindEntityRef {
			return prior, nil
		}
		current, err := env.Current("count")
		if err != nil {
			return value.Value{}, err
		}
		n, _ := current.AsInt()
		if n != 2 {
			return value.Value{}, nil
		}
		src, ok := env.(scope.SpawnSource)
		if !ok {
			return value.Value{}, fmt.Errorf("env does not support spawning")
		}
		parent := src.SpawnTarget()
		child := entity.New(sproutType, "", nil, parent)
		parent.RecordSpawn(child)
		return value.Ref(value.EntityRef{ID: child.ID(), TypeName: "Sprout"}), nil
	}

	patchTyp, err := handler.NewEntityType("Patch", []string{"count", "spawnedChild"}, []handler.Declaration{
		{Attribute: "count", Event: handler.Step, Callable: incrCount},
		{Attribute: "spawnedChild", Event: handler.Step, Callable: spawnOnce},
	})
	require.NoError(t, err)

	sim := entity.New(simType(t), "", geo.NewRect(0, 0, 1, 1), nil)
	cfg := external.GridConfig{Size: 1, HighX: 1, HighY: 1}
	cells := external.BuildPatchSet(cfg, patchTyp, "", 3)
	require.Len(t, cells, 1)

	reg := NewRegistry()
	pool := NewWorkerPool(1)
	here := func(e *entity.Entity) *entity.Entity {
		for cur := e; cur != nil; cur = cur.Parent() {
			if cur.Type().Name == "Patch" {
				return cur
			}
		}
		return nil
	}
	all := func() (value.Value, error) { return value.FromDistribution(value.NewRealized(nil, value.Dimensionless())), nil }

	res := resolver.New(sim, here, all, nil, nil, nil, nil)
	sim.SetResolver(res)
	for _, c := range cells {
		c.Entity.SetResolver(res)
	}

	s := New(sim, cells, reg, pool, res, nil, nil, 0, 4)
	require.NoError(t, s.Run(context.Background()))

	patch := cells[0].Entity
	ref, ok := patch.PriorValue("spawnedChild")
	require.True(t, ok)
	entityRef, ok := ref.AsRef()
	require.True(t, ok, "patch should still hold the spawned child's reference after the run")

	child, ok := reg.Lookup(entityRef.ID)
	require.True(t, ok, "spawned child must be registered")

	ticks, ok := child.PriorValue("ticks")
	require.True(t, ok)
	n, _ := ticks.AsInt()
	assert.EqualValues(t, 4, n, "child spawned at count==2 should have received step on every timestep since, including the one it was born in")
}
