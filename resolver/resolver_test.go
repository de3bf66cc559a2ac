package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchsim/engine/entity"
	"github.com/patchsim/engine/handler"
	"github.com/patchsim/engine/simerrors"
	"github.com/patchsim/engine/value"
)

func wireEntity(e *entity.Entity, r *Resolver) { e.SetResolver(r) }

func intv(i int64) value.Value { return value.Int(i, value.Dimensionless()) }

func TestFastPathReturnsPriorWhenNoHandlerRegistered(t *testing.T) {
	et, err := handler.NewEntityType("Rock", []string{"mass"}, nil)
	require.NoError(t, err)

	e := entity.New(et, "", nil, nil)
	e.BeginSubstep(handler.Step)
	e.SetSlot("mass", intv(5))
	e.EndSubstep()
	e.PublishPrior()
	e.BeginSubstep(handler.Step)

	r := New(nil, nil, nil, nil, nil, nil, nil)
	wireEntity(e, r)

	v, err := e.Get("mass")
	require.NoError(t, err)
	i, _ := v.AsInt()
	assert.Equal(t, int64(5), i)
}

// TestConditionalHandlerAlwaysConsultedEvenWhenSelectorFalse is the
// regression test for the fast-path-over-conditional-handler pitfall: a
// registered handler with a selector that evaluates false must still fall
// through to the prior value, not bypass resolution entirely as if no
// handler existed.
func TestConditionalHandlerAlwaysConsultedEvenWhenSelectorFalse(t *testing.T) {
	calls := 0
	et, err := handler.NewEntityType("Tree", []string{"age"}, []handler.Declaration{
		{
			Attribute: "age",
			Event:     handler.Step,
			Selector: func(env handler.Env) (bool, error) {
				calls++
				return false, nil
			},
			Callable: func(env handler.Env) (value.Value, error) { return intv(99), nil },
		},
	})
	require.NoError(t, err)

	e := entity.New(et, "", nil, nil)
	e.BeginSubstep(handler.Step)
	e.SetSlot("age", intv(3))
	e.EndSubstep()
	e.PublishPrior()
	e.BeginSubstep(handler.Step)

	r := New(nil, nil, nil, nil, nil, nil, nil)
	wireEntity(e, r)

	v, err := e.Get("age")
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "selector must be consulted even though it was registered")
	i, _ := v.AsInt()
	assert.Equal(t, int64(3), i, "falls through to prior when the selector is false")
}

func TestUnconditionalHandlerWritesSlotAndCache(t *testing.T) {
	et, err := handler.NewEntityType("Tree", []string{"age"}, []handler.Declaration{
		{Attribute: "age", Event: handler.Step, Callable: func(env handler.Env) (value.Value, error) {
			prior, err := env.Prior("age")
			if err != nil {
				return value.Value{}, err
			}
			n, _ := prior.AsInt()
			return intv(n + 1), nil
		}},
	})
	require.NoError(t, err)

	e := entity.New(et, "", nil, nil)
	e.BeginSubstep(handler.Step)
	e.SetSlot("age", intv(4))
	e.EndSubstep()
	e.PublishPrior()
	e.BeginSubstep(handler.Step)

	r := New(nil, nil, nil, nil, nil, nil, nil)
	wireEntity(e, r)

	v, err := e.Get("age")
	require.NoError(t, err)
	i, _ := v.AsInt()
	assert.Equal(t, int64(5), i)

	cached, ok := e.CacheGet("age")
	require.True(t, ok)
	ci, _ := cached.AsInt()
	assert.Equal(t, int64(5), ci)
}

func TestCircularDependencyRaisesError(t *testing.T) {
	et, err := handler.NewEntityType("Loop", []string{"a", "b"}, []handler.Declaration{
		{Attribute: "a", Event: handler.Step, Callable: func(env handler.Env) (value.Value, error) {
			return env.Current("b")
		}},
		{Attribute: "b", Event: handler.Step, Callable: func(env handler.Env) (value.Value, error) {
			return env.Current("a")
		}},
	})
	require.NoError(t, err)

	e := entity.New(et, "", nil, nil)
	e.BeginSubstep(handler.Step)

	r := New(nil, nil, nil, nil, nil, nil, nil)
	wireEntity(e, r)

	_, err = e.Get("a")
	require.Error(t, err)
	kind, ok := simerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, simerrors.CircularDependency, kind)
}

func TestAssertionGroupReportsFailureAndRaisesError(t *testing.T) {
	et, err := handler.NewEntityType("Guard", []string{"assert.positive"}, []handler.Declaration{
		{Attribute: "assert.positive", Event: handler.Step, Callable: func(env handler.Env) (value.Value, error) {
			return value.Bool(false), nil
		}},
	})
	require.NoError(t, err)

	e := entity.New(et, "", nil, nil)
	e.BeginSubstep(handler.Step)

	var reportedOK *bool
	r := New(nil, nil, nil, nil, nil, func(entityID int64, attribute string, timestep int, ok bool, message string) {
		reportedOK = &ok
	}, nil)
	wireEntity(e, r)

	_, err = e.Get("assert.positive")
	require.Error(t, err)
	kind, ok := simerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, simerrors.AssertionFailed, kind)
	require.NotNil(t, reportedOK)
	assert.False(t, *reportedOK)
}
