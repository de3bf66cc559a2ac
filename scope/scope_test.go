package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchsim/engine/entity"
	"github.com/patchsim/engine/handler"
	"github.com/patchsim/engine/value"
)

func organismType(t *testing.T) *handler.EntityType {
	t.Helper()
	et, err := handler.NewEntityType("Organism", []string{"age"}, nil)
	require.NoError(t, err)
	return et
}

func TestVarResolvesOutsideInFromInnermost(t *testing.T) {
	e := entity.New(organismType(t), "", nil, nil)
	root := New(e, e, nil, nil, nil)
	outer := root.Block(map[string]value.Value{"x": value.Int(1, value.Dimensionless())})
	inner := outer.Block(map[string]value.Value{"x": value.Int(2, value.Dimensionless())})

	v, ok := inner.Var("x")
	require.True(t, ok)
	i, _ := v.AsInt()
	assert.Equal(t, int64(2), i, "innermost binding shadows the outer one")

	v, ok = outer.Var("x")
	require.True(t, ok)
	i, _ = v.AsInt()
	assert.Equal(t, int64(1), i)

	_, ok = root.Var("x")
	assert.False(t, ok, "root scope has no bindings of its own")
}

func TestForEntitySwitchesCurrentButInheritsHereAndMeta(t *testing.T) {
	patch := entity.New(organismType(t), "", nil, nil)
	meta := entity.New(organismType(t), "", nil, nil)
	a := entity.New(organismType(t), "", nil, nil)
	b := entity.New(organismType(t), "", nil, nil)

	root := New(a, patch, meta, nil, nil)
	sub := root.ForEntity(b)

	assert.Same(t, b, sub.CurrentEntity())
	assert.Same(t, a, root.CurrentEntity())
	assert.Same(t, patch, sub.here)
	assert.Same(t, meta, sub.meta)
}

func TestAllAndExternalReturnErrorsWhenUnbound(t *testing.T) {
	e := entity.New(organismType(t), "", nil, nil)
	s := New(e, e, nil, nil, nil)

	_, err := s.All()
	assert.Error(t, err)

	_, err = s.External("rainfall")
	assert.Error(t, err)
}

func TestExternalDelegatesToBoundFunc(t *testing.T) {
	e := entity.New(organismType(t), "", nil, nil)
	called := ""
	s := New(e, e, nil, nil, func(name string) (value.Value, error) {
		called = name
		return value.Int(42, value.Dimensionless()), nil
	})

	v, err := s.External("rainfall")
	require.NoError(t, err)
	assert.Equal(t, "rainfall", called)
	i, _ := v.AsInt()
	assert.Equal(t, int64(42), i)
}
