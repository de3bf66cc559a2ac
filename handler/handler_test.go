package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchsim/engine/value"
)

func constCallable(v value.Value) Callable {
	return func(env Env) (value.Value, error) { return v, nil }
}

func TestHasAnyHandlerBitsetIsStaticAfterBuild(t *testing.T) {
	et, err := NewEntityType("Tree", []string{"age"}, []Declaration{
		{Attribute: "age", Event: Step, Callable: constCallable(value.Int(1, value.Dimensionless()))},
	})
	require.NoError(t, err)

	assert.True(t, et.Table.HasAnyHandler(0, Step))
	assert.False(t, et.Table.HasAnyHandler(0, Start))
}

func TestGroupsForPrefersStateScopedOverDefault(t *testing.T) {
	et, err := NewEntityType("Organism", []string{"state", "risk"}, []Declaration{
		{Attribute: "risk", Event: Step, Callable: constCallable(value.Int(1, value.Dimensionless()))},
		{Attribute: "risk", Event: Step, State: "adult", Callable: constCallable(value.Int(2, value.Dimensionless()))},
	})
	require.NoError(t, err)

	adultGroups := et.Table.GroupsFor("risk", Step, "adult")
	require.Len(t, adultGroups, 1)
	assert.Equal(t, "adult", adultGroups[0].Key.State.String())

	seedGroups := et.Table.GroupsFor("risk", Step, "seed")
	require.Len(t, seedGroups, 1)
	assert.Nil(t, seedGroups[0].Key.State)
}

func TestGroupsForMergesMultipleDeclarationsIntoOneGroup(t *testing.T) {
	et, err := NewEntityType("Tree", []string{"size"}, []Declaration{
		{Attribute: "size", Event: Step, Selector: func(env Env) (bool, error) { return false, nil },
			Callable: constCallable(value.Int(1, value.Dimensionless()))},
		{Attribute: "size", Event: Step, Callable: constCallable(value.Int(2, value.Dimensionless()))},
	})
	require.NoError(t, err)

	groups := et.Table.GroupsFor("size", Step, "")
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Handlers, 2)
}

func TestAssertionGroupDetection(t *testing.T) {
	key := NewEventKey("", "assert.count", Step)
	g := EventHandlerGroup{Key: key}
	assert.True(t, g.IsAssertion())

	key2 := NewEventKey("", "count", Step)
	g2 := EventHandlerGroup{Key: key2}
	assert.False(t, g2.IsAssertion())
}

func TestDuplicateAttributeIsCompileTimeError(t *testing.T) {
	_, err := NewEntityType("Bad", []string{"age", "age"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CompileTimeError")
}

func TestHandlerForUndefinedAttributeIsCompileTimeError(t *testing.T) {
	_, err := NewEntityType("Bad", []string{"age"}, []Declaration{
		{Attribute: "height", Event: Step, Callable: constCallable(value.Int(1, value.Dimensionless()))},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CompileTimeError")
}
