package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternKeywordReturnsSamePointer(t *testing.T) {
	ClearInterns()
	a := InternKeyword("age")
	b := InternKeyword("age")
	assert.Same(t, a, b)

	c := InternKeyword("height")
	assert.NotSame(t, a, c)
}

func TestPatchIDIsDeterministic(t *testing.T) {
	a := PatchID(42, 1, 2)
	b := PatchID(42, 1, 2)
	assert.Equal(t, a, b)

	c := PatchID(42, 1, 3)
	assert.NotEqual(t, a, c)

	d := PatchID(43, 1, 2)
	assert.NotEqual(t, a, d)
}

func TestPatchRNGSeedDoesNotDependOnVisitOrder(t *testing.T) {
	seedA := PatchRNGSeed(7, 3, 4)
	seedB := PatchRNGSeed(7, 3, 4)
	assert.Equal(t, seedA, seedB)

	other := PatchRNGSeed(7, 4, 3)
	assert.NotEqual(t, seedA, other)
}
