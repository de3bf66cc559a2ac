package externalcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchsim/engine/geo"
	"github.com/patchsim/engine/value"
)

func TestPutGetRoundTrip(t *testing.T) {
	c, err := Open("")
	require.NoError(t, err)
	defer c.Close()

	g := geo.NewRect(0, 0, 10, 10)
	dist := value.NewRealized([]value.Value{
		value.Double(1.5, value.UnitOf("mm")),
		value.Double(2.5, value.UnitOf("mm")),
	}, value.UnitOf("mm"))

	require.NoError(t, c.Put("rainfall", g, 3, dist))

	got, ok, err := c.Get("rainfall", g, 3)
	require.NoError(t, err)
	require.True(t, ok)

	items, err := got.Contents()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.InDelta(t, 1.5, items[0].AsFloat64(), 1e-9)
	assert.InDelta(t, 2.5, items[1].AsFloat64(), 1e-9)
}

func TestGetMissReportsNotFound(t *testing.T) {
	c, err := Open("")
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get("rainfall", geo.NewRect(0, 0, 1, 1), 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDistinctGeometryOrTimestepMisses(t *testing.T) {
	c, err := Open("")
	require.NoError(t, err)
	defer c.Close()

	g1 := geo.NewRect(0, 0, 1, 1)
	g2 := geo.NewRect(5, 5, 6, 6)
	dist := value.NewRealized([]value.Value{value.Int(7, value.Dimensionless())}, value.Dimensionless())

	require.NoError(t, c.Put("soil", g1, 1, dist))

	_, ok, err := c.Get("soil", g2, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.Get("soil", g1, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}
