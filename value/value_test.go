package value

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRequiresEqualUnits(t *testing.T) {
	meters := UnitOf("m")
	seconds := UnitOf("s")

	_, err := Add(Int(1, meters), Int(1, seconds))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TypeError")
}

func TestAddWidensTowardLossierType(t *testing.T) {
	m := Dimensionless()

	intPlusInt, err := Add(Int(2, m), Int(3, m))
	require.NoError(t, err)
	assert.Equal(t, KindInteger, intPlusInt.Kind())
	i, _ := intPlusInt.AsInt()
	assert.Equal(t, int64(5), i)

	dec := Decimal(big.NewRat(1, 2), m)
	intPlusDec, err := Add(Int(1, m), dec)
	require.NoError(t, err)
	assert.Equal(t, KindDecimal, intPlusDec.Kind())

	decPlusDouble, err := Add(dec, Double(0.5, m))
	require.NoError(t, err)
	assert.Equal(t, KindDouble, decPlusDouble.Kind())
}

func TestDivProducesDerivedUnits(t *testing.T) {
	meters := UnitOf("m")
	seconds := UnitOf("s")

	result, err := Div(Int(10, meters), Int(2, seconds))
	require.NoError(t, err)
	assert.False(t, result.Units().Equal(meters))
	assert.False(t, result.Units().Equal(seconds))
	assert.True(t, result.Units().Equal(meters.Div(seconds)))
}

func TestCastRequiresForceForLossyConversion(t *testing.T) {
	d := Double(1.5, Dimensionless())
	_, err := Cast(d, KindInteger, false)
	require.Error(t, err)

	forced, err := Cast(d, KindInteger, true)
	require.NoError(t, err)
	i, _ := forced.AsInt()
	assert.Equal(t, int64(1), i)
}

func TestUnitRegistryConversion(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Declare("cm", "m", 0.01, 0))
	r.Seal()

	got, ok := r.Convert(250, "cm", "m")
	require.True(t, ok)
	assert.InDelta(t, 2.5, got, 1e-9)

	back, ok := r.Convert(2.5, "m", "cm")
	require.True(t, ok)
	assert.InDelta(t, 250, back, 1e-9)
}

func TestDistributionFilterAndConcat(t *testing.T) {
	u := Dimensionless()
	d := NewRealized([]Value{Int(1, u), Int(2, u), Int(3, u)}, u)

	filtered, err := d.Filter([]bool{true, false, true})
	require.NoError(t, err)
	contents, err := filtered.Contents()
	require.NoError(t, err)
	require.Len(t, contents, 2)

	joined, err := Concat(d, filtered)
	require.NoError(t, err)
	joinedContents, err := joined.Contents()
	require.NoError(t, err)
	assert.Len(t, joinedContents, 5)
}

func TestDistributionMean(t *testing.T) {
	u := Dimensionless()
	d := NewRealized([]Value{Int(1, u), Int(2, u), Int(3, u)}, u)
	mean, err := Mean(d)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, mean.AsFloat64(), 1e-9)
}

func TestDistributionMeanFavorsDecimalWhenConfigured(t *testing.T) {
	SetDecimalPreference(true)
	defer SetDecimalPreference(false)

	u := Dimensionless()
	d := NewRealized([]Value{Int(1, u), Int(2, u), Int(3, u)}, u)
	mean, err := Mean(d)
	require.NoError(t, err)
	assert.Equal(t, KindDecimal, mean.Kind(), "an all-exact distribution's mean should stay exact under favorBigDecimal")
	r, ok := mean.AsDecimal()
	require.True(t, ok)
	assert.Equal(t, big.NewRat(2, 1), r)
}

func TestUniformDistributionHasNoFiniteContentsUntilRealized(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	uni := NewUniform(0, 1, UnitOf("m"))
	assert.Equal(t, UnknownSize, uni.Size())

	_, err := uni.Contents()
	require.Error(t, err)

	realized := uni.Realize(rng, 10)
	contents, err := realized.Contents()
	require.NoError(t, err)
	assert.Len(t, contents, 10)
}
