package value

import (
	"fmt"
	"math"
	"math/big"
	"math/rand"
)

// decimalPreference is the run-wide default for places where this package
// must manufacture a divisor or literal rather than being handed one with
// an existing Kind (Mean's division by element count is the only such
// site today). SetDecimalPreference is the consumer of spec §6/§9's
// favorBigDecimal run option; everywhere else, a computation's Kind is
// already determined by its operands via combine's widening rule.
var decimalPreference = false

// SetDecimalPreference sets whether Decimal (arbitrary-precision) is
// favored over Double (floating-point) wherever this package must choose a
// representation on its own.
func SetDecimalPreference(favorBigDecimal bool) { decimalPreference = favorBigDecimal }

// UnknownSize marks a Distribution whose size is infinite or not statically
// known (e.g. an analytic normal distribution), per spec §3.
const UnknownSize = -1

// Distribution is a collection-valued Value: analytic (uniform, normal) or
// realized (a finite sequence). Sampling never requires realization;
// slicing, counting and concatenation do.
type Distribution interface {
	// Sample draws one Value from the distribution using rng.
	Sample(rng *rand.Rand) Value
	// Size returns the number of elements, or UnknownSize if infinite or
	// not statically known.
	Size() int
	// Units returns the Units carried by the distribution as a whole.
	Units() Units
	// Contents realizes the distribution into a finite concrete sequence.
	// Analytic distributions without a finite realization return an error.
	Contents() ([]Value, error)
	// ContainsEntities reports whether realized elements are EntityRef
	// values, used by LanguageType introspection.
	ContainsEntities() bool
}

// Realized is a already-materialized Distribution: a concrete, ordered
// sequence of Values sharing a common Units.
type Realized struct {
	items []Value
	units Units
}

// NewRealized builds a Realized distribution from a concrete sequence.
func NewRealized(items []Value, u Units) *Realized {
	cp := make([]Value, len(items))
	copy(cp, items)
	return &Realized{items: cp, units: u}
}

func (r *Realized) Sample(rng *rand.Rand) Value {
	if len(r.items) == 0 {
		return Value{}
	}
	return r.items[rng.Intn(len(r.items))]
}

func (r *Realized) Size() int     { return len(r.items) }
func (r *Realized) Units() Units  { return r.units }
func (r *Realized) Contents() ([]Value, error) {
	out := make([]Value, len(r.items))
	copy(out, r.items)
	return out, nil
}

func (r *Realized) ContainsEntities() bool {
	for _, v := range r.items {
		if v.Kind() == KindEntityRef {
			return true
		}
	}
	return false
}

// Filter slices a Realized distribution by a parallel boolean selector
// distribution, per spec §3 ("slicing by a boolean selector over a
// parallel distribution yields a filtered sequence").
func (r *Realized) Filter(selector []bool) (*Realized, error) {
	if len(selector) != len(r.items) {
		return nil, fmt.Errorf("value: filter selector length %d does not match distribution length %d",
			len(selector), len(r.items))
	}
	out := make([]Value, 0, len(r.items))
	for i, keep := range selector {
		if keep {
			out = append(out, r.items[i])
		}
	}
	return NewRealized(out, r.units), nil
}

// Concat implements the "pipe" operator: sequence concatenation. Both
// sides must share Units.
func Concat(a, b *Realized) (*Realized, error) {
	if !a.units.Equal(b.units) {
		return nil, fmt.Errorf("value: TypeError: cannot concatenate distributions of units %s and %s", a.units, b.units)
	}
	out := make([]Value, 0, len(a.items)+len(b.items))
	out = append(out, a.items...)
	out = append(out, b.items...)
	return NewRealized(out, a.units), nil
}

// Count returns the number of realized elements.
func Count(d Distribution) (int, error) {
	items, err := d.Contents()
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Mean returns the arithmetic mean of a numeric distribution's realized
// contents.
func Mean(d Distribution) (Value, error) {
	items, err := d.Contents()
	if err != nil {
		return Value{}, err
	}
	if len(items) == 0 {
		return Value{}, fmt.Errorf("value: cannot take mean of an empty distribution")
	}
	sum := items[0]
	for _, v := range items[1:] {
		sum, err = Add(sum, v)
		if err != nil {
			return Value{}, fmt.Errorf("value: mean: %w", err)
		}
	}
	count := Double(float64(len(items)), Dimensionless())
	if decimalPreference {
		count = Decimal(new(big.Rat).SetInt64(int64(len(items))), Dimensionless())
	}
	return Div(sum, count)
}

// Uniform is an analytic continuous uniform distribution over [low, high).
// Its Size is UnknownSize until realized via Realize.
type Uniform struct {
	Low, High float64
	units     Units
}

// NewUniform constructs an analytic uniform distribution.
func NewUniform(low, high float64, u Units) *Uniform {
	return &Uniform{Low: low, High: high, units: u}
}

func (u *Uniform) Sample(rng *rand.Rand) Value {
	v := u.Low + rng.Float64()*(u.High-u.Low)
	return Double(v, u.units)
}

func (u *Uniform) Size() int    { return UnknownSize }
func (u *Uniform) Units() Units { return u.units }

func (u *Uniform) Contents() ([]Value, error) {
	return nil, fmt.Errorf("value: uniform distribution has no finite realization; sample it or call Realize(n)")
}

func (u *Uniform) ContainsEntities() bool { return false }

// Realize draws n independent samples into a Realized distribution, the
// mechanism by which an analytic distribution becomes usable with
// per-element operations (spec §3).
func (u *Uniform) Realize(rng *rand.Rand, n int) *Realized {
	items := make([]Value, n)
	for i := range items {
		items[i] = u.Sample(rng)
	}
	return NewRealized(items, u.units)
}

// Normal is an analytic normal distribution with given mean and standard
// deviation.
type Normal struct {
	Mean, StdDev float64
	units        Units
}

// NewNormal constructs an analytic normal distribution.
func NewNormal(mean, stddev float64, u Units) *Normal {
	return &Normal{Mean: mean, StdDev: stddev, units: u}
}

func (n *Normal) Sample(rng *rand.Rand) Value {
	return Double(n.Mean+rng.NormFloat64()*n.StdDev, n.units)
}

func (n *Normal) Size() int    { return UnknownSize }
func (n *Normal) Units() Units { return n.units }

func (n *Normal) Contents() ([]Value, error) {
	return nil, fmt.Errorf("value: normal distribution has no finite realization; sample it or call Realize(n)")
}

func (n *Normal) ContainsEntities() bool { return false }

// Realize draws n independent samples into a Realized distribution.
func (n *Normal) Realize(rng *rand.Rand, count int) *Realized {
	items := make([]Value, count)
	for i := range items {
		items[i] = n.Sample(rng)
	}
	return NewRealized(items, n.units)
}

// StdDevOf computes the population standard deviation of a numeric
// distribution's realized contents, used by assertion/export handlers that
// summarize a spread.
func StdDevOf(d Distribution) (float64, error) {
	items, err := d.Contents()
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, fmt.Errorf("value: cannot take stddev of an empty distribution")
	}
	mean := 0.0
	for _, v := range items {
		mean += v.AsFloat64()
	}
	mean /= float64(len(items))
	variance := 0.0
	for _, v := range items {
		d := v.AsFloat64() - mean
		variance += d * d
	}
	variance /= float64(len(items))
	return math.Sqrt(variance), nil
}
