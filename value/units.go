package value

import "fmt"

// Units is a canonical product-of-powers over base unit tokens,
// e.g. "m" -> 1, "s" -> -1 represents meters per second. An empty Units is
// dimensionless.
type Units map[string]int

// Dimensionless is the empty unit product.
func Dimensionless() Units {
	return Units{}
}

// UnitOf builds a Units value with a single base token raised to power 1.
func UnitOf(token string) Units {
	return Units{token: 1}
}

// Equal reports whether two unit products are identical after dropping
// zero-power entries.
func (u Units) Equal(other Units) bool {
	return u.normalized().equalNormalized(other.normalized())
}

func (u Units) normalized() Units {
	out := Units{}
	for k, v := range u {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

func (u Units) equalNormalized(other Units) bool {
	if len(u) != len(other) {
		return false
	}
	for k, v := range u {
		if other[k] != v {
			return false
		}
	}
	return true
}

// Mul returns the unit product of u and other, used for multiplication of
// quantities.
func (u Units) Mul(other Units) Units {
	out := Units{}
	for k, v := range u {
		out[k] += v
	}
	for k, v := range other {
		out[k] += v
	}
	return out.normalized()
}

// Div returns the unit quotient of u by other, used for division of
// quantities.
func (u Units) Div(other Units) Units {
	out := Units{}
	for k, v := range u {
		out[k] += v
	}
	for k, v := range other {
		out[k] -= v
	}
	return out.normalized()
}

// IsDimensionless reports whether this is the empty unit product.
func (u Units) IsDimensionless() bool {
	return len(u.normalized()) == 0
}

func (u Units) String() string {
	n := u.normalized()
	if len(n) == 0 {
		return "1"
	}
	s := ""
	for k, v := range n {
		if s != "" {
			s += "*"
		}
		if v == 1 {
			s += k
		} else {
			s += fmt.Sprintf("%s^%d", k, v)
		}
	}
	return s
}

// conversion is a registered unit alias or conversion callable to a
// canonical unit.
type conversion struct {
	canonical string
	toFactor  func(v float64) float64
	fromOffset bool
}

// Registry is the model's unit registry: a mapping from unit name to
// either an alias of another unit or a conversion callable to a canonical
// unit. Declared up front and immutable after model load, per spec §3.
type Registry struct {
	conversions map[string]conversion
	sealed      bool
}

// NewRegistry creates an empty, mutable unit registry. Call Seal once model
// load has registered every unit; after Seal, Convert and Canonical are
// safe for concurrent read-only use with no further mutation permitted.
func NewRegistry() *Registry {
	return &Registry{conversions: make(map[string]conversion)}
}

// Declare registers a unit name as a linear conversion to a canonical unit:
// canonicalValue = scale*value + offset.
func (r *Registry) Declare(name, canonical string, scale, offset float64) error {
	if r.sealed {
		return fmt.Errorf("unit registry: cannot declare %q after Seal", name)
	}
	r.conversions[name] = conversion{
		canonical: canonical,
		toFactor: func(v float64) float64 {
			return scale*v + offset
		},
	}
	return nil
}

// DeclareAlias registers name as a pure alias of canonical (scale 1, offset 0).
func (r *Registry) DeclareAlias(name, canonical string) error {
	return r.Declare(name, canonical, 1, 0)
}

// Seal freezes the registry. After Seal, Declare returns an error.
func (r *Registry) Seal() {
	r.sealed = true
}

// Canonical returns the canonical unit name for a declared unit, or name
// itself if it is already canonical (never declared as an alias).
func (r *Registry) Canonical(name string) string {
	if c, ok := r.conversions[name]; ok {
		return c.canonical
	}
	return name
}

// Convert converts v from "from" units to "to" units. If the two units are
// not both convertible to the same canonical unit, ok is false: callers
// must treat this as a TypeError unless the model used `force as`.
func (r *Registry) Convert(v float64, from, to string) (result float64, ok bool) {
	if from == to {
		return v, true
	}
	fromCanon, fromFactor := r.resolve(from, v)
	toCanon, _ := r.resolve(to, 0)
	if fromCanon != toCanon {
		return 0, false
	}
	// invert the "to" conversion to go canonical -> to
	toConv, hasTo := r.conversions[to]
	if !hasTo {
		return fromFactor, true
	}
	return inverseLinear(toConv, fromFactor), true
}

func (r *Registry) resolve(name string, v float64) (canonical string, canonicalValue float64) {
	c, ok := r.conversions[name]
	if !ok {
		return name, v
	}
	return c.canonical, c.toFactor(v)
}

// inverseLinear inverts a declared scale/offset conversion assuming it was
// built via Declare(name, canonical, scale, offset). Since we only store
// the forward closure, we recover scale/offset by probing at 0 and 1.
func inverseLinear(c conversion, canonicalValue float64) float64 {
	zero := c.toFactor(0)
	one := c.toFactor(1)
	scale := one - zero
	offset := zero
	if scale == 0 {
		return canonicalValue
	}
	return (canonicalValue - offset) / scale
}
