// Package value implements the engine's tagged Value variant: scalars and
// distributions, each carrying Units and a LanguageType tag, with
// unit-aware arithmetic, comparison, casting, and sampling.
package value

import (
	"fmt"
	"math/big"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindBoolean Kind = iota
	KindInteger
	KindDecimal
	KindDouble
	KindString
	KindEntityRef
	KindDistribution
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "int"
	case KindDecimal:
		return "decimal"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindEntityRef:
		return "entity"
	case KindDistribution:
		return "distribution"
	default:
		return "unknown"
	}
}

// LanguageType is the introspection tag a handler or selector can query,
// e.g. "does this attribute contain entities?".
type LanguageType struct {
	Kind            Kind
	ContainsEntities bool
}

// EntityRef is an opaque reference to an entity instance: its stable
// sequence id and declared type name. The value package never dereferences
// it; stepper.Registry resolves it against the live entity graph.
type EntityRef struct {
	ID       int64
	TypeName string
}

func (r EntityRef) String() string {
	return fmt.Sprintf("%s#%d", r.TypeName, r.ID)
}

// Value is the tagged variant described in spec §3: Boolean, Integer,
// Decimal (arbitrary-precision), Double, String, EntityRef, or
// Distribution, each carrying Units.
type Value struct {
	kind  Kind
	units Units

	b    bool
	i    int64
	dec  *big.Rat
	d    float64
	s    string
	ref  EntityRef
	dist Distribution
}

// Bool constructs a Boolean Value (always dimensionless).
func Bool(b bool) Value {
	return Value{kind: KindBoolean, b: b, units: Dimensionless()}
}

// Int constructs an Integer Value with the given Units.
func Int(i int64, u Units) Value {
	return Value{kind: KindInteger, i: i, units: u}
}

// Decimal constructs an arbitrary-precision Decimal Value with the given
// Units.
func Decimal(r *big.Rat, u Units) Value {
	return Value{kind: KindDecimal, dec: new(big.Rat).Set(r), units: u}
}

// DecimalFromString parses a decimal literal into an arbitrary-precision
// Decimal Value.
func DecimalFromString(s string, u Units) (Value, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Value{}, fmt.Errorf("value: %q is not a valid decimal literal", s)
	}
	return Decimal(r, u), nil
}

// Double constructs a floating-point Value with the given Units.
func Double(d float64, u Units) Value {
	return Value{kind: KindDouble, d: d, units: u}
}

// String constructs a String Value (always dimensionless).
func String(s string) Value {
	return Value{kind: KindString, s: s, units: Dimensionless()}
}

// Ref constructs an EntityRef Value (always dimensionless).
func Ref(r EntityRef) Value {
	return Value{kind: KindEntityRef, ref: r, units: Dimensionless()}
}

// FromDistribution constructs a Distribution-kinded Value wrapping dist.
func FromDistribution(dist Distribution) Value {
	return Value{kind: KindDistribution, dist: dist, units: dist.Units()}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// Units returns the Units carried by this Value.
func (v Value) Units() Units { return v.units }

// LanguageType returns the introspection tag for this Value.
func (v Value) LanguageType() LanguageType {
	lt := LanguageType{Kind: v.kind}
	switch v.kind {
	case KindEntityRef:
		lt.ContainsEntities = true
	case KindDistribution:
		lt.ContainsEntities = v.dist.ContainsEntities()
	}
	return lt
}

// AsBool returns the Boolean payload; ok is false if the Value is not a
// Boolean.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBoolean
}

// AsInt returns the Integer payload; ok is false if the Value is not an
// Integer.
func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == KindInteger
}

// AsDecimal returns the Decimal payload; ok is false if the Value is not a
// Decimal.
func (v Value) AsDecimal() (*big.Rat, bool) {
	if v.kind != KindDecimal {
		return nil, false
	}
	return v.dec, true
}

// AsDouble returns the Double payload; ok is false if the Value is not a
// Double.
func (v Value) AsDouble() (float64, bool) {
	return v.d, v.kind == KindDouble
}

// AsString returns the String payload; ok is false if the Value is not a
// String.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// AsRef returns the EntityRef payload; ok is false if the Value is not an
// EntityRef.
func (v Value) AsRef() (EntityRef, bool) {
	return v.ref, v.kind == KindEntityRef
}

// AsDistribution returns the Distribution payload; ok is false if the Value
// is not a Distribution.
func (v Value) AsDistribution() (Distribution, bool) {
	return v.dist, v.kind == KindDistribution
}

// AsFloat64 widens any numeric kind (Integer/Decimal/Double) to a float64
// for display or comparison against a non-exact representation. It panics
// if v is not numeric; callers must check Kind first.
func (v Value) AsFloat64() float64 {
	switch v.kind {
	case KindInteger:
		return float64(v.i)
	case KindDecimal:
		f, _ := v.dec.Float64()
		return f
	case KindDouble:
		return v.d
	default:
		panic(fmt.Sprintf("value: AsFloat64 called on non-numeric kind %s", v.kind))
	}
}

func (v Value) isNumeric() bool {
	switch v.kind {
	case KindInteger, KindDecimal, KindDouble:
		return true
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindBoolean:
		return fmt.Sprintf("%v", v.b)
	case KindInteger:
		return fmt.Sprintf("%d%s", v.i, unitSuffix(v.units))
	case KindDecimal:
		return fmt.Sprintf("%s%s", v.dec.RatString(), unitSuffix(v.units))
	case KindDouble:
		return fmt.Sprintf("%g%s", v.d, unitSuffix(v.units))
	case KindString:
		return v.s
	case KindEntityRef:
		return v.ref.String()
	case KindDistribution:
		return fmt.Sprintf("Distribution(%s)", v.units)
	default:
		return "<invalid value>"
	}
}

func unitSuffix(u Units) string {
	if u.IsDimensionless() {
		return ""
	}
	return " " + u.String()
}

// Option is a possibly-absent Value, used for attribute slots that have not
// yet been resolved.
type Option struct {
	value Value
	has   bool
}

// Some wraps a present Value.
func Some(v Value) Option {
	return Option{value: v, has: true}
}

// None is the absent Option.
func None() Option {
	return Option{}
}

// Get returns the wrapped Value and whether it is present.
func (o Option) Get() (Value, bool) {
	return o.value, o.has
}

// MustGet returns the wrapped Value, panicking if absent. Callers must
// check IsSome first in any path where absence is expected.
func (o Option) MustGet() Value {
	if !o.has {
		panic("value: MustGet called on an absent Option")
	}
	return o.value
}

// IsSome reports whether a Value is present.
func (o Option) IsSome() bool {
	return o.has
}
