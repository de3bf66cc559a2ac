package value

import (
	"fmt"
	"math/big"
)

// rank orders numeric kinds from least to most lossy, per spec §3:
// "Numeric operations widen toward the lossier type". Integer is exact and
// least lossy; Decimal is exact but arbitrary-precision; Double is
// floating-point and most lossy.
func rank(k Kind) int {
	switch k {
	case KindInteger:
		return 0
	case KindDecimal:
		return 1
	case KindDouble:
		return 2
	default:
		return -1
	}
}

func wider(a, b Kind) Kind {
	if rank(a) >= rank(b) {
		return a
	}
	return b
}

// Add adds two numeric Values. Addition requires equal units (spec §3);
// returns a TypeError-shaped error otherwise.
func Add(a, b Value) (Value, error) {
	if err := requireNumeric(a, b, "+"); err != nil {
		return Value{}, err
	}
	if !a.units.Equal(b.units) {
		return Value{}, unitMismatchError("+", a, b)
	}
	return combine(a, b, func(x, y int64) int64 { return x + y },
		func(x, y *big.Rat) *big.Rat { return new(big.Rat).Add(x, y) },
		func(x, y float64) float64 { return x + y },
		a.units)
}

// Sub subtracts b from a. Subtraction requires equal units (spec §3).
func Sub(a, b Value) (Value, error) {
	if err := requireNumeric(a, b, "-"); err != nil {
		return Value{}, err
	}
	if !a.units.Equal(b.units) {
		return Value{}, unitMismatchError("-", a, b)
	}
	return combine(a, b, func(x, y int64) int64 { return x - y },
		func(x, y *big.Rat) *big.Rat { return new(big.Rat).Sub(x, y) },
		func(x, y float64) float64 { return x - y },
		a.units)
}

// Mul multiplies a and b, producing a derived unit (spec §3).
func Mul(a, b Value) (Value, error) {
	if err := requireNumeric(a, b, "*"); err != nil {
		return Value{}, err
	}
	return combine(a, b, func(x, y int64) int64 { return x * y },
		func(x, y *big.Rat) *big.Rat { return new(big.Rat).Mul(x, y) },
		func(x, y float64) float64 { return x * y },
		a.units.Mul(b.units))
}

// Div divides a by b, producing a derived unit (spec §3).
func Div(a, b Value) (Value, error) {
	if err := requireNumeric(a, b, "/"); err != nil {
		return Value{}, err
	}
	if isZero(b) {
		return Value{}, fmt.Errorf("value: division by zero")
	}
	return combine(a, b, func(x, y int64) int64 { return x / y },
		func(x, y *big.Rat) *big.Rat { return new(big.Rat).Quo(x, y) },
		func(x, y float64) float64 { return x / y },
		a.units.Div(b.units))
}

func isZero(v Value) bool {
	switch v.kind {
	case KindInteger:
		return v.i == 0
	case KindDecimal:
		return v.dec.Sign() == 0
	case KindDouble:
		return v.d == 0
	}
	return false
}

func requireNumeric(a, b Value, op string) error {
	if !a.isNumeric() || !b.isNumeric() {
		return fmt.Errorf("value: TypeError: %q is not defined on %s and %s", op, a.kind, b.kind)
	}
	return nil
}

func unitMismatchError(op string, a, b Value) error {
	return fmt.Errorf("value: TypeError: %q requires equal units, got %s and %s (use `force as` to cast)",
		op, a.units, b.units)
}

func combine(a, b Value, intOp func(int64, int64) int64, decOp func(*big.Rat, *big.Rat) *big.Rat,
	dblOp func(float64, float64) float64, resultUnits Units) (Value, error) {
	switch wider(a.kind, b.kind) {
	case KindInteger:
		return Int(intOp(a.i, b.i), resultUnits), nil
	case KindDecimal:
		return Decimal(decOp(asRat(a), asRat(b)), resultUnits), nil
	case KindDouble:
		return Double(dblOp(a.AsFloat64(), b.AsFloat64()), resultUnits), nil
	default:
		return Value{}, fmt.Errorf("value: cannot combine non-numeric kinds %s and %s", a.kind, b.kind)
	}
}

func asRat(v Value) *big.Rat {
	switch v.kind {
	case KindDecimal:
		return v.dec
	case KindInteger:
		return new(big.Rat).SetInt64(v.i)
	default:
		r := new(big.Rat)
		r.SetFloat64(v.d)
		return r
	}
}

// Compare compares two Values of the same kind family, following the
// teacher's "cascade of type-specific comparators, -1/0/1" convention.
// Numeric comparisons require equal units unless both are dimensionless.
// Non-numeric, non-matching kinds return (0, error).
func Compare(a, b Value) (int, error) {
	if a.isNumeric() && b.isNumeric() {
		if !a.units.Equal(b.units) {
			return 0, unitMismatchError("compare", a, b)
		}
		switch wider(a.kind, b.kind) {
		case KindInteger:
			return compareInt64(a.i, b.i), nil
		case KindDecimal:
			return asRat(a).Cmp(asRat(b)), nil
		default:
			return compareFloat64(a.AsFloat64(), b.AsFloat64()), nil
		}
	}
	if a.kind != b.kind {
		return 0, fmt.Errorf("value: TypeError: cannot compare %s and %s", a.kind, b.kind)
	}
	switch a.kind {
	case KindBoolean:
		return compareBool(a.b, b.b), nil
	case KindString:
		return compareString(a.s, b.s), nil
	case KindEntityRef:
		return compareInt64(a.ref.ID, b.ref.ID), nil
	default:
		return 0, fmt.Errorf("value: TypeError: %s is not ordered", a.kind)
	}
}

// Equal reports value equality, treating unit mismatches as inequality
// rather than an error (mirrors the teacher's ValuesEqual, which never
// errors).
func Equal(a, b Value) bool {
	n, err := Compare(a, b)
	return err == nil && n == 0
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Cast converts v to the target Kind. Lossy numeric casts (Double->Integer,
// Decimal->Integer) require force=true, matching spec §7's "cast failure
// without force" TypeError.
func Cast(v Value, target Kind, force bool) (Value, error) {
	if v.kind == target {
		return v, nil
	}
	switch target {
	case KindInteger:
		switch v.kind {
		case KindDecimal:
			if !force && !v.dec.IsInt() {
				return Value{}, fmt.Errorf("value: TypeError: lossy cast decimal->int requires `force`")
			}
			f, _ := v.dec.Float64()
			return Int(int64(f), v.units), nil
		case KindDouble:
			if !force {
				return Value{}, fmt.Errorf("value: TypeError: lossy cast double->int requires `force`")
			}
			return Int(int64(v.d), v.units), nil
		}
	case KindDouble:
		if v.isNumeric() {
			return Double(v.AsFloat64(), v.units), nil
		}
	case KindDecimal:
		switch v.kind {
		case KindInteger:
			return Decimal(new(big.Rat).SetInt64(v.i), v.units), nil
		case KindDouble:
			if !force {
				return Value{}, fmt.Errorf("value: TypeError: lossy cast double->decimal requires `force`")
			}
			r := new(big.Rat)
			r.SetFloat64(v.d)
			return Decimal(r, v.units), nil
		}
	case KindString:
		return String(v.String()), nil
	}
	return Value{}, fmt.Errorf("value: TypeError: cannot cast %s to %s", v.kind, target)
}
