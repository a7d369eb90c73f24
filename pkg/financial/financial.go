// Package financial implements exact decimal arithmetic for monetary
// quantities. A Financial is an immutable arbitrary-precision decimal:
// addition, subtraction and comparison are always exact, while
// multiplication, division, modulo and rounding take an explicit target
// precision and rounding mode. Values never pass through binary floating
// point, so classics like 0.1+0.2 come out as exactly 0.3.
package financial

import (
	"math/big"
	"regexp"

	"github.com/quantfabric/fincore/pkg/faults"
)

// decimalPattern is the only accepted textual form: optional sign, a whole
// part without leading zeros, and an optional non-empty fractional part.
var decimalPattern = regexp.MustCompile(`^([+-]?)(0|[1-9][0-9]*)(\.([0-9]+))?$`)

var (
	bigZero = big.NewInt(0)
	bigOne  = big.NewInt(1)
	bigTwo  = big.NewInt(2)
	bigTen  = big.NewInt(10)
)

// Financial is an exact decimal: an unscaled integer coefficient and a
// non-negative scale counting fractional digits. The zero value is the
// number zero. Values are immutable; all operations return new values.
type Financial struct {
	coef  *big.Int
	scale int
}

// Zero returns the canonical zero.
func Zero() Financial {
	return Financial{coef: new(big.Int), scale: 0}
}

// FromInt64 builds a Financial from an integer.
func FromInt64(v int64) Financial {
	return Financial{coef: big.NewInt(v), scale: 0}
}

// Parse builds a Financial from its canonical text form. Anything that does
// not match the decimal grammar (empty strings, leading zeros, lone signs,
// trailing dots, exponents) is rejected with an ArgumentError.
func Parse(s string) (Financial, error) {
	m := decimalPattern.FindStringSubmatch(s)
	if m == nil {
		return Financial{}, faults.Argumentf("%q is not a decimal", s)
	}
	sign, whole, frac := m[1], m[2], m[4]

	coef, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return Financial{}, faults.Argumentf("%q is not a decimal", s)
	}
	if sign == "-" {
		coef.Neg(coef)
	}
	return Financial{coef: coef, scale: len(frac)}, nil
}

// MustParse is Parse for trusted literals; it panics on malformed input.
func MustParse(s string) Financial {
	f, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return f
}

// unscaled returns the coefficient, treating the zero value as zero.
func (f Financial) unscaled() *big.Int {
	if f.coef == nil {
		return bigZero
	}
	return f.coef
}

// Scale returns the number of fractional digits the value carries.
func (f Financial) Scale() int {
	return f.scale
}

// Sign returns -1, 0 or +1.
func (f Financial) Sign() int {
	return f.unscaled().Sign()
}

// IsZero reports whether the value is numerically zero.
func (f Financial) IsZero() bool {
	return f.unscaled().Sign() == 0
}

// String renders the canonical form: a leading '-' only for negative
// values, a whole part without leading zeros, and exactly Scale fractional
// digits. Zero is always unsigned.
func (f Financial) String() string {
	coef := f.unscaled()
	digits := new(big.Int).Abs(coef).String()
	if f.scale == 0 {
		if coef.Sign() < 0 {
			return "-" + digits
		}
		return digits
	}
	for len(digits) <= f.scale {
		digits = "0" + digits
	}
	cut := len(digits) - f.scale
	out := digits[:cut] + "." + digits[cut:]
	if coef.Sign() < 0 {
		out = "-" + out
	}
	return out
}

// aligned returns both coefficients brought to the common (maximum) scale.
func aligned(a, b Financial) (ca, cb *big.Int, scale int) {
	ca, cb = a.unscaled(), b.unscaled()
	scale = a.scale
	switch {
	case a.scale < b.scale:
		scale = b.scale
		ca = new(big.Int).Mul(ca, pow10(b.scale-a.scale))
	case b.scale < a.scale:
		cb = new(big.Int).Mul(cb, pow10(a.scale-b.scale))
	}
	return ca, cb, scale
}

// Cmp compares numerically: -1 if f < o, 0 if equal, +1 if f > o.
// Padding differences such as 1.5 vs 1.50 compare equal.
func (f Financial) Cmp(o Financial) int {
	ca, cb, _ := aligned(f, o)
	return ca.Cmp(cb)
}

// Equals reports numeric equality.
func (f Financial) Equals(o Financial) bool { return f.Cmp(o) == 0 }

// Gt reports f > o.
func (f Financial) Gt(o Financial) bool { return f.Cmp(o) > 0 }

// Gte reports f >= o.
func (f Financial) Gte(o Financial) bool { return f.Cmp(o) >= 0 }

// Lt reports f < o.
func (f Financial) Lt(o Financial) bool { return f.Cmp(o) < 0 }

// Lte reports f <= o.
func (f Financial) Lte(o Financial) bool { return f.Cmp(o) <= 0 }

// Add returns f + o exactly. The result scale is the larger of the two.
func (f Financial) Add(o Financial) Financial {
	ca, cb, scale := aligned(f, o)
	return Financial{coef: new(big.Int).Add(ca, cb), scale: scale}
}

// Sub returns f - o exactly. The result scale is the larger of the two.
func (f Financial) Sub(o Financial) Financial {
	ca, cb, scale := aligned(f, o)
	return Financial{coef: new(big.Int).Sub(ca, cb), scale: scale}
}

// Neg returns the additive inverse. Negating zero stays zero.
func (f Financial) Neg() Financial {
	return Financial{coef: new(big.Int).Neg(f.unscaled()), scale: f.scale}
}

// Abs returns the absolute value.
func (f Financial) Abs() Financial {
	return Financial{coef: new(big.Int).Abs(f.unscaled()), scale: f.scale}
}
