package financial

import (
	"math/big"
	"strings"

	"github.com/quantfabric/fincore/pkg/faults"
)

// RoundMode selects how a quantity is adjusted to a target number of
// fractional digits.
type RoundMode int

const (
	// ModeCeil rounds toward positive infinity.
	ModeCeil RoundMode = iota
	// ModeFloor rounds toward negative infinity.
	ModeFloor
	// ModeRound rounds to the nearest value; an exact half moves away
	// from zero.
	ModeRound
	// ModeTrunc rounds toward zero.
	ModeTrunc
)

var roundModeNames = map[RoundMode]string{
	ModeCeil:  "ceil",
	ModeFloor: "floor",
	ModeRound: "round",
	ModeTrunc: "trunc",
}

func (m RoundMode) String() string {
	if name, ok := roundModeNames[m]; ok {
		return name
	}
	return "unknown"
}

func (m RoundMode) valid() bool {
	_, ok := roundModeNames[m]
	return ok
}

// ParseRoundMode maps a case-insensitive mode name ("ceil", "floor",
// "round", "trunc") to its RoundMode.
func ParseRoundMode(s string) (RoundMode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for mode, n := range roundModeNames {
		if n == name {
			return mode, nil
		}
	}
	return 0, faults.Argumentf("%q is not a rounding mode", s)
}

// MarshalText renders the mode name.
func (m RoundMode) MarshalText() ([]byte, error) {
	if !m.valid() {
		return nil, faults.Argumentf("%d is not a rounding mode", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText parses a mode name.
func (m *RoundMode) UnmarshalText(text []byte) error {
	mode, err := ParseRoundMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// pow10 returns 10^n for n >= 0. Small powers are cached; callers must not
// mutate the result.
var pow10cache = func() []*big.Int {
	cache := make([]*big.Int, 32)
	v := big.NewInt(1)
	for i := range cache {
		cache[i] = new(big.Int).Set(v)
		v.Mul(v, bigTen)
	}
	return cache
}()

func pow10(n int) *big.Int {
	if n < len(pow10cache) {
		return pow10cache[n]
	}
	return new(big.Int).Exp(bigTen, big.NewInt(int64(n)), nil)
}

// divRound divides num by den (den > 0) and rounds the quotient per mode.
// This is the single rounding kernel: every precision-taking operation
// funnels through it, so the mode semantics cannot drift between them.
func divRound(num, den *big.Int, mode RoundMode) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() == 0 {
		return q
	}
	negative := num.Sign() < 0
	switch mode {
	case ModeTrunc:
		// QuoRem already truncates toward zero.
	case ModeCeil:
		if !negative {
			q.Add(q, bigOne)
		}
	case ModeFloor:
		if negative {
			q.Sub(q, bigOne)
		}
	case ModeRound:
		doubled := new(big.Int).Abs(r)
		doubled.Mul(doubled, bigTwo)
		if doubled.Cmp(den) >= 0 {
			if negative {
				q.Sub(q, bigOne)
			} else {
				q.Add(q, bigOne)
			}
		}
	}
	return q
}

// rescaleCoef moves a coefficient from one scale to another. Growing the
// scale is exact; shrinking it rounds per mode.
func rescaleCoef(coef *big.Int, from, to int, mode RoundMode) *big.Int {
	switch {
	case to == from:
		return new(big.Int).Set(coef)
	case to > from:
		return new(big.Int).Mul(coef, pow10(to-from))
	default:
		return divRound(coef, pow10(from-to), mode)
	}
}

func checkPrecision(fracDigits int, mode RoundMode) error {
	if fracDigits < 0 {
		return faults.Argumentf("fractional digits must not be negative, got %d", fracDigits)
	}
	if !mode.valid() {
		return faults.Argumentf("%d is not a rounding mode", int(mode))
	}
	return nil
}

// Round adjusts the value to exactly fracDigits fractional digits using
// mode. A target wider than the current scale pads with zeros exactly.
func (f Financial) Round(fracDigits int, mode RoundMode) (Financial, error) {
	if err := checkPrecision(fracDigits, mode); err != nil {
		return Financial{}, err
	}
	coef := rescaleCoef(f.unscaled(), f.scale, fracDigits, mode)
	return Financial{coef: coef, scale: fracDigits}, nil
}

// Mul returns f * o rounded to fracDigits fractional digits using mode.
func (f Financial) Mul(o Financial, fracDigits int, mode RoundMode) (Financial, error) {
	if err := checkPrecision(fracDigits, mode); err != nil {
		return Financial{}, err
	}
	raw := new(big.Int).Mul(f.unscaled(), o.unscaled())
	coef := rescaleCoef(raw, f.scale+o.scale, fracDigits, mode)
	return Financial{coef: coef, scale: fracDigits}, nil
}

// Div returns f / o rounded to fracDigits fractional digits using mode.
// Dividing by zero is rejected with an ArgumentError.
func (f Financial) Div(o Financial, fracDigits int, mode RoundMode) (Financial, error) {
	if err := checkPrecision(fracDigits, mode); err != nil {
		return Financial{}, err
	}
	if o.IsZero() {
		return Financial{}, faults.Argumentf("division by zero")
	}

	// f/o = coefF·10^(scaleO - scaleF) / coefO; shift so the integer
	// quotient lands at exactly fracDigits fractional digits.
	num := new(big.Int).Set(f.unscaled())
	den := new(big.Int).Set(o.unscaled())
	exp := o.scale - f.scale + fracDigits
	if exp >= 0 {
		num.Mul(num, pow10(exp))
	} else {
		den.Mul(den, pow10(-exp))
	}
	if den.Sign() < 0 {
		num.Neg(num)
		den.Neg(den)
	}
	return Financial{coef: divRound(num, den, mode), scale: fracDigits}, nil
}

// Mod returns the remainder of truncated division f / o, presented at
// fracDigits fractional digits using mode. The remainder carries the sign
// of the dividend. A zero divisor is rejected with an ArgumentError.
func (f Financial) Mod(o Financial, fracDigits int, mode RoundMode) (Financial, error) {
	if err := checkPrecision(fracDigits, mode); err != nil {
		return Financial{}, err
	}
	if o.IsZero() {
		return Financial{}, faults.Argumentf("modulo by zero")
	}

	// Bring both operands to the common scale scaleF+scaleO; the integer
	// remainder at that scale is the exact decimal remainder.
	num := new(big.Int).Mul(f.unscaled(), pow10(o.scale))
	den := new(big.Int).Mul(o.unscaled(), pow10(f.scale))
	rem := new(big.Int).Rem(num, den)
	coef := rescaleCoef(rem, f.scale+o.scale, fracDigits, mode)
	return Financial{coef: coef, scale: fracDigits}, nil
}
