package financial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfabric/fincore/pkg/faults"
)

func TestRoundModeTable(t *testing.T) {
	cases := []struct {
		in     string
		digits int
		mode   RoundMode
		want   string
	}{
		// Mode boundary cases at two fractional digits.
		{"0.595", 2, ModeCeil, "0.60"},
		{"-0.595", 2, ModeCeil, "-0.59"},
		{"0.595", 2, ModeFloor, "0.59"},
		{"-0.595", 2, ModeFloor, "-0.60"},
		{"0.595", 2, ModeRound, "0.60"},
		{"0.554", 2, ModeRound, "0.55"},
		{"-0.595", 2, ModeRound, "-0.60"},
		{"-0.554", 2, ModeRound, "-0.55"},
		{"0.595", 2, ModeTrunc, "0.59"},
		{"-0.595", 2, ModeTrunc, "-0.59"},

		// Exact halves move away from zero.
		{"2.5", 0, ModeRound, "3"},
		{"-2.5", 0, ModeRound, "-3"},
		{"0.005", 2, ModeRound, "0.01"},
		{"-0.005", 2, ModeRound, "-0.01"},

		// The float trap: 2.675 rounds up because the value is exact here.
		{"2.675", 2, ModeRound, "2.68"},

		// Already-exact values survive any mode untouched.
		{"1.23", 2, ModeCeil, "1.23"},
		{"1.23", 2, ModeFloor, "1.23"},
		{"1.23", 2, ModeRound, "1.23"},
		{"1.23", 2, ModeTrunc, "1.23"},

		// Ceil and Floor are direction-, not magnitude-, oriented.
		{"0.001", 2, ModeCeil, "0.01"},
		{"-0.001", 2, ModeCeil, "0.00"},
		{"0.001", 2, ModeFloor, "0.00"},
		{"-0.001", 2, ModeFloor, "-0.01"},

		// Widening pads with zeros exactly.
		{"0.5", 3, ModeTrunc, "0.500"},
		{"7", 2, ModeRound, "7.00"},
		{"-1.2", 4, ModeCeil, "-1.2000"},

		// Whole-digit targets.
		{"123.456", 0, ModeTrunc, "123"},
		{"199.99", 0, ModeCeil, "200"},
		{"-0.49", 0, ModeFloor, "-1"},
		{"-0.49", 0, ModeRound, "0"},
	}
	for _, tc := range cases {
		in := MustParse(tc.in)
		got, err := in.Round(tc.digits, tc.mode)
		require.NoErrorf(t, err, "Round(%s, %d, %s)", tc.in, tc.digits, tc.mode)
		assert.Equalf(t, tc.want, got.String(), "Round(%s, %d, %s)", tc.in, tc.digits, tc.mode)
		assert.Equalf(t, tc.digits, got.Scale(), "Round(%s, %d, %s) scale", tc.in, tc.digits, tc.mode)
	}
}

func TestMul(t *testing.T) {
	cases := []struct {
		a, b   string
		digits int
		mode   RoundMode
		want   string
	}{
		{"1.05", "3", 2, ModeRound, "3.15"},
		{"0.1", "0.1", 2, ModeRound, "0.01"},
		{"0.1", "0.1", 1, ModeTrunc, "0.0"},
		{"0.1", "0.1", 1, ModeCeil, "0.1"},
		{"-2.5", "0.4", 2, ModeRound, "-1.00"},
		{"19.99", "0.0825", 2, ModeRound, "1.65"},
		{"19.99", "0.0825", 2, ModeCeil, "1.65"},
		{"19.99", "0.0825", 2, ModeTrunc, "1.64"},
		{"0", "123.456", 3, ModeRound, "0.000"},
		{"123456789.123456789", "987654321.987654321", 6, ModeTrunc, "121932631356500531.347203"},
	}
	for _, tc := range cases {
		a, b := MustParse(tc.a), MustParse(tc.b)
		got, err := a.Mul(b, tc.digits, tc.mode)
		require.NoErrorf(t, err, "Mul(%s, %s, %d, %s)", tc.a, tc.b, tc.digits, tc.mode)
		assert.Equalf(t, tc.want, got.String(), "Mul(%s, %s, %d, %s)", tc.a, tc.b, tc.digits, tc.mode)
	}
}

func TestDiv(t *testing.T) {
	cases := []struct {
		a, b   string
		digits int
		mode   RoundMode
		want   string
	}{
		{"1", "3", 4, ModeTrunc, "0.3333"},
		{"1", "3", 4, ModeCeil, "0.3334"},
		{"1", "3", 4, ModeRound, "0.3333"},
		{"-1", "3", 4, ModeFloor, "-0.3334"},
		{"-1", "3", 4, ModeCeil, "-0.3333"},
		{"2", "3", 4, ModeRound, "0.6667"},
		{"10", "4", 2, ModeTrunc, "2.50"},
		{"7", "2", 0, ModeRound, "4"},
		{"-7", "2", 0, ModeRound, "-4"},
		{"100", "7", 3, ModeRound, "14.286"},
		{"0.6", "0.2", 1, ModeTrunc, "3.0"},
		{"1", "-3", 2, ModeFloor, "-0.34"},
		{"-1", "-3", 2, ModeTrunc, "0.33"},
		{"0", "5", 2, ModeRound, "0.00"},
	}
	for _, tc := range cases {
		a, b := MustParse(tc.a), MustParse(tc.b)
		got, err := a.Div(b, tc.digits, tc.mode)
		require.NoErrorf(t, err, "Div(%s, %s, %d, %s)", tc.a, tc.b, tc.digits, tc.mode)
		assert.Equalf(t, tc.want, got.String(), "Div(%s, %s, %d, %s)", tc.a, tc.b, tc.digits, tc.mode)
	}
}

func TestMod(t *testing.T) {
	cases := []struct {
		a, b   string
		digits int
		mode   RoundMode
		want   string
	}{
		{"7", "3", 0, ModeTrunc, "1"},
		{"7.5", "2", 1, ModeTrunc, "1.5"},
		{"-7", "3", 0, ModeTrunc, "-1"},
		{"7", "-3", 0, ModeTrunc, "1"},
		{"5.25", "0.25", 2, ModeRound, "0.00"},
		{"10", "3", 2, ModeRound, "1.00"},
		{"3.7", "1.2", 1, ModeTrunc, "0.1"},
		{"-3.7", "1.2", 1, ModeTrunc, "-0.1"},
	}
	for _, tc := range cases {
		a, b := MustParse(tc.a), MustParse(tc.b)
		got, err := a.Mod(b, tc.digits, tc.mode)
		require.NoErrorf(t, err, "Mod(%s, %s, %d, %s)", tc.a, tc.b, tc.digits, tc.mode)
		assert.Equalf(t, tc.want, got.String(), "Mod(%s, %s, %d, %s)", tc.a, tc.b, tc.digits, tc.mode)
	}
}

func TestDivModByZero(t *testing.T) {
	a, zero := MustParse("1.5"), MustParse("0.00")

	_, err := a.Div(zero, 2, ModeRound)
	require.Error(t, err)
	assert.True(t, faults.IsArgument(err), "Div by zero: %v", err)

	_, err = a.Mod(zero, 2, ModeRound)
	require.Error(t, err)
	assert.True(t, faults.IsArgument(err), "Mod by zero: %v", err)
}

func TestPrecisionValidation(t *testing.T) {
	a, b := MustParse("1.5"), MustParse("2")

	if _, err := a.Round(-1, ModeRound); !faults.IsArgument(err) {
		t.Errorf("Round with negative digits: %v", err)
	}
	if _, err := a.Mul(b, -2, ModeRound); !faults.IsArgument(err) {
		t.Errorf("Mul with negative digits: %v", err)
	}
	if _, err := a.Div(b, 2, RoundMode(99)); !faults.IsArgument(err) {
		t.Errorf("Div with unknown mode: %v", err)
	}
	if _, err := a.Mod(b, -1, ModeTrunc); !faults.IsArgument(err) {
		t.Errorf("Mod with negative digits: %v", err)
	}
}

func TestRoundModeParse(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want RoundMode
	}{
		{"ceil", ModeCeil},
		{"FLOOR", ModeFloor},
		{" Round ", ModeRound},
		{"trunc", ModeTrunc},
	} {
		got, err := ParseRoundMode(tc.in)
		require.NoErrorf(t, err, "ParseRoundMode(%q)", tc.in)
		assert.Equal(t, tc.want, got)
	}

	_, err := ParseRoundMode("bankers")
	require.Error(t, err)
	assert.True(t, faults.IsArgument(err))
}
