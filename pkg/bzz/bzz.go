// Package bzz represents BZZ token amounts. One BZZ is 10^16 PLUR, the
// unit Bee uses on the wire; amounts are kept as big integers of PLUR.
package bzz

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Decimals is the number of PLUR decimal places in one BZZ.
const Decimals = 16

var ErrInvalidAmount = errors.New("bzz: invalid amount")

// Amount is an immutable PLUR value.
type Amount struct {
	plur *big.Int
}

// FromPLUR copies v. A nil v is zero.
func FromPLUR(v *big.Int) Amount {
	if v == nil {
		return Amount{plur: new(big.Int)}
	}
	return Amount{plur: new(big.Int).Set(v)}
}

func FromInt64(v int64) Amount {
	return Amount{plur: big.NewInt(v)}
}

// ParsePLUR parses a base 10 PLUR string as returned by the Bee API.
func ParsePLUR(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return Amount{plur: v}, nil
}

// FromBZZ converts a whole BZZ count, used for fixed balances in dev mode.
func FromBZZ(v int64) Amount {
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)
	return Amount{plur: new(big.Int).Mul(big.NewInt(v), unit)}
}

// PLUR returns a copy of the underlying value.
func (a Amount) PLUR() *big.Int {
	if a.plur == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.plur)
}

func (a Amount) Cmp(b Amount) int {
	return a.PLUR().Cmp(b.PLUR())
}

// ToBZZ formats the amount with precision decimals, truncating the rest.
func (a Amount) ToBZZ(precision int) string {
	precision = min(max(precision, 0), Decimals)
	plur := a.PLUR()

	neg := plur.Sign() < 0
	plur.Abs(plur)

	scaled := plur.Quo(plur, pow10(Decimals-precision))
	if precision == 0 {
		return sign(neg) + scaled.String()
	}

	whole, frac := new(big.Int).QuoRem(scaled, pow10(precision), new(big.Int))
	digits := frac.String()
	digits = strings.Repeat("0", precision-len(digits)) + digits
	return sign(neg) + whole.String() + "." + digits
}

// Float64 is lossy and only meant for gauges.
func (a Amount) Float64() float64 {
	f, _ := new(big.Rat).SetFrac(a.PLUR(), pow10(Decimals)).Float64()
	return f
}

// String renders two decimals, the precision used in logs and alerts.
func (a Amount) String() string {
	return a.ToBZZ(2)
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func sign(neg bool) string {
	if neg {
		return "-"
	}
	return ""
}
