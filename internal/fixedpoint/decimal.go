// Package fixedpoint provides an immutable decimal with 18 fractional digits.
//
// Every operation truncates its result toward zero at the fixed scale, matching
// integer mantissa arithmetic: division rescales the dividend before dividing
// and multiplication rescales the product after multiplying.
package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits carried by every Decimal.
const Scale = 18

// ErrDivisionByZero is returned by Div when the divisor is zero.
var ErrDivisionByZero = errors.New("fixedpoint: division by zero")

// Decimal is a fixed-scale decimal value. The zero value is 0.
type Decimal struct {
	d decimal.Decimal
}

// Zero is the zero Decimal.
var Zero = Decimal{}

// Parse converts a decimal string. Fractional digits beyond Scale are dropped.
func Parse(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Decimal{}, fmt.Errorf("fixedpoint: empty string")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("fixedpoint: parse %q: %w", s, err)
	}
	return Decimal{d: d.Truncate(Scale)}, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Decimal {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FromUint64 converts a raw unsigned integer without loss.
func FromUint64(v uint64) Decimal {
	return Decimal{d: decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)}
}

// FromInt64 converts a signed integer.
func FromInt64(v int64) Decimal {
	return Decimal{d: decimal.NewFromInt(v)}
}

// FromDecimal converts an arbitrary precision decimal, truncating to Scale.
func FromDecimal(d decimal.Decimal) Decimal {
	return Decimal{d: d.Truncate(Scale)}
}

// Pow10 returns 10^n for n >= 0.
func Pow10(n int) Decimal {
	return Decimal{d: decimal.New(1, int32(n))}
}

// Add returns a + b.
func (a Decimal) Add(b Decimal) Decimal {
	return Decimal{d: a.d.Add(b.d)}
}

// Sub returns a - b.
func (a Decimal) Sub(b Decimal) Decimal {
	return Decimal{d: a.d.Sub(b.d)}
}

// Mul returns a × b truncated to Scale.
func (a Decimal) Mul(b Decimal) Decimal {
	return Decimal{d: a.d.Mul(b.d).Truncate(Scale)}
}

// Div returns a ÷ b truncated to Scale.
func (a Decimal) Div(b Decimal) (Decimal, error) {
	if b.d.IsZero() {
		return Decimal{}, ErrDivisionByZero
	}
	q, _ := a.d.QuoRem(b.d, Scale)
	return Decimal{d: q}, nil
}

// Pow returns a raised to a non-negative integer exponent. Each intermediate
// product is truncated to Scale.
func (a Decimal) Pow(exp uint) Decimal {
	result := FromInt64(1)
	base := a
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(base)
		}
		exp >>= 1
		if exp > 0 {
			base = base.Mul(base)
		}
	}
	return result
}

// Cmp returns -1, 0 or +1.
func (a Decimal) Cmp(b Decimal) int {
	return a.d.Cmp(b.d)
}

// Equal reports whether a == b.
func (a Decimal) Equal(b Decimal) bool {
	return a.d.Equal(b.d)
}

// GreaterThan reports whether a > b.
func (a Decimal) GreaterThan(b Decimal) bool {
	return a.d.GreaterThan(b.d)
}

// IsZero reports whether a == 0.
func (a Decimal) IsZero() bool {
	return a.d.IsZero()
}

// IsNegative reports whether a < 0.
func (a Decimal) IsNegative() bool {
	return a.d.IsNegative()
}

// String returns the shortest representation: trailing fractional zeros are
// removed, the integer part is always kept.
func (a Decimal) String() string {
	return a.d.String()
}

// StringFixed returns the value rounded half away from zero to places digits.
func (a Decimal) StringFixed(places int32) string {
	return a.d.StringFixed(places)
}

// Decimal exposes the underlying arbitrary precision value.
func (a Decimal) Decimal() decimal.Decimal {
	return a.d
}

// MarshalJSON encodes the value as a JSON string.
func (a Decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts a JSON string or number.
func (a *Decimal) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
