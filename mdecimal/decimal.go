// Package mdecimal provides the fixed-precision Decimal type used for every
// price, quantity, and fee in the core: matching, order books, and ticks.
package mdecimal

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Decimal is a fixed-precision signed quantity. It has total ordering and no
// NaN/Infinity representation, matching the requirements on money, price, and
// quantity fields throughout the core.
type Decimal struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Decimal{d: decimal.Zero}

// New builds a Decimal from a mantissa and exponent, value = mantissa * 10^exp.
func New(mantissa int64, exp int32) Decimal {
	return Decimal{d: decimal.New(mantissa, exp)}
}

// NewFromInt wraps a whole number.
func NewFromInt(v int64) Decimal {
	return Decimal{d: decimal.NewFromInt(v)}
}

// Parse decodes a decimal literal such as "2000.50".
func Parse(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("mdecimal: parse %q: %w", s, err)
	}
	return Decimal{d: d}, nil
}

// MustParse is Parse but panics on malformed input; reserved for constants
// baked into the binary (config defaults, test fixtures).
func MustParse(s string) Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (v Decimal) String() string { return v.d.String() }

func (v Decimal) Add(o Decimal) Decimal { return Decimal{d: v.d.Add(o.d)} }
func (v Decimal) Sub(o Decimal) Decimal { return Decimal{d: v.d.Sub(o.d)} }
func (v Decimal) Mul(o Decimal) Decimal { return Decimal{d: v.d.Mul(o.d)} }

// Div divides v by o. No code in this core calls it (fees are computed by
// multiplication). A zero divisor is treated as a programmer error and
// panics rather than returning an error, consistent with the "programmer
// errors abort the process" rule.
func (v Decimal) Div(o Decimal) Decimal {
	if o.d.IsZero() {
		panic("mdecimal: division by zero")
	}
	return Decimal{d: v.d.Div(o.d)}
}

func (v Decimal) Neg() Decimal { return Decimal{d: v.d.Neg()} }

func (v Decimal) Cmp(o Decimal) int      { return v.d.Cmp(o.d) }
func (v Decimal) Equal(o Decimal) bool   { return v.d.Equal(o.d) }
func (v Decimal) LessThan(o Decimal) bool    { return v.d.LessThan(o.d) }
func (v Decimal) GreaterThan(o Decimal) bool { return v.d.GreaterThan(o.d) }
func (v Decimal) LessThanOrEqual(o Decimal) bool    { return v.d.LessThanOrEqual(o.d) }
func (v Decimal) GreaterThanOrEqual(o Decimal) bool { return v.d.GreaterThanOrEqual(o.d) }

func (v Decimal) IsZero() bool     { return v.d.IsZero() }
func (v Decimal) IsPositive() bool { return v.d.IsPositive() }
func (v Decimal) IsNegative() bool { return v.d.IsNegative() }

// Min returns the lesser of a and b, used throughout the matching loop to
// compute fill quantity.
func Min(a, b Decimal) Decimal {
	if a.d.LessThan(b.d) {
		return a
	}
	return b
}

func (v Decimal) Float64() float64 {
	f, _ := v.d.Float64()
	return f
}

// MarshalJSON renders the canonical decimal string, stable for publisher and
// broadcast payloads.
func (v Decimal) MarshalJSON() ([]byte, error) {
	return v.d.MarshalJSON()
}

func (v *Decimal) UnmarshalJSON(data []byte) error {
	return v.d.UnmarshalJSON(data)
}

// Value implements driver.Valuer so Decimal can be bound directly into the
// persistence layer's prepared statements.
func (v Decimal) Value() (driver.Value, error) {
	return v.d.String(), nil
}
