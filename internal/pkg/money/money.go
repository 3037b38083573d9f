// internal/pkg/money/money.go
package money

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (cents)
type Money int64

// ErrInvalidAmount is returned when an amount cannot be parsed
var ErrInvalidAmount = errors.New("invalid monetary amount")

var hundred = decimal.NewFromInt(100)

// Parse parses a decimal string in major units ("9.99") into Money.
// Fractions below one cent are rounded half-up.
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %q", ErrInvalidAmount, s)
	}

	return FromDecimal(d), nil
}

// FromDecimal converts a major-unit decimal into Money
func FromDecimal(d decimal.Decimal) Money {
	return Money(d.Mul(hundred).Round(0).IntPart())
}

// UnmarshalJSON accepts integer cents (999) or a decimal string in major
// units ("9.99"). Negative and fractional-cent numbers are rejected.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidAmount, data)
		}
		parsed, err := Parse(s)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}

	cents, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s is not a whole number of cents", ErrInvalidAmount, data)
	}
	if cents < 0 {
		return fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, data)
	}
	*m = Money(cents)
	return nil
}

// Decimal returns the amount in major units
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m)).Div(hundred)
}

// Mul multiplies the amount by a whole quantity
func (m Money) Mul(qty int) Money {
	return m * Money(qty)
}

// Percent returns pct percent of m, rounded half-up to the cent
func (m Money) Percent(pct decimal.Decimal) Money {
	return Money(decimal.NewFromInt(int64(m)).Mul(pct).Div(hundred).Round(0).IntPart())
}

// String formats the amount in major units with two decimals
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Min returns the smaller amount
func Min(a, b Money) Money {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger amount
func Max(a, b Money) Money {
	if a > b {
		return a
	}
	return b
}

// Ptr returns a pointer to m, for optional fields
func Ptr(m Money) *Money {
	return &m
}
