// internal/core/domain/money.go
package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in cents (BRL centavos). All arithmetic inside the
// domain is integer arithmetic; decimal.Decimal appears only at the
// boundaries (JSON, CSV, database DTOs) so totals never drift.
type Money int64

// NewMoneyFromDecimal converts a decimal amount in currency units to cents,
// rounding half-up to two places.
func NewMoneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Round(2).Mul(decimal.NewFromInt(100)).IntPart())
}

// ParseMoney parses a decimal string such as "8.90" or "8,90" into cents.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	// Brazilian CSV exports commonly use comma as the decimal separator.
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid amount %q", ErrValidation, s)
	}
	return NewMoneyFromDecimal(d), nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// String formats the amount with two decimal places, e.g. "40.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MulInt multiplies the unit amount by a quantity.
func (m Money) MulInt(q int) Money {
	return m * Money(q)
}

// MarshalJSON encodes the amount as a JSON number with two decimal places.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().StringFixed(2)), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*m = 0
		return nil
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
