package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value in a specific currency.
// Amount is stored as BIGINT cents to avoid floating point errors.
type Money struct {
	Cents    int64
	Currency string // ISO 4217
}

// NewMoney creates a new Money instance from cents.
func NewMoney(cents int64, currency string) Money {
	return Money{
		Cents:    cents,
		Currency: currency,
	}
}

// ToDecimal converts the int64 cents to a shopspring/decimal.Decimal.
func (m Money) ToDecimal() decimal.Decimal {
	return decimal.NewFromInt(m.Cents).Div(decimal.NewFromInt(100))
}

// FromDecimal converts a decimal.Decimal amount of currency units to cents.
func FromDecimal(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).IntPart()
}

// Add returns the sum of two amounts. Panics are avoided: a currency
// mismatch is a programmer error surfaced as an explicit error.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return Money{Cents: m.Cents + other.Cents, Currency: m.Currency}, nil
}

// String returns the string representation of the money.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.ToDecimal().StringFixed(2), m.Currency)
}
