package money

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	ErrNegativeAmount   = errors.New("money: amount must not be negative")
)

// Money keeps amounts in integer minor units (cents) to avoid floating point
// drift in refund arithmetic.
type Money struct {
	Cents    int64
	Currency string
}

// New constructs a Money value validating minimal invariants.
func New(cents int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Cents: cents, Currency: strings.ToUpper(currency)}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(cents int64, currency string) Money {
	m, err := New(cents, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in the receiver's currency.
func (m Money) Zero() Money {
	return Money{Cents: 0, Currency: m.Currency}
}

// Add adds two money values ensuring currencies match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Cents: m.Cents + other.Cents, Currency: m.Currency}, nil
}

// Sub subtracts other from the receiver.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Cents: m.Cents - other.Cents, Currency: m.Currency}, nil
}

// ScaleRatio multiplies the amount by num/den rounding half-up on the minor
// unit. Both num and den must be non-negative with den > 0.
func (m Money) ScaleRatio(num, den int64) Money {
	if den <= 0 || num <= 0 || m.Cents <= 0 {
		return m.Zero()
	}
	scaled := (m.Cents*num*2 + den) / (den * 2)
	return Money{Cents: scaled, Currency: m.Currency}
}

// IsZero returns true if the amount equals zero. Bookings priced "free" carry a
// zero amount.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// LessThan reports m < other ignoring currency; callers compare refunds
// against totals in the same currency.
func (m Money) LessThan(other Money) bool {
	return m.Cents < other.Cents
}

// String renders the conventional two-decimal display form.
func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.Cents/100, m.Cents%100, m.Currency)
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}
