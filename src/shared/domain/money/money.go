// Package money holds the monetary and quantity value types of the register
// together with the single rounding policy applied to them.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// AmountScale is the number of decimal places kept on monetary amounts.
	// So'm prices are whole numbers.
	AmountScale int32 = 0
	// QuantityScale is the number of decimal places kept on measured quantities.
	QuantityScale int32 = 5
)

var (
	ErrNegativeAmount      = errors.New("amount must be greater than or equal to 0")
	ErrNonPositiveQuantity = errors.New("quantity must be greater than 0")
	ErrInvalidNumber       = errors.New("invalid number")
)

// RoundAmount rounds half away from zero to AmountScale.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountScale)
}

// FloorAmount truncates toward negative infinity at AmountScale. Used for
// accruals, which must never be rounded up in the customer's favour.
func FloorAmount(d decimal.Decimal) decimal.Decimal {
	return d.RoundFloor(AmountScale)
}

// RoundQuantity rounds half away from zero to QuantityScale.
func RoundQuantity(d decimal.Decimal) decimal.Decimal {
	return d.Round(QuantityScale)
}

// Money is a non-negative amount already rounded to AmountScale. The zero
// value is a valid zero amount.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// New rounds d to AmountScale and rejects negative results.
func New(d decimal.Decimal) (Money, error) {
	r := RoundAmount(d)
	if r.IsNegative() {
		return Zero, ErrNegativeAmount
	}
	return Money{d: r}, nil
}

// FromInt builds an amount from whole currency units. It panics on negative
// input and is meant for literals.
func FromInt(v int64) Money {
	m, err := New(decimal.NewFromInt(v))
	if err != nil {
		panic(fmt.Sprintf("money.FromInt(%d): %v", v, err))
	}
	return m
}

// Parse reads a decimal string. Empty input is zero, so blank form fields
// need no special casing.
func Parse(s string) (Money, error) {
	if s == "" {
		return Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return New(d)
}

// NonNegative clamps a signed value at zero and rounds it.
func NonNegative(d decimal.Decimal) Money {
	if d.IsNegative() {
		return Zero
	}
	return Money{d: RoundAmount(d)}
}

// Sum adds amounts.
func Sum(ms ...Money) Money {
	total := decimal.Zero
	for _, m := range ms {
		total = total.Add(m.d)
	}
	return Money{d: total}
}

func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

// Sub returns the signed difference m - o.
func (m Money) Sub(o Money) decimal.Decimal { return m.d.Sub(o.d) }

// SubFloor returns max(0, m - o).
func (m Money) SubFloor(o Money) Money { return NonNegative(m.d.Sub(o.d)) }

// Times returns the exact, unrounded product of a unit price and a quantity.
func (m Money) Times(q Quantity) decimal.Decimal { return m.d.Mul(q.d) }

func (m Money) Min(o Money) Money {
	if m.d.LessThan(o.d) {
		return m
	}
	return o
}

func (m Money) IsZero() bool { return m.d.IsZero() }
func (m Money) IsPositive() bool { return m.d.IsPositive() }
func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }
func (m Money) LessThan(o Money) bool { return m.d.LessThan(o.d) }
func (m Money) GreaterThan(o Money) bool { return m.d.GreaterThan(o.d) }
func (m Money) GreaterOrEqual(o Money) bool { return m.d.GreaterThanOrEqual(o.d) }
func (m Money) IntPart() int64 { return m.d.IntPart() }
func (m Money) String() string { return m.d.String() }

func (m Money) MarshalJSON() ([]byte, error) {
	return m.d.MarshalJSON()
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidNumber, string(data))
	}
	v, err := New(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (m Money) Value() (driver.Value, error) {
	return m.d.Value()
}

func (m *Money) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	v, err := New(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
