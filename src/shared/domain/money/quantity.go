package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Quantity is a strictly positive amount of goods rounded to QuantityScale.
// The zero value is not a valid quantity; constructors never return it.
type Quantity struct {
	d decimal.Decimal
}

// NewQuantity rounds d to QuantityScale and rejects results <= 0.
func NewQuantity(d decimal.Decimal) (Quantity, error) {
	r := RoundQuantity(d)
	if !r.IsPositive() {
		return Quantity{}, ErrNonPositiveQuantity
	}
	return Quantity{d: r}, nil
}

// Units builds a whole-unit quantity. It panics when n <= 0 and is meant for
// literals.
func Units(n int64) Quantity {
	q, err := NewQuantity(decimal.NewFromInt(n))
	if err != nil {
		panic(fmt.Sprintf("money.Units(%d): %v", n, err))
	}
	return q
}

func ParseQuantity(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return NewQuantity(d)
}

func (q Quantity) Decimal() decimal.Decimal { return q.d }

// Add sums two quantities. Both operands are positive so the result is too.
func (q Quantity) Add(o Quantity) Quantity { return Quantity{d: q.d.Add(o.d)} }

func (q Quantity) IsValid() bool { return q.d.IsPositive() }
func (q Quantity) IsInteger() bool { return q.d.IsInteger() }
func (q Quantity) Equal(o Quantity) bool { return q.d.Equal(o.d) }
func (q Quantity) Float64() float64 { return q.d.InexactFloat64() }
func (q Quantity) String() string { return q.d.String() }

func (q Quantity) MarshalJSON() ([]byte, error) {
	return q.d.MarshalJSON()
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidNumber, string(data))
	}
	v, err := NewQuantity(d)
	if err != nil {
		return err
	}
	*q = v
	return nil
}

func (q Quantity) Value() (driver.Value, error) {
	return q.d.Value()
}

func (q *Quantity) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	v, err := NewQuantity(d)
	if err != nil {
		return err
	}
	*q = v
	return nil
}
