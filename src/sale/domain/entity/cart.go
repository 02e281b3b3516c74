package entity

import (
	"kassa/src/shared/domain/money"

	"github.com/shopspring/decimal"
)

// Cart is the ordered, in-progress list of lines for one sale attempt. Lines
// are unique by product id. Cart has no side effects outside itself and is
// not safe for concurrent use.
type Cart struct {
	lines []LineItem
}

func NewCart() *Cart {
	return &Cart{}
}

// Add accumulates quantity onto the product's line, keeping the price that
// line was created with, or appends a new line priced from p.
func (c *Cart) Add(p Product, quantity money.Quantity) (LineItem, error) {
	if i := c.index(p.ID); i >= 0 {
		line := &c.lines[i]
		if err := checkQuantity(line.Unit, quantity); err != nil {
			return LineItem{}, err
		}
		line.Quantity = line.Quantity.Add(quantity)
		return *line, nil
	}

	line, err := NewLineItem(p, quantity)
	if err != nil {
		return LineItem{}, err
	}
	c.lines = append(c.lines, *line)
	return *line, nil
}

// AdjustQuantity moves a line's quantity by delta. When a decrease would drop
// it below one unit the line is removed instead and removed is true. An
// increase always keeps the line, so a sub-unit weight can grow.
func (c *Cart) AdjustQuantity(productID string, delta decimal.Decimal) (line LineItem, removed bool, err error) {
	i := c.index(productID)
	if i < 0 {
		return LineItem{}, false, ErrLineNotFound
	}
	current := c.lines[i]
	if !current.Unit.Measured() && !delta.IsInteger() {
		return LineItem{}, false, ErrFractionalCount
	}

	next := money.RoundQuantity(current.Quantity.Decimal().Add(delta))
	if delta.IsNegative() && next.LessThan(decimal.NewFromInt(1)) {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
		return current, true, nil
	}

	q, err := money.NewQuantity(next)
	if err != nil {
		return LineItem{}, false, err
	}
	c.lines[i].Quantity = q
	return c.lines[i], false, nil
}

// Remove deletes the product's line. Removing an absent product is a no-op.
func (c *Cart) Remove(productID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return true
}

// Total sums the exact line subtotals and rounds once.
func (c *Cart) Total() money.Money {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Subtotal())
	}
	return money.NonNegative(sum)
}

func (c *Cart) Clear() { c.lines = nil }

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []LineItem {
	out := make([]LineItem, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Line(productID string) (LineItem, bool) {
	if i := c.index(productID); i >= 0 {
		return c.lines[i], true
	}
	return LineItem{}, false
}

func (c *Cart) Len() int      { return len(c.lines) }
func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

func (c *Cart) index(productID string) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}
