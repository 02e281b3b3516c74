package entity

import (
	"kassa/src/shared/domain/money"

	"github.com/shopspring/decimal"
)

// LineItem is one product row of the working sale. UnitPrice is captured when
// the product is first added and never refreshed afterwards.
type LineItem struct {
	ProductID   string         `json:"product_id"`
	ProductName string         `json:"product_name"`
	UnitPrice   money.Money    `json:"unit_price"`
	Quantity    money.Quantity `json:"quantity"`
	Unit        UnitKind       `json:"unit"`
}

// NewLineItem validates a product snapshot and an initial quantity.
func NewLineItem(p Product, quantity money.Quantity) (*LineItem, error) {
	if p.ID == "" {
		return nil, ErrProductIDRequired
	}
	if p.Name == "" {
		return nil, ErrProductNameRequired
	}
	if !p.UnitPrice.IsPositive() {
		return nil, ErrInvalidPrice
	}
	unit := p.Unit
	if unit == "" {
		unit = UnitCount
	}
	if err := checkQuantity(unit, quantity); err != nil {
		return nil, err
	}

	return &LineItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		UnitPrice:   p.UnitPrice,
		Quantity:    quantity,
		Unit:        unit,
	}, nil
}

// Subtotal is the exact, unrounded price times quantity.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Times(l.Quantity)
}

func checkQuantity(unit UnitKind, q money.Quantity) error {
	if !q.IsValid() {
		return ErrInvalidQuantity
	}
	if !unit.Measured() && !q.IsInteger() {
		return ErrFractionalCount
	}
	return nil
}
