package entity

import (
	"kassa/src/shared/domain/money"
)

// QuantityForAmount derives how much of a measured product the entered amount
// buys: amount / price, rounded to the quantity scale.
func QuantityForAmount(p Product, amount money.Money) (money.Quantity, error) {
	if err := checkMeasured(p); err != nil {
		return money.Quantity{}, err
	}
	if !amount.IsPositive() {
		return money.Quantity{}, ErrInvalidAmount
	}
	q, err := money.NewQuantity(amount.Decimal().Div(p.UnitPrice.Decimal()))
	if err != nil {
		// amount is positive but too small to register at the quantity scale
		return money.Quantity{}, ErrInvalidAmount
	}
	return q, nil
}

// AmountForQuantity prices a measured quantity with the amount rounding.
func AmountForQuantity(p Product, q money.Quantity) (money.Money, error) {
	if err := checkMeasured(p); err != nil {
		return money.Zero, err
	}
	if !q.IsValid() {
		return money.Zero, ErrInvalidQuantity
	}
	return money.NonNegative(p.UnitPrice.Times(q)), nil
}

func checkMeasured(p Product) error {
	if !p.Unit.Measured() {
		return ErrNotMeasured
	}
	if !p.UnitPrice.IsPositive() {
		return ErrInvalidPrice
	}
	return nil
}
