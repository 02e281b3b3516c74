package entity

import (
	"strings"

	"kassa/src/shared/domain/money"

	"github.com/shopspring/decimal"
)

// PaymentMethod names a tender. MethodMixed is only ever a label.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodCard     PaymentMethod = "card"
	MethodTransfer PaymentMethod = "transfer"
	MethodDebt     PaymentMethod = "debt"
	MethodBonus    PaymentMethod = "bonus"
	MethodMixed    PaymentMethod = "mixed"
)

// ParsePaymentMethod accepts a tender name, including the local labels
// naqd, karta, o'tkazma and qarz.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cash", "naqd":
		return MethodCash, nil
	case "card", "karta":
		return MethodCard, nil
	case "transfer", "o'tkazma", "otkazma":
		return MethodTransfer, nil
	case "debt", "qarz":
		return MethodDebt, nil
	case "bonus":
		return MethodBonus, nil
	default:
		return "", ErrUnknownPaymentMethod
	}
}

// SplitInput holds the amounts the cashier typed. Bonus is a request that the
// calculator clamps to the customer's balance.
type SplitInput struct {
	Cash     money.Money `json:"cash"`
	Card     money.Money `json:"card"`
	Transfer money.Money `json:"transfer"`
	Debt     money.Money `json:"debt"`
	Bonus    money.Money `json:"bonus"`
}

func (in SplitInput) Amount(m PaymentMethod) money.Money {
	switch m {
	case MethodCash:
		return in.Cash
	case MethodCard:
		return in.Card
	case MethodTransfer:
		return in.Transfer
	case MethodDebt:
		return in.Debt
	case MethodBonus:
		return in.Bonus
	}
	return money.Zero
}

// With returns a copy with one method's amount replaced.
func (in SplitInput) With(m PaymentMethod, amount money.Money) (SplitInput, error) {
	switch m {
	case MethodCash:
		in.Cash = amount
	case MethodCard:
		in.Card = amount
	case MethodTransfer:
		in.Transfer = amount
	case MethodDebt:
		in.Debt = amount
	case MethodBonus:
		in.Bonus = amount
	default:
		return in, ErrUnknownPaymentMethod
	}
	return in, nil
}

func (in SplitInput) IsZero() bool {
	return money.Sum(in.Cash, in.Card, in.Transfer, in.Debt, in.Bonus).IsZero()
}

// Calculator settles a sale total against entered amounts. Customer is nil
// for anonymous sales.
type Calculator struct {
	Total    money.Money
	Customer *Customer
	Settings Settings
}

// Settlement is the derived view of a split. It is recomputed from scratch
// on every change and carries no state of its own.
type Settlement struct {
	Total       money.Money   `json:"total"`
	Cash        money.Money   `json:"cash"`
	Card        money.Money   `json:"card"`
	Transfer    money.Money   `json:"transfer"`
	Debt        money.Money   `json:"debt"`
	BonusSpent  money.Money   `json:"bonus_spent"`
	BonusEarned money.Money   `json:"bonus_earned"`
	TotalPaid   money.Money   `json:"total_paid"`
	Change      money.Money   `json:"change"`
	Shortfall   money.Money   `json:"shortfall"`
	Method      PaymentMethod `json:"payment_method"`
	CustomerID  string        `json:"customer_id,omitempty"`

	bonusRequested money.Money
}

func (c Calculator) balance() money.Money {
	if c.Customer == nil {
		return money.Zero
	}
	return c.Customer.BonusBalance
}

// Settle derives every settlement figure from in.
func (c Calculator) Settle(in SplitInput) Settlement {
	s := Settlement{
		Total:          c.Total,
		Cash:           in.Cash,
		Card:           in.Card,
		Transfer:       in.Transfer,
		Debt:           in.Debt,
		BonusSpent:     in.Bonus.Min(c.balance()),
		bonusRequested: in.Bonus,
	}
	if c.Customer != nil {
		s.CustomerID = c.Customer.ID
	}

	s.TotalPaid = money.Sum(s.Cash, s.Card, s.Transfer, s.Debt, s.BonusSpent)
	s.Change = s.TotalPaid.SubFloor(s.Total)
	s.Shortfall = s.Total.SubFloor(s.TotalPaid)
	s.Method = s.label()
	if c.Customer != nil {
		s.BonusEarned = c.bonusEarned(s)
	}
	return s
}

func (c Calculator) bonusEarned(s Settlement) money.Money {
	base := s.Total.Sub(s.Debt)
	if c.Settings.BonusBase == BonusBaseNonDebtNonBonus {
		base = base.Sub(s.BonusSpent.Decimal())
	}
	if !base.IsPositive() || !c.Settings.BonusPercentage.IsPositive() {
		return money.Zero
	}
	earned := base.Mul(c.Settings.BonusPercentage).Div(decimal.NewFromInt(100))
	return money.NonNegative(money.FloorAmount(earned))
}

// FillRemaining sets method to whatever the other tenders and the spendable
// bonus leave uncovered, never below zero.
func (c Calculator) FillRemaining(in SplitInput, method PaymentMethod) (SplitInput, error) {
	if method == MethodMixed {
		return in, ErrUnknownPaymentMethod
	}
	cleared, err := in.With(method, money.Zero)
	if err != nil {
		return in, err
	}
	bonus := cleared.Bonus.Min(c.balance())
	others := money.Sum(cleared.Cash, cleared.Card, cleared.Transfer, cleared.Debt, bonus)
	remaining := c.Total.SubFloor(others)
	if method == MethodBonus {
		remaining = remaining.Min(c.balance())
	}
	return cleared.With(method, remaining)
}

// label picks the only tender in use, or mixed.
func (s Settlement) label() PaymentMethod {
	used := make([]PaymentMethod, 0, 5)
	for _, t := range []struct {
		m PaymentMethod
		a money.Money
	}{
		{MethodCash, s.Cash},
		{MethodCard, s.Card},
		{MethodTransfer, s.Transfer},
		{MethodDebt, s.Debt},
		{MethodBonus, s.BonusSpent},
	} {
		if t.a.IsPositive() {
			used = append(used, t.m)
		}
	}
	switch len(used) {
	case 0:
		return MethodCash
	case 1:
		return used[0]
	default:
		return MethodMixed
	}
}

// Validate reports the first reason the settlement cannot be submitted.
func (s Settlement) Validate() error {
	if s.CustomerID == "" && s.Debt.IsPositive() {
		return ErrCustomerRequiredForDebt
	}
	if s.CustomerID == "" && s.bonusRequested.IsPositive() {
		return ErrCustomerRequiredForBonus
	}
	if s.TotalPaid.LessThan(s.Total) {
		return ErrInsufficientPayment
	}
	return nil
}

func (s Settlement) CanSubmit() bool { return s.Validate() == nil }

// CashContribution is what the sale leaves in the drawer: cash handed over
// minus the change given back out of it.
func (s Settlement) CashContribution() money.Money {
	return s.Cash.SubFloor(s.Change.Min(s.Cash))
}
