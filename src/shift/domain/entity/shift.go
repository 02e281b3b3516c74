package entity

import (
	"strings"
	"time"

	"kassa/src/shared/domain/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// State is the cashier-level view: either a shift is open or none is.
// Closed shifts are history and never re-enter the machine.
type State string

const (
	StateNoActiveShift State = "no_active_shift"
	StateOpen          State = "open"
)

// Contribution is what one sale adds to the running totals. Cash is the
// drawer contribution, i.e. cash received minus change paid out of it.
type Contribution struct {
	Cash     money.Money `json:"cash"`
	Card     money.Money `json:"card"`
	Transfer money.Money `json:"transfer"`
	Debt     money.Money `json:"debt"`
	Bonus    money.Money `json:"bonus"`
}

// Totals accumulate over a shift.
type Totals struct {
	Cash      money.Money `json:"cash"`
	Card      money.Money `json:"card"`
	Transfer  money.Money `json:"transfer"`
	Debt      money.Money `json:"debt"`
	Bonus     money.Money `json:"bonus"`
	SaleCount int         `json:"sale_count"`
	CashIn    money.Money `json:"cash_in"`
	CashOut   money.Money `json:"cash_out"`
}

type Shift struct {
	ID             uuid.UUID        `json:"id"`
	CashierID      string           `json:"cashier_id"`
	Status         Status           `json:"status"`
	OpenedAt       time.Time        `json:"opened_at"`
	OpeningBalance money.Money      `json:"opening_balance"`
	Totals         Totals           `json:"totals"`
	Note           string           `json:"note,omitempty"`
	ClosedAt       *time.Time       `json:"closed_at,omitempty"`
	ClosingBalance *money.Money     `json:"closing_balance,omitempty"`
	Variance       *decimal.Decimal `json:"variance,omitempty"`
}

func NewShift(cashierID string, opening money.Money, note string) (*Shift, error) {
	if cashierID == "" {
		return nil, ErrCashierRequired
	}
	return &Shift{
		ID:             uuid.New(),
		CashierID:      cashierID,
		Status:         StatusOpen,
		OpenedAt:       time.Now(),
		OpeningBalance: opening,
		Note:           strings.TrimSpace(note),
	}, nil
}

func (s *Shift) IsOpen() bool { return s != nil && s.Status == StatusOpen }

// RecordSale adds a completed sale to the running totals.
func (s *Shift) RecordSale(c Contribution) error {
	if !s.IsOpen() {
		return ErrShiftClosed
	}
	s.Totals.Cash = s.Totals.Cash.Add(c.Cash)
	s.Totals.Card = s.Totals.Card.Add(c.Card)
	s.Totals.Transfer = s.Totals.Transfer.Add(c.Transfer)
	s.Totals.Debt = s.Totals.Debt.Add(c.Debt)
	s.Totals.Bonus = s.Totals.Bonus.Add(c.Bonus)
	s.Totals.SaleCount++
	return nil
}

// RecordRefund takes a refunded sale back out of the totals.
func (s *Shift) RecordRefund(c Contribution) error {
	if !s.IsOpen() {
		return ErrShiftClosed
	}
	s.Totals.Cash = s.Totals.Cash.SubFloor(c.Cash)
	s.Totals.Card = s.Totals.Card.SubFloor(c.Card)
	s.Totals.Transfer = s.Totals.Transfer.SubFloor(c.Transfer)
	s.Totals.Debt = s.Totals.Debt.SubFloor(c.Debt)
	s.Totals.Bonus = s.Totals.Bonus.SubFloor(c.Bonus)
	if s.Totals.SaleCount > 0 {
		s.Totals.SaleCount--
	}
	return nil
}

// AddMovement applies a cash-in (e.g. a debt repayment) or cash-out
// (an expense) to the drawer.
func (s *Shift) AddMovement(m CashMovement) error {
	if !s.IsOpen() {
		return ErrShiftClosed
	}
	switch m.Kind {
	case MovementIn:
		s.Totals.CashIn = s.Totals.CashIn.Add(m.Amount)
	case MovementOut:
		s.Totals.CashOut = s.Totals.CashOut.Add(m.Amount)
	default:
		return ErrUnknownMovementKind
	}
	return nil
}

// ExpectedCash is what the drawer should hold: opening balance plus cash
// contributions plus cash in minus cash out. It may be negative when more
// cash left the drawer than entered it.
func (s *Shift) ExpectedCash() decimal.Decimal {
	in := money.Sum(s.OpeningBalance, s.Totals.Cash, s.Totals.CashIn)
	return in.Sub(s.Totals.CashOut)
}

// Close ends the shift with the counted drawer balance. It never fails on a
// variance; the variance is only recorded.
func (s *Shift) Close(counted money.Money, note string, at time.Time) (*ClosedShift, error) {
	if !s.IsOpen() {
		return nil, ErrShiftClosed
	}
	expected := s.ExpectedCash()
	variance := counted.Decimal().Sub(expected)

	s.Status = StatusClosed
	s.ClosedAt = &at
	s.ClosingBalance = &counted
	s.Variance = &variance
	s.Note = AppendNote(s.Note, note)

	return &ClosedShift{
		ID:             s.ID,
		CashierID:      s.CashierID,
		OpenedAt:       s.OpenedAt,
		ClosedAt:       at,
		OpeningBalance: s.OpeningBalance,
		Totals:         s.Totals,
		ExpectedCash:   expected,
		CountedBalance: counted,
		Variance:       variance,
		Note:           s.Note,
	}, nil
}

// AppendNote joins a closing remark onto the notes taken at opening.
func AppendNote(existing, note string) string {
	note = strings.TrimSpace(note)
	switch {
	case note == "":
		return existing
	case existing == "":
		return note
	default:
		return existing + "\n" + note
	}
}

// ClosedShift is the immutable record produced by closing a shift.
type ClosedShift struct {
	ID             uuid.UUID       `json:"id"`
	CashierID      string          `json:"cashier_id"`
	OpenedAt       time.Time       `json:"opened_at"`
	ClosedAt       time.Time       `json:"closed_at"`
	OpeningBalance money.Money     `json:"opening_balance"`
	Totals         Totals          `json:"totals"`
	ExpectedCash   decimal.Decimal `json:"expected_cash"`
	CountedBalance money.Money     `json:"counted_balance"`
	Variance       decimal.Decimal `json:"variance"`
	Note           string          `json:"note,omitempty"`
}

type MovementKind string

const (
	MovementIn  MovementKind = "in"
	MovementOut MovementKind = "out"
)

// CashMovement is cash entering or leaving the drawer outside a sale.
type CashMovement struct {
	ID        uuid.UUID    `json:"id"`
	ShiftID   uuid.UUID    `json:"shift_id"`
	Kind      MovementKind `json:"kind"`
	Amount    money.Money  `json:"amount"`
	Note      string       `json:"note,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

func NewCashMovement(shiftID uuid.UUID, kind MovementKind, amount money.Money, note string) (*CashMovement, error) {
	if kind != MovementIn && kind != MovementOut {
		return nil, ErrUnknownMovementKind
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidMovement
	}
	return &CashMovement{
		ID:        uuid.New(),
		ShiftID:   shiftID,
		Kind:      kind,
		Amount:    amount,
		Note:      strings.TrimSpace(note),
		CreatedAt: time.Now(),
	}, nil
}
