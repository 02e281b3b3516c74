package entity

import (
	"time"

	"kassa/src/shared/domain/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleLine is the snapshot of one cart line sent to the backend.
type SaleLine struct {
	ProductID   string         `json:"product_id"`
	ProductName string         `json:"product_name"`
	Quantity    money.Quantity `json:"quantity"`
	UnitPrice   money.Money    `json:"unit_price"`
	Unit        UnitKind       `json:"unit"`
}

// SaleRequest is the finalized sale handed to the sale repository.
type SaleRequest struct {
	IdempotencyKey uuid.UUID     `json:"idempotency_key"`
	CashierID      string        `json:"cashier_id"`
	ShiftID        *uuid.UUID    `json:"shift_id,omitempty"` // nil for roles exempt from the shift gate
	CustomerID     *string       `json:"customer_id,omitempty"`
	Total          money.Money   `json:"total"`
	Cash           money.Money   `json:"cash"`
	Card           money.Money   `json:"card"`
	Transfer       money.Money   `json:"transfer"`
	Debt           money.Money   `json:"debt"`
	BonusSpent     money.Money   `json:"bonus_spent"`
	BonusEarned    money.Money   `json:"bonus_earned"`
	Change         money.Money   `json:"change"`
	Method         PaymentMethod `json:"payment_method"`
	Lines          []SaleLine    `json:"items"`
}

// NewSaleRequest freezes a cart and its settlement. It repeats the local
// checks so a request can never be built from an unsubmittable state.
func NewSaleRequest(
	key uuid.UUID,
	cashierID string,
	shiftID *uuid.UUID,
	lines []LineItem,
	s Settlement,
	customer *Customer,
) (*SaleRequest, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if customer != nil && s.BonusSpent.GreaterThan(customer.BonusBalance) {
		return nil, ErrBonusExceedsBalance
	}

	snapshot := make([]SaleLine, 0, len(lines))
	for _, l := range lines {
		snapshot = append(snapshot, SaleLine{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Unit:        l.Unit,
		})
	}

	var customerID *string
	if customer != nil {
		id := customer.ID
		customerID = &id
	}

	return &SaleRequest{
		IdempotencyKey: key,
		CashierID:      cashierID,
		ShiftID:        shiftID,
		CustomerID:     customerID,
		Total:          s.Total,
		Cash:           s.Cash,
		Card:           s.Card,
		Transfer:       s.Transfer,
		Debt:           s.Debt,
		BonusSpent:     s.BonusSpent,
		BonusEarned:    s.BonusEarned,
		Change:         s.Change,
		Method:         s.Method,
		Lines:          snapshot,
	}, nil
}

// CashContribution mirrors Settlement.CashContribution for a frozen request.
func (r *SaleRequest) CashContribution() money.Money {
	return r.Cash.SubFloor(r.Change.Min(r.Cash))
}

// TotalItems returns the number of lines.
func (r *SaleRequest) TotalItems() int {
	return len(r.Lines)
}

// StockLevel is a product's remaining stock after a sale.
type StockLevel struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Remaining   decimal.Decimal `json:"remaining"`
}

// Confirmation is the backend's receipt for a created sale.
type Confirmation struct {
	SaleID      uuid.UUID     `json:"sale_id"`
	CreatedAt   time.Time     `json:"created_at"`
	Total       money.Money   `json:"total"`
	Change      money.Money   `json:"change"`
	BonusEarned money.Money   `json:"bonus_earned"`
	Method      PaymentMethod `json:"payment_method"`
	DebtDueDate *time.Time    `json:"debt_due_date,omitempty"`
	Replayed    bool          `json:"replayed"`
	StockLevels []StockLevel  `json:"stock_levels,omitempty"`
}

// RefundResult describes what a refund reversed.
type RefundResult struct {
	SaleID        uuid.UUID   `json:"sale_id"`
	RefundedAt    time.Time   `json:"refunded_at"`
	Total         money.Money `json:"total"`
	CashReturned  money.Money `json:"cash_returned"`
	DebtReversed  money.Money `json:"debt_reversed"`
	BonusRestored money.Money `json:"bonus_restored"`
	BonusRevoked  money.Money `json:"bonus_revoked"`
	CustomerID    *string     `json:"customer_id,omitempty"`
	// CashierID owns the sale's shift, which may differ from whoever
	// requested the refund.
	CashierID     string      `json:"cashier_id"`
	ShiftID       *uuid.UUID  `json:"shift_id,omitempty"`
	ProductIDs    []string    `json:"product_ids"`
}
