package port

import (
	"context"

	"kassa/src/sale/domain/entity"

	"github.com/google/uuid"
)

// ReadModel names a view owned by another collaborator that a sale makes stale.
type ReadModel string

const (
	ReadModelStock       ReadModel = "stock"
	ReadModelCustomers   ReadModel = "customers"
	ReadModelShiftTotals ReadModel = "shift_totals"
	ReadModelDashboard   ReadModel = "dashboard"
)

// Invalidation lists what changed after a sale or refund.
type Invalidation struct {
	Models      []ReadModel
	ProductIDs  []string
	CustomerIDs []string
	CashierID   string
}

type ReadModelInvalidator interface {
	Invalidate(ctx context.Context, inv Invalidation) error
}

// SaleNotifier delivers best-effort messages after a sale.
type SaleNotifier interface {
	NotifyDebtSale(ctx context.Context, customer entity.Customer, req *entity.SaleRequest, conf *entity.Confirmation) error
	NotifyLowStock(ctx context.Context, levels []entity.StockLevel) error
}

// ShiftGate is the register's view of the cashier's shift.
type ShiftGate interface {
	// Authorize resolves the shift a sale is booked under. Roles exempt from
	// the gate get a nil id and no error when they have no open shift.
	Authorize(ctx context.Context, cashierID, role string) (*uuid.UUID, error)
	// RecordSale folds a confirmed sale into the cached shift totals.
	RecordSale(cashierID string, req *entity.SaleRequest)
	// Invalidate marks the cached shift stale.
	Invalidate(cashierID string)
}
