package port

import (
	"context"

	"kassa/src/shared/domain/money"
	"kassa/src/shift/domain/entity"

	"github.com/google/uuid"
)

// ShiftRepository is the authoritative store of shifts. Running totals are
// maintained by the backend as sales are recorded.
type ShiftRepository interface {
	// Open creates an open shift. A cashier that already has one gets
	// entity.ErrShiftAlreadyOpen.
	Open(ctx context.Context, cashierID string, opening money.Money, note string) (*entity.Shift, error)

	Close(ctx context.Context, shiftID uuid.UUID, counted money.Money, note string) (*entity.ClosedShift, error)

	// GetActive returns entity.ErrNoActiveShift when the cashier has none.
	GetActive(ctx context.Context, cashierID string) (*entity.Shift, error)

	AddMovement(ctx context.Context, m *entity.CashMovement) error
}

// ShiftGatePolicy is the external authorization rule for the shift gate.
type ShiftGatePolicy interface {
	RequiresOpenShift(role string) bool
}
