package response

import (
	"time"

	"kassa/src/shared/domain/money"
	"kassa/src/shift/domain/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShiftResponse is the cashier's current shift as shown at the register.
type ShiftResponse struct {
	State          entity.State    `json:"state"`
	ShiftID        *uuid.UUID      `json:"shift_id,omitempty"`
	OpenedAt       *time.Time      `json:"opened_at,omitempty"`
	OpeningBalance *money.Money    `json:"opening_balance,omitempty"`
	Totals         *entity.Totals  `json:"totals,omitempty"`
	ExpectedCash   decimal.Decimal `json:"expected_cash"`
	Note           string          `json:"note,omitempty"`
}

// FromShift builds the response for s, or the no-shift state when s is nil.
func FromShift(s *entity.Shift) ShiftResponse {
	if !s.IsOpen() {
		return ShiftResponse{State: entity.StateNoActiveShift}
	}
	totals := s.Totals
	return ShiftResponse{
		State:          entity.StateOpen,
		ShiftID:        &s.ID,
		OpenedAt:       &s.OpenedAt,
		OpeningBalance: &s.OpeningBalance,
		Totals:         &totals,
		ExpectedCash:   s.ExpectedCash(),
		Note:           s.Note,
	}
}
