package request

import (
	"kassa/src/shared/domain/money"
)

// OpenShiftRequest opens a shift with the cash already in the drawer.
type OpenShiftRequest struct {
	OpeningBalance money.Money `json:"opening_balance"`
	Note           string      `json:"note,omitempty"`
}

// CloseShiftRequest closes the active shift with the counted drawer cash.
type CloseShiftRequest struct {
	CountedBalance money.Money `json:"counted_balance"`
	Note           string      `json:"note,omitempty"`
}

// CashMovementRequest records cash entering (in) or leaving (out) the drawer.
type CashMovementRequest struct {
	Kind   string      `json:"kind" binding:"required,oneof=in out"`
	Amount money.Money `json:"amount"`
	Note   string      `json:"note,omitempty"`
}
