package entity

import "errors"

var (
	ErrCashierRequired     = errors.New("cashier_id is required")
	ErrShiftNotOpen        = errors.New("no open shift: open a shift before selling")
	ErrShiftAlreadyOpen    = errors.New("cashier already has an open shift")
	ErrNoActiveShift       = errors.New("no active shift")
	ErrShiftClosed         = errors.New("shift is closed")
	ErrShiftNotFound       = errors.New("shift not found")
	ErrUnknownMovementKind = errors.New("movement kind must be in or out")
	ErrInvalidMovement     = errors.New("movement amount must be greater than 0")
)
