package entity

import (
	"errors"
	"fmt"
)

var (
	ErrProductIDRequired   = errors.New("product_id is required")
	ErrProductNameRequired = errors.New("product_name is required")
	ErrInvalidPrice        = errors.New("unit price must be greater than 0")
	ErrInvalidQuantity     = errors.New("quantity must be greater than 0")
	ErrInvalidAmount       = errors.New("amount must be greater than 0")
	ErrFractionalCount     = errors.New("items sold by count take whole quantities")
	ErrNotMeasured         = errors.New("product is not sold by weight or volume")
	ErrUnknownUnit         = errors.New("unknown unit kind")
	ErrLineNotFound        = errors.New("product is not in the cart")

	ErrEmptyCart                = errors.New("cart must have at least one item")
	ErrInsufficientPayment      = errors.New("total paid must be greater than or equal to the sale total")
	ErrCustomerRequiredForDebt  = errors.New("a customer must be selected to sell on credit")
	ErrCustomerRequiredForBonus = errors.New("a customer must be selected to spend bonus points")
	ErrBonusExceedsBalance      = errors.New("bonus spent exceeds the customer's bonus balance")
	ErrUnknownPaymentMethod     = errors.New("unknown payment method")
	ErrSubmissionInFlight       = errors.New("a sale is already being submitted")

	// Reported by collaborators.
	ErrProductNotFound  = errors.New("product not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrStockConflict    = errors.New("not enough stock")
	ErrPriceChanged     = errors.New("price changed since the item was added")
	ErrSaleNotFound     = errors.New("sale not found")
	ErrAlreadyRefunded  = errors.New("sale is already refunded")
	ErrForbidden        = errors.New("role is not allowed to perform this action")
)

// ErrorKind classifies a failure for the cashier.
type ErrorKind string

const (
	// KindValidation failures are found locally before any network call.
	KindValidation ErrorKind = "validation"
	// KindConcurrency failures are reported by the backend after another
	// actor changed stock, prices or shift state.
	KindConcurrency ErrorKind = "concurrency"
	// KindAuthorization failures are forwarded verbatim from the backend.
	KindAuthorization ErrorKind = "authorization"
	// KindTransient failures mean the backend could not be reached; the
	// cashier retries by hand.
	KindTransient ErrorKind = "transient"
)

// SaleError is the only error type the submission boundary hands out.
type SaleError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *SaleError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *SaleError) Unwrap() error { return e.Err }

// Retryable reports whether resubmitting the same sale can succeed without
// the cashier changing it. Only transient failures qualify: a concurrency
// failure repeats until the cart is rebuilt from refreshed read models.
func (e *SaleError) Retryable() bool {
	return e.Kind == KindTransient
}

func NewSaleError(kind ErrorKind, err error) *SaleError {
	return &SaleError{Kind: kind, Message: err.Error(), Err: err}
}

// KindOf returns the kind of a *SaleError anywhere in err's chain, or the
// empty kind.
func KindOf(err error) ErrorKind {
	var saleErr *SaleError
	if errors.As(err, &saleErr) {
		return saleErr.Kind
	}
	return ""
}
