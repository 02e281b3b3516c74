package usecase

import (
	"errors"

	"kassa/src/sale/domain/entity"
	"kassa/src/shared/domain/money"
	shiftEntity "kassa/src/shift/domain/entity"
)

var localValidation = []error{
	entity.ErrProductIDRequired,
	entity.ErrProductNameRequired,
	entity.ErrInvalidPrice,
	entity.ErrInvalidQuantity,
	entity.ErrInvalidAmount,
	entity.ErrFractionalCount,
	entity.ErrNotMeasured,
	entity.ErrUnknownUnit,
	entity.ErrLineNotFound,
	entity.ErrEmptyCart,
	entity.ErrInsufficientPayment,
	entity.ErrCustomerRequiredForDebt,
	entity.ErrCustomerRequiredForBonus,
	entity.ErrBonusExceedsBalance,
	entity.ErrUnknownPaymentMethod,
	entity.ErrSubmissionInFlight,
	money.ErrNegativeAmount,
	money.ErrNonPositiveQuantity,
	money.ErrInvalidNumber,
	shiftEntity.ErrShiftNotOpen,
	shiftEntity.ErrCashierRequired,
}

// Conflicts the backend reports when another actor changed state after the
// sale was composed.
var remoteConflicts = []error{
	entity.ErrStockConflict,
	entity.ErrPriceChanged,
	entity.ErrBonusExceedsBalance,
	entity.ErrProductNotFound,
	entity.ErrCustomerNotFound,
	entity.ErrAlreadyRefunded,
	shiftEntity.ErrShiftNotOpen,
	shiftEntity.ErrShiftClosed,
	shiftEntity.ErrShiftAlreadyOpen,
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// classifyLocal handles failures raised before any remote call. Lookup
// errors from the read side (catalog, directory, shift refresh) also pass
// through here.
func classifyLocal(err error) *entity.SaleError {
	var saleErr *entity.SaleError
	switch {
	case errors.As(err, &saleErr):
		return saleErr
	case isAny(err, localValidation),
		errors.Is(err, entity.ErrProductNotFound),
		errors.Is(err, entity.ErrCustomerNotFound):
		return entity.NewSaleError(entity.KindValidation, err)
	case errors.Is(err, entity.ErrForbidden):
		return entity.NewSaleError(entity.KindAuthorization, err)
	default:
		return entity.NewSaleError(entity.KindTransient, err)
	}
}

// classifyRemote handles failures reported by the sale repository. Nothing
// leaves the submission boundary unclassified: anything unrecognised is
// treated as the backend being unavailable.
func classifyRemote(err error) *entity.SaleError {
	var saleErr *entity.SaleError
	switch {
	case errors.As(err, &saleErr):
		return saleErr
	case errors.Is(err, entity.ErrForbidden):
		return entity.NewSaleError(entity.KindAuthorization, err)
	case isAny(err, remoteConflicts):
		return entity.NewSaleError(entity.KindConcurrency, err)
	case errors.Is(err, entity.ErrSaleNotFound):
		return entity.NewSaleError(entity.KindValidation, err)
	default:
		return entity.NewSaleError(entity.KindTransient, err)
	}
}
