package request

import (
	"kassa/src/shared/domain/money"

	"github.com/shopspring/decimal"
)

// AddItemRequest adds a product by quantity. Count items take whole
// quantities; weight and volume items take up to five decimal places.
type AddItemRequest struct {
	ProductID string         `json:"product_id" binding:"required"`
	Quantity  money.Quantity `json:"quantity"`
}

// AddByAmountRequest adds a weighed item by the money the customer wants to
// spend on it.
type AddByAmountRequest struct {
	ProductID string      `json:"product_id" binding:"required"`
	Amount    money.Money `json:"amount"`
}

type AdjustQuantityRequest struct {
	Delta decimal.Decimal `json:"delta"`
}

// PaymentRequest replaces every tender amount at once. Omitted amounts are
// zero.
type PaymentRequest struct {
	Cash     money.Money `json:"cash"`
	Card     money.Money `json:"card"`
	Transfer money.Money `json:"transfer"`
	Debt     money.Money `json:"debt"`
	Bonus    money.Money `json:"bonus"`
}

type BindCustomerRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
}
