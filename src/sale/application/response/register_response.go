package response

import (
	"kassa/src/sale/domain/entity"
	"kassa/src/shared/domain/money"
)

type LineResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        entity.UnitKind `json:"unit"`
	Quantity    money.Quantity  `json:"quantity"`
	UnitPrice   money.Money     `json:"unit_price"`
	Subtotal    money.Money     `json:"subtotal"` // display only, the total rounds once
}

type CustomerResponse struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	BonusBalance money.Money `json:"bonus_balance"`
}

// RegisterResponse is the workstation screen: cart, tenders and the derived
// settlement.
type RegisterResponse struct {
	CashierID  string            `json:"cashier_id"`
	Lines      []LineResponse    `json:"lines"`
	Customer   *CustomerResponse `json:"customer,omitempty"`
	Payment    entity.SplitInput `json:"payment"`
	Settlement entity.Settlement `json:"settlement"`
	CanSubmit  bool              `json:"can_submit"`
	Problem    string            `json:"problem,omitempty"`
	InFlight   bool              `json:"in_flight"`
}

func NewRegisterResponse(
	cashierID string,
	lines []entity.LineItem,
	customer *entity.Customer,
	payment entity.SplitInput,
	settlement entity.Settlement,
	inFlight bool,
) *RegisterResponse {
	resp := &RegisterResponse{
		CashierID:  cashierID,
		Lines:      make([]LineResponse, 0, len(lines)),
		Payment:    payment,
		Settlement: settlement,
		InFlight:   inFlight,
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, LineResponse{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Unit:        l.Unit,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    money.NonNegative(l.Subtotal()),
		})
	}
	if customer != nil {
		resp.Customer = &CustomerResponse{
			ID:           customer.ID,
			Name:         customer.Name,
			BonusBalance: customer.BonusBalance,
		}
	}

	problem := settlement.Validate()
	if len(lines) == 0 {
		problem = entity.ErrEmptyCart
	}
	resp.CanSubmit = problem == nil && !inFlight
	if problem != nil {
		resp.Problem = problem.Error()
	}
	return resp
}
