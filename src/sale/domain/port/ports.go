package port

import (
	"context"

	"kassa/src/sale/domain/entity"

	"github.com/google/uuid"
)

// ProductCatalog reads products by id. Unknown ids return
// entity.ErrProductNotFound.
type ProductCatalog interface {
	Product(ctx context.Context, productID string) (*entity.Product, error)
}

// CustomerDirectory reads customers by id. Unknown ids return
// entity.ErrCustomerNotFound.
type CustomerDirectory interface {
	Customer(ctx context.Context, customerID string) (*entity.Customer, error)
}

type SettingsProvider interface {
	Settings(ctx context.Context) (*entity.Settings, error)
}

// SaleRepository is the backend of record for sales.
type SaleRepository interface {
	// Create records the sale atomically. A key that was already used
	// returns the original confirmation with Replayed set.
	Create(ctx context.Context, req *entity.SaleRequest) (*entity.Confirmation, error)

	// Refund reverses a sale's stock, debt, bonus and shift totals.
	Refund(ctx context.Context, saleID uuid.UUID) (*entity.RefundResult, error)
}
