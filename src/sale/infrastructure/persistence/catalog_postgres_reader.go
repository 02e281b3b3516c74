package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kassa/src/sale/domain/entity"
)

// CatalogPostgresReader reads products, customers and store settings. It
// implements ProductCatalog, CustomerDirectory and SettingsProvider.
type CatalogPostgresReader struct {
	db *sql.DB
}

func NewCatalogPostgresReader(db *sql.DB) *CatalogPostgresReader {
	return &CatalogPostgresReader{db: db}
}

func (r *CatalogPostgresReader) Product(ctx context.Context, productID string) (*entity.Product, error) {
	p := &entity.Product{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, unit_price, unit, stock, is_favorite
		FROM products
		WHERE id = $1`, productID,
	).Scan(&p.ID, &p.Name, &p.UnitPrice, &p.Unit, &p.Stock, &p.Favorite)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading product %s: %w", productID, err)
	}
	return p, nil
}

func (r *CatalogPostgresReader) Customer(ctx context.Context, customerID string) (*entity.Customer, error) {
	c := &entity.Customer{}
	var telegramID sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, bonus_balance, debt_balance, telegram_id
		FROM customers
		WHERE id = $1`, customerID,
	).Scan(&c.ID, &c.Name, &c.BonusBalance, &c.DebtBalance, &telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading customer %s: %w", customerID, err)
	}
	c.TelegramID = telegramID.Int64
	return c, nil
}

func (r *CatalogPostgresReader) Settings(ctx context.Context) (*entity.Settings, error) {
	s := entity.DefaultSettings()
	err := r.db.QueryRowContext(ctx, `
		SELECT bonus_percentage, bonus_base, low_stock_threshold, debt_due_days
		FROM store_settings
		WHERE id = 1`,
	).Scan(&s.BonusPercentage, &s.BonusBase, &s.LowStockThreshold, &s.DebtDueDays)
	if errors.Is(err, sql.ErrNoRows) {
		return &s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading store settings: %w", err)
	}
	return &s, nil
}
