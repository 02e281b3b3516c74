package persistence

import (
	"context"
	"database/sql"
	"testing"

	"kassa/src/sale/domain/entity"
	"kassa/src/shared/domain/money"
	"kassa/src/shared/infrastructure/database/dbtest"
	shiftEntity "kassa/src/shift/domain/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	_, err := db.ExecContext(ctx, `
		INSERT INTO products (id, name, unit_price, unit, stock) VALUES
			('bread', 'Non', 4000, 'count', 10),
			('cheese', 'Pishloq', 15000, 'weight', 2.5)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO customers (id, name, bonus_balance, telegram_id) VALUES ('c-1', 'Dilnoza', 500, 42)`)
	require.NoError(t, err)

	shiftID := uuid.New()
	_, err = db.ExecContext(ctx, `
		INSERT INTO shifts (id, cashier_id, opening_balance) VALUES ($1, 'cashier-1', 100000)`, shiftID)
	require.NoError(t, err)
	return shiftID
}

func saleRequest(t *testing.T, shiftID uuid.UUID, customer *entity.Customer, in entity.SplitInput) *entity.SaleRequest {
	t.Helper()
	cart := entity.NewCart()
	_, err := cart.Add(entity.Product{ID: "bread", Name: "Non", UnitPrice: money.FromInt(4000), Unit: entity.UnitCount}, money.Units(2))
	require.NoError(t, err)
	half, err := money.ParseQuantity("0.5")
	require.NoError(t, err)
	_, err = cart.Add(entity.Product{ID: "cheese", Name: "Pishloq", UnitPrice: money.FromInt(15000), Unit: entity.UnitWeight}, half)
	require.NoError(t, err)

	calc := entity.Calculator{Total: cart.Total(), Customer: customer, Settings: entity.DefaultSettings()}
	req, err := entity.NewSaleRequest(uuid.New(), "cashier-1", &shiftID, cart.Lines(), calc.Settle(in), customer)
	require.NoError(t, err)
	return req
}

func TestSalePostgresRepository_CreateAndRefund(t *testing.T) {
	db := dbtest.NewPostgres(t)
	shiftID := seed(t, db)
	repo := NewSalePostgresRepository(db)
	reader := NewCatalogPostgresReader(db)
	ctx := context.Background()

	customer, err := reader.Customer(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), customer.TelegramID)

	// 15500 = 5000 cash + 10000 debt + 500 bonus
	req := saleRequest(t, shiftID, customer, entity.SplitInput{
		Cash:  money.FromInt(5000),
		Debt:  money.FromInt(10000),
		Bonus: money.FromInt(500),
	})

	conf, err := repo.Create(ctx, req)
	require.NoError(t, err)
	assert.False(t, conf.Replayed)
	require.NotNil(t, conf.DebtDueDate)
	require.Len(t, conf.StockLevels, 2)
	assert.Equal(t, "8", conf.StockLevels[0].Remaining.String())
	assert.Equal(t, "2", conf.StockLevels[1].Remaining.String())

	again, err := repo.Create(ctx, req)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, conf.SaleID, again.SaleID)

	bread, err := reader.Product(ctx, "bread")
	require.NoError(t, err)
	assert.Equal(t, "8", bread.Stock.String())

	customer, err = reader.Customer(ctx, "c-1")
	require.NoError(t, err)
	// 1% of the 5500 not sold on credit
	assert.Equal(t, "55", customer.BonusBalance.String())
	assert.Equal(t, "10000", customer.DebtBalance.String())

	var cash, debt decimal.Decimal
	var count int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT total_cash, total_debt, sale_count FROM shifts WHERE id = $1`, shiftID).Scan(&cash, &debt, &count))
	assert.Equal(t, "5000", cash.String())
	assert.Equal(t, "10000", debt.String())
	assert.Equal(t, 1, count)

	res, err := repo.Refund(ctx, conf.SaleID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bread", "cheese"}, res.ProductIDs)
	assert.Equal(t, "500", res.BonusRestored.String())
	assert.Equal(t, "55", res.BonusRevoked.String())
	assert.Equal(t, "10000", res.DebtReversed.String())
	assert.Equal(t, "cashier-1", res.CashierID)
	require.NotNil(t, res.ShiftID)

	bread, err = reader.Product(ctx, "bread")
	require.NoError(t, err)
	assert.Equal(t, "10", bread.Stock.String())
	customer, err = reader.Customer(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "500", customer.BonusBalance.String())
	assert.True(t, customer.DebtBalance.IsZero())

	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT total_cash, sale_count FROM shifts WHERE id = $1`, shiftID).Scan(&cash, &count))
	assert.True(t, cash.IsZero())
	assert.Equal(t, 0, count)

	_, err = repo.Refund(ctx, conf.SaleID)
	assert.ErrorIs(t, err, entity.ErrAlreadyRefunded)
	_, err = repo.Refund(ctx, uuid.New())
	assert.ErrorIs(t, err, entity.ErrSaleNotFound)
}

func TestSalePostgresRepository_Conflicts(t *testing.T) {
	db := dbtest.NewPostgres(t)
	shiftID := seed(t, db)
	repo := NewSalePostgresRepository(db)
	ctx := context.Background()
	paid := entity.SplitInput{Cash: money.FromInt(15500)}

	_, err := db.ExecContext(ctx, `UPDATE products SET unit_price = 4500 WHERE id = 'bread'`)
	require.NoError(t, err)
	_, err = repo.Create(ctx, saleRequest(t, shiftID, nil, paid))
	assert.ErrorIs(t, err, entity.ErrPriceChanged)

	_, err = db.ExecContext(ctx, `UPDATE products SET unit_price = 4000, stock = 1 WHERE id = 'bread'`)
	require.NoError(t, err)
	_, err = repo.Create(ctx, saleRequest(t, shiftID, nil, paid))
	assert.ErrorIs(t, err, entity.ErrStockConflict)

	// nothing was booked by the failed attempts
	var stock decimal.Decimal
	require.NoError(t, db.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = 'cheese'`).Scan(&stock))
	assert.Equal(t, "2.5", stock.String())

	_, err = db.ExecContext(ctx, `UPDATE products SET stock = 10 WHERE id = 'bread'`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `UPDATE shifts SET status = 'closed' WHERE id = $1`, shiftID)
	require.NoError(t, err)
	_, err = repo.Create(ctx, saleRequest(t, shiftID, nil, paid))
	assert.ErrorIs(t, err, shiftEntity.ErrShiftClosed)

	_, err = repo.Create(ctx, saleRequest(t, uuid.New(), nil, paid))
	assert.ErrorIs(t, err, shiftEntity.ErrShiftNotOpen)
}

func TestCatalogPostgresReader(t *testing.T) {
	db := dbtest.NewPostgres(t)
	seed(t, db)
	reader := NewCatalogPostgresReader(db)
	ctx := context.Background()

	cheese, err := reader.Product(ctx, "cheese")
	require.NoError(t, err)
	assert.Equal(t, entity.UnitWeight, cheese.Unit)
	assert.Equal(t, "15000", cheese.UnitPrice.String())

	_, err = reader.Product(ctx, "nope")
	assert.ErrorIs(t, err, entity.ErrProductNotFound)
	_, err = reader.Customer(ctx, "nope")
	assert.ErrorIs(t, err, entity.ErrCustomerNotFound)

	settings, err := reader.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.BonusBaseNonDebt, settings.BonusBase)
	assert.Equal(t, 30, settings.DebtDueDays)
}
