package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"kassa/src/sale/domain/entity"
	"kassa/src/sale/domain/port"
	"kassa/src/shared/domain/money"
	"kassa/src/shared/infrastructure/database"
	shiftEntity "kassa/src/shift/domain/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const idempotencyKeyConstraint = "sales_idempotency_key_key"

const (
	statusCompleted = "completed"
	statusRefunded  = "refunded"
)

// SalePostgresRepository books sales in PostgreSQL. Create and Refund each
// run in a single transaction that also moves stock, customer balances and
// shift totals.
type SalePostgresRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSalePostgresRepository(db *sql.DB) *SalePostgresRepository {
	return &SalePostgresRepository{db: db, now: time.Now}
}

var _ port.SaleRepository = (*SalePostgresRepository)(nil)

type lockedProduct struct {
	name      string
	unitPrice money.Money
	stock     decimal.Decimal
}

// Create records req. A request whose idempotency key was already booked
// returns the stored confirmation with Replayed set and changes nothing.
func (r *SalePostgresRepository) Create(ctx context.Context, req *entity.SaleRequest) (*entity.Confirmation, error) {
	conf, err := r.create(ctx, req)
	if database.IsUniqueViolation(err, idempotencyKeyConstraint) {
		// a concurrent attempt with the same key won the insert
		return r.replay(ctx, r.db, req.IdempotencyKey)
	}
	return conf, err
}

func (r *SalePostgresRepository) create(ctx context.Context, req *entity.SaleRequest) (*entity.Confirmation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	conf, err := r.replay(ctx, tx, req.IdempotencyKey)
	if err == nil {
		return conf, nil
	}
	if !errors.Is(err, entity.ErrSaleNotFound) {
		return nil, err
	}

	if req.ShiftID != nil {
		if err := requireOpenShift(ctx, tx, *req.ShiftID); err != nil {
			return nil, err
		}
	}

	products, err := lockProducts(ctx, tx, req.Lines)
	if err != nil {
		return nil, err
	}

	levels := make([]entity.StockLevel, 0, len(req.Lines))
	for _, line := range req.Lines {
		p := products[line.ProductID]
		if !p.unitPrice.Equal(line.UnitPrice) {
			return nil, fmt.Errorf("%w: %s is now %s", entity.ErrPriceChanged, line.ProductName, p.unitPrice)
		}
		remaining := p.stock.Sub(line.Quantity.Decimal())
		if remaining.IsNegative() {
			return nil, fmt.Errorf("%w: %s has %s left", entity.ErrStockConflict, line.ProductName, p.stock)
		}
		p.stock = remaining
		products[line.ProductID] = p
		levels = append(levels, entity.StockLevel{
			ProductID:   line.ProductID,
			ProductName: p.name,
			Remaining:   remaining,
		})
	}
	for id, p := range products {
		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1`, id, p.stock); err != nil {
			return nil, fmt.Errorf("error updating stock for %s: %w", id, err)
		}
	}

	now := r.now()
	var dueDate *time.Time
	if req.CustomerID != nil {
		dueDate, err = r.chargeCustomer(ctx, tx, *req.CustomerID, req, now)
		if err != nil {
			return nil, err
		}
	}

	saleID := uuid.New()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (
			id, idempotency_key, cashier_id, shift_id, customer_id,
			total, cash, card, transfer, debt, bonus_spent, bonus_earned,
			change, payment_method, debt_due_date, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)`,
		saleID,
		req.IdempotencyKey,
		req.CashierID,
		req.ShiftID,
		req.CustomerID,
		req.Total,
		req.Cash,
		req.Card,
		req.Transfer,
		req.Debt,
		req.BonusSpent,
		req.BonusEarned,
		req.Change,
		req.Method,
		dueDate,
		statusCompleted,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("error creating sale: %w", err)
	}

	for _, line := range req.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, product_name, quantity, unit_price, unit, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			saleID,
			line.ProductID,
			line.ProductName,
			line.Quantity,
			line.UnitPrice,
			line.Unit,
			line.UnitPrice.Times(line.Quantity),
		)
		if err != nil {
			return nil, fmt.Errorf("error creating sale item for %s: %w", line.ProductID, err)
		}
	}

	if req.ShiftID != nil {
		if err := addShiftTotals(ctx, tx, *req.ShiftID, req, 1); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}

	return &entity.Confirmation{
		SaleID:      saleID,
		CreatedAt:   now,
		Total:       req.Total,
		Change:      req.Change,
		BonusEarned: req.BonusEarned,
		Method:      req.Method,
		DebtDueDate: dueDate,
		StockLevels: levels,
	}, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SalePostgresRepository) replay(ctx context.Context, q querier, key uuid.UUID) (*entity.Confirmation, error) {
	conf := &entity.Confirmation{Replayed: true}
	err := q.QueryRowContext(ctx, `
		SELECT id, created_at, total, change, bonus_earned, payment_method, debt_due_date
		FROM sales
		WHERE idempotency_key = $1`, key,
	).Scan(
		&conf.SaleID,
		&conf.CreatedAt,
		&conf.Total,
		&conf.Change,
		&conf.BonusEarned,
		&conf.Method,
		&conf.DebtDueDate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrSaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error looking up idempotency key: %w", err)
	}
	return conf, nil
}

func requireOpenShift(ctx context.Context, tx *sql.Tx, shiftID uuid.UUID) error {
	var status string
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM shifts WHERE id = $1 FOR UPDATE`, shiftID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return shiftEntity.ErrShiftNotOpen
	}
	if err != nil {
		return fmt.Errorf("error locking shift: %w", err)
	}
	if shiftEntity.Status(status) != shiftEntity.StatusOpen {
		return shiftEntity.ErrShiftClosed
	}
	return nil
}

// lockProducts locks every product on the sale in id order.
func lockProducts(ctx context.Context, tx *sql.Tx, lines []entity.SaleLine) (map[string]lockedProduct, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, unit_price, stock
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("error locking products: %w", err)
	}
	defer rows.Close()

	products := make(map[string]lockedProduct, len(ids))
	for rows.Next() {
		var id string
		var p lockedProduct
		if err := rows.Scan(&id, &p.name, &p.unitPrice, &p.stock); err != nil {
			return nil, fmt.Errorf("error scanning product: %w", err)
		}
		products[id] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, fmt.Errorf("%w: %s", entity.ErrProductNotFound, id)
		}
	}
	return products, nil
}

// chargeCustomer books credit and points against the customer and returns
// the debt due date when credit was extended.
func (r *SalePostgresRepository) chargeCustomer(ctx context.Context, tx *sql.Tx, customerID string, req *entity.SaleRequest, now time.Time) (*time.Time, error) {
	var bonus money.Money
	err := tx.QueryRowContext(ctx,
		`SELECT bonus_balance FROM customers WHERE id = $1 FOR UPDATE`, customerID).Scan(&bonus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error locking customer: %w", err)
	}
	if req.BonusSpent.GreaterThan(bonus) {
		return nil, entity.ErrBonusExceedsBalance
	}

	var dueDate *time.Time
	if req.Debt.IsPositive() {
		var days int
		if err := tx.QueryRowContext(ctx,
			`SELECT debt_due_days FROM store_settings WHERE id = 1`).Scan(&days); err != nil {
			return nil, fmt.Errorf("error reading debt terms: %w", err)
		}
		due := now.AddDate(0, 0, days)
		dueDate = &due
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE customers
		SET bonus_balance = bonus_balance - $2 + $3,
		    debt_balance = debt_balance + $4,
		    debt_due_date = COALESCE($5, debt_due_date)
		WHERE id = $1`,
		customerID, req.BonusSpent, req.BonusEarned, req.Debt, dueDate,
	)
	if err != nil {
		return nil, fmt.Errorf("error updating customer balances: %w", err)
	}
	return dueDate, nil
}

// addShiftTotals adds (sign 1) or removes (sign -1) a sale's tenders from the
// shift's running totals.
func addShiftTotals(ctx context.Context, tx *sql.Tx, shiftID uuid.UUID, req *entity.SaleRequest, sign int64) error {
	s := decimal.NewFromInt(sign)
	_, err := tx.ExecContext(ctx, `
		UPDATE shifts
		SET total_cash = total_cash + $2,
		    total_card = total_card + $3,
		    total_transfer = total_transfer + $4,
		    total_debt = total_debt + $5,
		    total_bonus = total_bonus + $6,
		    sale_count = sale_count + $7
		WHERE id = $1`,
		shiftID,
		req.CashContribution().Decimal().Mul(s),
		req.Card.Decimal().Mul(s),
		req.Transfer.Decimal().Mul(s),
		req.Debt.Decimal().Mul(s),
		req.BonusSpent.Decimal().Mul(s),
		sign,
	)
	if err != nil {
		return fmt.Errorf("error updating shift totals: %w", err)
	}
	return nil
}

// Refund reverses a completed sale. Stock goes back, credit and points are
// undone, and the totals of the sale's shift are reduced while that shift is
// still open. A closed shift keeps its closing figures.
func (r *SalePostgresRepository) Refund(ctx context.Context, saleID uuid.UUID) (*entity.RefundResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		req    entity.SaleRequest
		status string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT cashier_id, shift_id, customer_id, total, cash, card, transfer,
		       debt, bonus_spent, bonus_earned, change, payment_method, status
		FROM sales
		WHERE id = $1
		FOR UPDATE`, saleID,
	).Scan(
		&req.CashierID,
		&req.ShiftID,
		&req.CustomerID,
		&req.Total,
		&req.Cash,
		&req.Card,
		&req.Transfer,
		&req.Debt,
		&req.BonusSpent,
		&req.BonusEarned,
		&req.Change,
		&req.Method,
		&status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrSaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error locking sale: %w", err)
	}
	if status == statusRefunded {
		return nil, entity.ErrAlreadyRefunded
	}

	productIDs, err := restock(ctx, tx, saleID)
	if err != nil {
		return nil, err
	}

	res := &entity.RefundResult{
		SaleID:       saleID,
		RefundedAt:   r.now(),
		Total:        req.Total,
		CashReturned: req.CashContribution(),
		DebtReversed: req.Debt,
		CustomerID:   req.CustomerID,
		CashierID:    req.CashierID,
		ProductIDs:   productIDs,
	}

	if req.CustomerID != nil {
		if err := refundCustomer(ctx, tx, *req.CustomerID, &req, res); err != nil {
			return nil, err
		}
	}

	if req.ShiftID != nil {
		var shiftStatus string
		err = tx.QueryRowContext(ctx,
			`SELECT status FROM shifts WHERE id = $1 FOR UPDATE`, *req.ShiftID).Scan(&shiftStatus)
		if err != nil {
			return nil, fmt.Errorf("error locking shift: %w", err)
		}
		if shiftEntity.Status(shiftStatus) == shiftEntity.StatusOpen {
			if err := addShiftTotals(ctx, tx, *req.ShiftID, &req, -1); err != nil {
				return nil, err
			}
			res.ShiftID = req.ShiftID
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE sales SET status = $2, refunded_at = $3 WHERE id = $1`,
		saleID, statusRefunded, res.RefundedAt)
	if err != nil {
		return nil, fmt.Errorf("error marking sale refunded: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}
	return res, nil
}

// refundCustomer gives back spent points, takes back earned ones as far as
// the balance allows and cancels the credit.
func refundCustomer(ctx context.Context, tx *sql.Tx, customerID string, req *entity.SaleRequest, res *entity.RefundResult) error {
	var bonus money.Money
	err := tx.QueryRowContext(ctx,
		`SELECT bonus_balance FROM customers WHERE id = $1 FOR UPDATE`, customerID).Scan(&bonus)
	if err != nil {
		return fmt.Errorf("error locking customer: %w", err)
	}

	available := bonus.Add(req.BonusSpent)
	res.BonusRestored = req.BonusSpent
	res.BonusRevoked = req.BonusEarned.Min(available)

	_, err = tx.ExecContext(ctx, `
		UPDATE customers
		SET bonus_balance = $2, debt_balance = debt_balance - $3
		WHERE id = $1`,
		customerID, available.SubFloor(res.BonusRevoked), req.Debt,
	)
	if err != nil {
		return fmt.Errorf("error reversing customer balances: %w", err)
	}
	return nil
}

// restock returns every item of the sale to stock and reports the product
// ids touched.
func restock(ctx context.Context, tx *sql.Tx, saleID uuid.UUID) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
		UPDATE products p
		SET stock = p.stock + i.quantity, updated_at = NOW()
		FROM (
			SELECT product_id, SUM(quantity) AS quantity
			FROM sale_items
			WHERE sale_id = $1
			GROUP BY product_id
		) i
		WHERE p.id = i.product_id
		RETURNING p.id`, saleID)
	if err != nil {
		return nil, fmt.Errorf("error restocking sale items: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning restocked product: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating restocked products: %w", err)
	}
	return ids, nil
}
