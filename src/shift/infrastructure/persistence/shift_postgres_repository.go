package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"kassa/src/shared/domain/money"
	"kassa/src/shared/infrastructure/database"
	"kassa/src/shift/domain/entity"
	"kassa/src/shift/domain/port"

	"github.com/google/uuid"
)

const oneOpenShiftConstraint = "shifts_one_open_per_cashier"

const shiftColumns = `
	id, cashier_id, status, opened_at, opening_balance,
	total_cash, total_card, total_transfer, total_debt, total_bonus,
	sale_count, cash_in, cash_out, note,
	closed_at, closing_balance, variance`

// ShiftPostgresRepository stores shifts in PostgreSQL. One open shift per
// cashier is enforced by a partial unique index.
type ShiftPostgresRepository struct {
	db *sql.DB
}

func NewShiftPostgresRepository(db *sql.DB) port.ShiftRepository {
	return &ShiftPostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShift(row rowScanner) (*entity.Shift, error) {
	s := &entity.Shift{}
	err := row.Scan(
		&s.ID,
		&s.CashierID,
		&s.Status,
		&s.OpenedAt,
		&s.OpeningBalance,
		&s.Totals.Cash,
		&s.Totals.Card,
		&s.Totals.Transfer,
		&s.Totals.Debt,
		&s.Totals.Bonus,
		&s.Totals.SaleCount,
		&s.Totals.CashIn,
		&s.Totals.CashOut,
		&s.Note,
		&s.ClosedAt,
		&s.ClosingBalance,
		&s.Variance,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *ShiftPostgresRepository) Open(ctx context.Context, cashierID string, opening money.Money, note string) (*entity.Shift, error) {
	shift, err := entity.NewShift(cashierID, opening, note)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO shifts (id, cashier_id, status, opened_at, opening_balance, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING` + shiftColumns

	created, err := scanShift(r.db.QueryRowContext(ctx, query,
		shift.ID,
		shift.CashierID,
		shift.Status,
		shift.OpenedAt,
		shift.OpeningBalance,
		shift.Note,
	))
	if err != nil {
		if database.IsUniqueViolation(err, oneOpenShiftConstraint) {
			return nil, entity.ErrShiftAlreadyOpen
		}
		return nil, fmt.Errorf("error opening shift: %w", err)
	}
	return created, nil
}

func (r *ShiftPostgresRepository) GetActive(ctx context.Context, cashierID string) (*entity.Shift, error) {
	query := `SELECT` + shiftColumns + `
		FROM shifts
		WHERE cashier_id = $1 AND status = 'open'`

	shift, err := scanShift(r.db.QueryRowContext(ctx, query, cashierID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNoActiveShift
	}
	if err != nil {
		return nil, fmt.Errorf("error loading active shift: %w", err)
	}
	return shift, nil
}

// Close locks the shift row, computes the variance from the stored totals
// and writes the closing record.
func (r *ShiftPostgresRepository) Close(ctx context.Context, shiftID uuid.UUID, counted money.Money, note string) (*entity.ClosedShift, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	shift, err := lockShift(ctx, tx, shiftID)
	if err != nil {
		return nil, err
	}

	closed, err := shift.Close(counted, note, time.Now())
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE shifts
		SET status = $2, closed_at = $3, closing_balance = $4,
		    expected_cash = $5, variance = $6, note = $7
		WHERE id = $1`,
		closed.ID,
		entity.StatusClosed,
		closed.ClosedAt,
		closed.CountedBalance,
		closed.ExpectedCash,
		closed.Variance,
		closed.Note,
	)
	if err != nil {
		return nil, fmt.Errorf("error closing shift: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}
	return closed, nil
}

func (r *ShiftPostgresRepository) AddMovement(ctx context.Context, m *entity.CashMovement) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	shift, err := lockShift(ctx, tx, m.ShiftID)
	if err != nil {
		return err
	}
	if !shift.IsOpen() {
		return entity.ErrShiftClosed
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shift_cash_movements (id, shift_id, kind, amount, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.ShiftID, m.Kind, m.Amount, m.Note, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting cash movement: %w", err)
	}

	column := "cash_in"
	if m.Kind == entity.MovementOut {
		column = "cash_out"
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE shifts SET `+column+` = `+column+` + $2 WHERE id = $1`,
		m.ShiftID, m.Amount,
	)
	if err != nil {
		return fmt.Errorf("error updating shift %s: %w", column, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func lockShift(ctx context.Context, tx *sql.Tx, shiftID uuid.UUID) (*entity.Shift, error) {
	query := `SELECT` + shiftColumns + `
		FROM shifts
		WHERE id = $1
		FOR UPDATE`

	shift, err := scanShift(tx.QueryRowContext(ctx, query, shiftID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrShiftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error locking shift: %w", err)
	}
	return shift, nil
}
