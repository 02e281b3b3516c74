package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	saleEntity "kassa/src/sale/domain/entity"
	"kassa/src/shared/infrastructure/metrics"
	"kassa/src/shift/application/request"
	"kassa/src/shift/domain/entity"
	"kassa/src/shift/domain/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// session is the locally cached view of one cashier's shift. A nil shift
// means the backend last reported none. A stale session must be refreshed
// before any decision is based on it.
type session struct {
	shift *entity.Shift
	stale bool
}

// ShiftUseCase drives the shift state machine for every cashier of the
// service. The backend is authoritative; sessions only cache it.
type ShiftUseCase struct {
	repo     port.ShiftRepository
	policy   port.ShiftGatePolicy
	metrics  *metrics.Metrics
	logger   *zap.Logger
	mu       sync.Mutex
	sessions map[string]*session
}

func NewShiftUseCase(
	repo port.ShiftRepository,
	policy port.ShiftGatePolicy,
	m *metrics.Metrics,
	logger *zap.Logger,
) *ShiftUseCase {
	return &ShiftUseCase{
		repo:     repo,
		policy:   policy,
		metrics:  m,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

// Open starts a shift. The backend is consulted first so a shift opened from
// another workstation is found even when the local cache says none.
func (uc *ShiftUseCase) Open(ctx context.Context, cashierID string, req request.OpenShiftRequest) (*entity.Shift, error) {
	if cashierID == "" {
		return nil, entity.ErrCashierRequired
	}

	active, err := uc.Refresh(ctx, cashierID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		uc.logger.Warn("open rejected, shift already open",
			zap.String("cashier_id", cashierID), zap.String("shift_id", active.ID.String()))
		return nil, entity.ErrShiftAlreadyOpen
	}

	shift, err := uc.repo.Open(ctx, cashierID, req.OpeningBalance, req.Note)
	if err != nil {
		uc.Invalidate(cashierID)
		if errors.Is(err, entity.ErrShiftAlreadyOpen) {
			return nil, err
		}
		return nil, fmt.Errorf("opening shift: %w", err)
	}

	uc.store(cashierID, shift)
	uc.logger.Info("shift opened",
		zap.String("cashier_id", cashierID),
		zap.String("shift_id", shift.ID.String()),
		zap.String("opening_balance", shift.OpeningBalance.String()))
	return copyShift(shift), nil
}

// Close ends the active shift with the counted drawer balance. A variance
// is logged and recorded, never refused.
func (uc *ShiftUseCase) Close(ctx context.Context, cashierID string, req request.CloseShiftRequest) (*entity.ClosedShift, error) {
	active, err := uc.Refresh(ctx, cashierID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, entity.ErrNoActiveShift
	}

	closed, err := uc.repo.Close(ctx, active.ID, req.CountedBalance, req.Note)
	if err != nil {
		uc.Invalidate(cashierID)
		return nil, fmt.Errorf("closing shift %s: %w", active.ID, err)
	}

	uc.store(cashierID, nil)
	uc.metrics.ShiftVariance.Observe(closed.Variance.InexactFloat64())

	fields := []zap.Field{
		zap.String("cashier_id", cashierID),
		zap.String("shift_id", closed.ID.String()),
		zap.String("expected", closed.ExpectedCash.String()),
		zap.String("counted", closed.CountedBalance.String()),
		zap.String("variance", closed.Variance.String()),
	}
	if closed.Variance.IsZero() {
		uc.logger.Info("shift closed", fields...)
	} else {
		uc.logger.Warn("shift closed with variance", fields...)
	}
	return closed, nil
}

// RecordMovement books cash in or out of the drawer on the active shift.
func (uc *ShiftUseCase) RecordMovement(ctx context.Context, cashierID string, req request.CashMovementRequest) (*entity.CashMovement, error) {
	active, err := uc.Current(ctx, cashierID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, entity.ErrShiftNotOpen
	}

	movement, err := entity.NewCashMovement(active.ID, entity.MovementKind(req.Kind), req.Amount, req.Note)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.AddMovement(ctx, movement); err != nil {
		uc.Invalidate(cashierID)
		return nil, fmt.Errorf("recording cash movement: %w", err)
	}

	uc.mu.Lock()
	if s, ok := uc.sessions[cashierID]; ok && s.shift != nil && s.shift.ID == movement.ShiftID {
		if err := s.shift.AddMovement(*movement); err != nil {
			s.stale = true
		}
	}
	uc.mu.Unlock()

	uc.logger.Info("cash movement recorded",
		zap.String("cashier_id", cashierID),
		zap.String("kind", string(movement.Kind)),
		zap.String("amount", movement.Amount.String()))
	return movement, nil
}

// Current returns the cached shift, refreshing it first when it is stale or
// unknown. A nil shift with no error means none is open.
func (uc *ShiftUseCase) Current(ctx context.Context, cashierID string) (*entity.Shift, error) {
	uc.mu.Lock()
	s, ok := uc.sessions[cashierID]
	if ok && !s.stale {
		shift := copyShift(s.shift)
		uc.mu.Unlock()
		return shift, nil
	}
	uc.mu.Unlock()
	return uc.Refresh(ctx, cashierID)
}

// Refresh reloads the cashier's shift from the backend.
func (uc *ShiftUseCase) Refresh(ctx context.Context, cashierID string) (*entity.Shift, error) {
	shift, err := uc.repo.GetActive(ctx, cashierID)
	switch {
	case errors.Is(err, entity.ErrNoActiveShift):
		uc.store(cashierID, nil)
		return nil, nil
	case err != nil:
		uc.Invalidate(cashierID)
		return nil, fmt.Errorf("loading active shift: %w", err)
	}
	uc.store(cashierID, shift)
	return copyShift(shift), nil
}

// State reports the cached state without touching the backend.
func (uc *ShiftUseCase) State(cashierID string) entity.State {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if s, ok := uc.sessions[cashierID]; ok && s.shift.IsOpen() {
		return entity.StateOpen
	}
	return entity.StateNoActiveShift
}

// Authorize implements the register's shift gate.
func (uc *ShiftUseCase) Authorize(ctx context.Context, cashierID, role string) (*uuid.UUID, error) {
	shift, err := uc.Current(ctx, cashierID)
	if err != nil {
		return nil, err
	}
	if shift.IsOpen() {
		id := shift.ID
		return &id, nil
	}
	if uc.policy.RequiresOpenShift(role) {
		return nil, entity.ErrShiftNotOpen
	}
	return nil, nil
}

// RecordSale folds a confirmed sale into the cached totals. The backend has
// already applied it; a mismatch only marks the cache stale.
func (uc *ShiftUseCase) RecordSale(cashierID string, req *saleEntity.SaleRequest) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	s, ok := uc.sessions[cashierID]
	if !ok || s.shift == nil || req.ShiftID == nil || s.shift.ID != *req.ShiftID {
		if ok {
			s.stale = true
		}
		return
	}
	err := s.shift.RecordSale(entity.Contribution{
		Cash:     req.CashContribution(),
		Card:     req.Card,
		Transfer: req.Transfer,
		Debt:     req.Debt,
		Bonus:    req.BonusSpent,
	})
	if err != nil {
		s.stale = true
	}
}

// Invalidate marks the cashier's cached shift stale.
func (uc *ShiftUseCase) Invalidate(cashierID string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if s, ok := uc.sessions[cashierID]; ok {
		s.stale = true
	}
}

func (uc *ShiftUseCase) store(cashierID string, shift *entity.Shift) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.sessions[cashierID] = &session{shift: copyShift(shift)}
}

func copyShift(s *entity.Shift) *entity.Shift {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
