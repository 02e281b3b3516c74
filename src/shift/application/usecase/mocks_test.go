package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"kassa/src/shared/domain/money"
	"kassa/src/shift/domain/entity"

	"github.com/google/uuid"
)

var errBackendDown = errors.New("connection refused")

// memoryShiftRepository keeps one open shift per cashier like the database's
// partial unique index does.
type memoryShiftRepository struct {
	mu        sync.Mutex
	shifts    map[uuid.UUID]*entity.Shift
	movements []entity.CashMovement

	getActiveCalls int
	failGetActive  int
	failOpen       error
}

func newMemoryShiftRepository() *memoryShiftRepository {
	return &memoryShiftRepository{shifts: make(map[uuid.UUID]*entity.Shift)}
}

func (r *memoryShiftRepository) Open(_ context.Context, cashierID string, opening money.Money, note string) (*entity.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOpen != nil {
		return nil, r.failOpen
	}
	if r.activeLocked(cashierID) != nil {
		return nil, entity.ErrShiftAlreadyOpen
	}
	s, err := entity.NewShift(cashierID, opening, note)
	if err != nil {
		return nil, err
	}
	r.shifts[s.ID] = s
	c := *s
	return &c, nil
}

func (r *memoryShiftRepository) Close(_ context.Context, shiftID uuid.UUID, counted money.Money, note string) (*entity.ClosedShift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shifts[shiftID]
	if !ok {
		return nil, entity.ErrShiftNotFound
	}
	return s.Close(counted, note, time.Now())
}

func (r *memoryShiftRepository) GetActive(_ context.Context, cashierID string) (*entity.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getActiveCalls++
	if r.failGetActive > 0 {
		r.failGetActive--
		return nil, errBackendDown
	}
	s := r.activeLocked(cashierID)
	if s == nil {
		return nil, entity.ErrNoActiveShift
	}
	c := *s
	return &c, nil
}

func (r *memoryShiftRepository) AddMovement(_ context.Context, m *entity.CashMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shifts[m.ShiftID]
	if !ok {
		return entity.ErrShiftNotFound
	}
	if err := s.AddMovement(*m); err != nil {
		return err
	}
	r.movements = append(r.movements, *m)
	return nil
}

// recordSale plays the part of the sale repository updating shift totals.
func (r *memoryShiftRepository) recordSale(cashierID string, c entity.Contribution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.activeLocked(cashierID)
	if s == nil {
		return entity.ErrShiftNotOpen
	}
	return s.RecordSale(c)
}

func (r *memoryShiftRepository) openCount(cashierID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.shifts {
		if s.CashierID == cashierID && s.IsOpen() {
			n++
		}
	}
	return n
}

func (r *memoryShiftRepository) activeLocked(cashierID string) *entity.Shift {
	for _, s := range r.shifts {
		if s.CashierID == cashierID && s.IsOpen() {
			return s
		}
	}
	return nil
}
