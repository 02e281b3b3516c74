package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"kassa/src/sale/domain/entity"
	"kassa/src/sale/domain/port"
	"kassa/src/shared/domain/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	errNetwork = errors.New("dial tcp: connection refused")
	// errLostResponse makes fakeSales commit the sale and then fail the call.
	errLostResponse = errors.New("read tcp: connection reset by peer")
)

type fakeCatalog struct {
	products map[string]*entity.Product
}

func (c *fakeCatalog) Product(_ context.Context, id string) (*entity.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, entity.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

type fakeCustomers struct {
	customers map[string]*entity.Customer
}

func (d *fakeCustomers) Customer(_ context.Context, id string) (*entity.Customer, error) {
	c, ok := d.customers[id]
	if !ok {
		return nil, entity.ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

type fakeSettings struct {
	settings entity.Settings
	err      error
}

func (s *fakeSettings) Settings(context.Context) (*entity.Settings, error) {
	if s.err != nil {
		return nil, s.err
	}
	cp := s.settings
	return &cp, nil
}

// fakeSales answers Create from a queue of results. A non-nil gate channel
// holds Create until it is closed. A key that already committed is replayed.
type fakeSales struct {
	mu        sync.Mutex
	requests  []entity.SaleRequest
	results   []error
	gate      chan struct{}
	entered   chan struct{}
	stock     []entity.StockLevel
	committed map[uuid.UUID]bool

	refundErr   error
	refundOwner string
	refunded    []uuid.UUID
}

func (s *fakeSales) Create(ctx context.Context, req *entity.SaleRequest) (*entity.Confirmation, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, *req)

	replayed := s.committed[req.IdempotencyKey]
	if !replayed && len(s.results) > 0 {
		err := s.results[0]
		s.results = s.results[1:]
		if errors.Is(err, errLostResponse) {
			s.commit(req.IdempotencyKey)
			return nil, errNetwork
		}
		if err != nil {
			return nil, err
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	s.commit(req.IdempotencyKey)
	return &entity.Confirmation{
		SaleID:      uuid.New(),
		CreatedAt:   time.Now(),
		Total:       req.Total,
		Change:      req.Change,
		BonusEarned: req.BonusEarned,
		Method:      req.Method,
		StockLevels: s.stock,
		Replayed:    replayed,
	}, nil
}

func (s *fakeSales) commit(key uuid.UUID) {
	if s.committed == nil {
		s.committed = make(map[uuid.UUID]bool)
	}
	s.committed[key] = true
}

func (s *fakeSales) Refund(_ context.Context, saleID uuid.UUID) (*entity.RefundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refundErr != nil {
		return nil, s.refundErr
	}
	s.refunded = append(s.refunded, saleID)
	customerID := "c-1"
	owner := s.refundOwner
	if owner == "" {
		owner = "cashier-1"
	}
	return &entity.RefundResult{
		SaleID:     saleID,
		RefundedAt: time.Now(),
		Total:      money.FromInt(8000),
		CustomerID: &customerID,
		CashierID:  owner,
		ProductIDs: []string{"bread"},
	}, nil
}

func (s *fakeSales) calls() []entity.SaleRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.SaleRequest(nil), s.requests...)
}

type fakeGate struct {
	mu            sync.Mutex
	shiftID       *uuid.UUID
	err           error
	recorded      []entity.SaleRequest
	invalidations int
	invalidated   []string
}

func (g *fakeGate) Authorize(context.Context, string, string) (*uuid.UUID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shiftID, g.err
}

func (g *fakeGate) RecordSale(_ string, req *entity.SaleRequest) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recorded = append(g.recorded, *req)
}

func (g *fakeGate) Invalidate(cashierID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.invalidations++
	g.invalidated = append(g.invalidated, cashierID)
}

type fakeInvalidator struct {
	mu    sync.Mutex
	calls []port.Invalidation
}

func (i *fakeInvalidator) Invalidate(_ context.Context, inv port.Invalidation) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls = append(i.calls, inv)
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	debts    []entity.Customer
	lowStock [][]entity.StockLevel
	err      error
}

func (n *fakeNotifier) NotifyDebtSale(_ context.Context, c entity.Customer, _ *entity.SaleRequest, _ *entity.Confirmation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.debts = append(n.debts, c)
	return n.err
}

func (n *fakeNotifier) NotifyLowStock(_ context.Context, levels []entity.StockLevel) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lowStock = append(n.lowStock, levels)
	return n.err
}

type fixture struct {
	catalog     *fakeCatalog
	customers   *fakeCustomers
	settings    *fakeSettings
	sales       *fakeSales
	gate        *fakeGate
	invalidator *fakeInvalidator
	notifier    *fakeNotifier
}

func newFixture() *fixture {
	shiftID := uuid.New()
	return &fixture{
		catalog: &fakeCatalog{products: map[string]*entity.Product{
			"bread":  {ID: "bread", Name: "Non", UnitPrice: money.FromInt(4000), Unit: entity.UnitCount},
			"milk":   {ID: "milk", Name: "Sut", UnitPrice: money.FromInt(12000), Unit: entity.UnitVolume},
			"cheese": {ID: "cheese", Name: "Pishloq", UnitPrice: money.FromInt(15000), Unit: entity.UnitWeight},
		}},
		customers: &fakeCustomers{customers: map[string]*entity.Customer{
			"c-1": {ID: "c-1", Name: "Dilnoza", BonusBalance: money.FromInt(300), TelegramID: 42},
		}},
		settings: &fakeSettings{settings: entity.Settings{
			BonusPercentage:   decimal.NewFromInt(1),
			BonusBase:         entity.BonusBaseNonDebt,
			LowStockThreshold: decimal.NewFromInt(5),
			DebtDueDays:       30,
		}},
		sales:       &fakeSales{},
		gate:        &fakeGate{shiftID: &shiftID},
		invalidator: &fakeInvalidator{},
		notifier:    &fakeNotifier{},
	}
}

func (f *fixture) collaborators() Collaborators {
	return Collaborators{
		Catalog:     f.catalog,
		Customers:   f.customers,
		Settings:    f.settings,
		Sales:       f.sales,
		Shifts:      f.gate,
		Invalidator: f.invalidator,
		Notifier:    f.notifier,
	}
}
