package usecase

import (
	"context"
	"sync"
	"time"

	"kassa/src/sale/application/request"
	"kassa/src/sale/application/response"
	"kassa/src/sale/domain/entity"
	"kassa/src/sale/domain/port"
	"kassa/src/shared/domain/money"
	"kassa/src/shared/infrastructure/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Collaborators are the external services a register talks to. Invalidator
// and Notifier may be nil.
type Collaborators struct {
	Catalog     port.ProductCatalog
	Customers   port.CustomerDirectory
	Settings    port.SettingsProvider
	Sales       port.SaleRepository
	Shifts      port.ShiftGate
	Invalidator port.ReadModelInvalidator
	Notifier    port.SaleNotifier
}

// Register is one cashier's workstation: the working cart, the tenders typed
// so far and the bound customer. Calls are serialized by mu, which is
// released while a sale is with the backend; inFlight locks the workstation
// for that time.
type Register struct {
	cashierID     string
	deps          Collaborators
	effects       *saleEffects
	metrics       *metrics.Metrics
	logger        *zap.Logger
	submitTimeout time.Duration

	mu       sync.Mutex
	cart     *entity.Cart
	split    entity.SplitInput
	customer *entity.Customer
	settings entity.Settings
	// key identifies the composed sale across manual retries. It is
	// uuid.Nil until the first attempt and reset by any change.
	key      uuid.UUID
	inFlight bool
}

func NewRegister(
	cashierID string,
	deps Collaborators,
	submitTimeout time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Register {
	logger = logger.With(zap.String("cashier_id", cashierID))
	return &Register{
		cashierID:     cashierID,
		deps:          deps,
		effects:       newSaleEffects(deps.Invalidator, deps.Notifier, m, logger),
		metrics:       m,
		logger:        logger,
		submitTimeout: submitTimeout,
		cart:          entity.NewCart(),
		settings:      entity.DefaultSettings(),
	}
}

func (r *Register) CashierID() string { return r.cashierID }

// mutate runs fn under the lock unless a submission is in flight. A
// successful change invalidates the idempotency key.
func (r *Register) mutate(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFlight {
		return classifyLocal(entity.ErrSubmissionInFlight)
	}
	if err := fn(); err != nil {
		return classifyLocal(err)
	}
	r.key = uuid.Nil
	return nil
}

// AddItem adds quantity of a product, priced from the catalog on first add.
func (r *Register) AddItem(ctx context.Context, req request.AddItemRequest) (*response.RegisterResponse, error) {
	err := r.mutate(func() error {
		p, err := r.deps.Catalog.Product(ctx, req.ProductID)
		if err != nil {
			return err
		}
		_, err = r.cart.Add(*p, req.Quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.Summary(ctx), nil
}

// AddByAmount adds a weighed product by the amount the customer wants to
// spend. The quantity is derived from the line's price: the price already in
// the cart for a repeated product, else the catalog price.
func (r *Register) AddByAmount(ctx context.Context, req request.AddByAmountRequest) (*response.RegisterResponse, error) {
	err := r.mutate(func() error {
		p, err := r.deps.Catalog.Product(ctx, req.ProductID)
		if err != nil {
			return err
		}
		priced := *p
		if line, ok := r.cart.Line(p.ID); ok {
			priced.UnitPrice = line.UnitPrice
		}
		q, err := entity.QuantityForAmount(priced, req.Amount)
		if err != nil {
			return err
		}
		_, err = r.cart.Add(*p, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.Summary(ctx), nil
}

func (r *Register) AdjustQuantity(ctx context.Context, productID string, delta decimal.Decimal) (*response.RegisterResponse, error) {
	err := r.mutate(func() error {
		_, _, err := r.cart.AdjustQuantity(productID, delta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.Summary(ctx), nil
}

func (r *Register) RemoveItem(ctx context.Context, productID string) (*response.RegisterResponse, error) {
	err := r.mutate(func() error {
		if !r.cart.Remove(productID) {
			return entity.ErrLineNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Summary(ctx), nil
}

// Void abandons the sale being composed.
func (r *Register) Void(ctx context.Context) (*response.RegisterResponse, error) {
	err := r.mutate(func() error {
		r.reset()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Summary(ctx), nil
}

// SetPayment replaces the tender amounts.
func (r *Register) SetPayment(ctx context.Context, req request.PaymentRequest) (*response.RegisterResponse, error) {
	err := r.mutate(func() error {
		in := entity.SplitInput{
			Cash:     req.Cash,
			Card:     req.Card,
			Transfer: req.Transfer,
			Debt:     req.Debt,
			Bonus:    req.Bonus,
		}
		if r.customer == nil && in.Debt.IsPositive() {
			return entity.ErrCustomerRequiredForDebt
		}
		r.split = in
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Summary(ctx), nil
}

// FillRemaining sets one tender to whatever is still uncovered.
func (r *Register) FillRemaining(ctx context.Context, method entity.PaymentMethod) (*response.RegisterResponse, error) {
	err := r.mutate(func() error {
		if method == entity.MethodDebt && r.customer == nil {
			return entity.ErrCustomerRequiredForDebt
		}
		out, err := r.calculator().FillRemaining(r.split, method)
		if err != nil {
			return err
		}
		r.split = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Summary(ctx), nil
}

func (r *Register) BindCustomer(ctx context.Context, customerID string) (*response.RegisterResponse, error) {
	err := r.mutate(func() error {
		c, err := r.deps.Customers.Customer(ctx, customerID)
		if err != nil {
			return err
		}
		r.customer = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Summary(ctx), nil
}

// UnbindCustomer drops the customer along with any credit or points typed
// against them.
func (r *Register) UnbindCustomer(ctx context.Context) (*response.RegisterResponse, error) {
	err := r.mutate(func() error {
		r.customer = nil
		r.split.Debt = money.Zero
		r.split.Bonus = money.Zero
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Summary(ctx), nil
}

// Summary renders the current state. Settings are refreshed best-effort; the
// last known values are used when the provider is unreachable.
func (r *Register) Summary(ctx context.Context) *response.RegisterResponse {
	r.refreshSettings(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	return response.NewRegisterResponse(
		r.cashierID,
		r.cart.Lines(),
		r.customer,
		r.split,
		r.calculator().Settle(r.split),
		r.inFlight,
	)
}

func (r *Register) refreshSettings(ctx context.Context) {
	if r.deps.Settings == nil {
		return
	}
	s, err := r.deps.Settings.Settings(ctx)
	if err != nil {
		r.logger.Warn("settings unavailable, using last known", zap.Error(err))
		return
	}
	r.mu.Lock()
	r.settings = *s
	r.mu.Unlock()
}

// calculator must be called with mu held.
func (r *Register) calculator() entity.Calculator {
	return entity.Calculator{
		Total:    r.cart.Total(),
		Customer: r.customer,
		Settings: r.settings,
	}
}

// reset must be called with mu held.
func (r *Register) reset() {
	r.cart.Clear()
	r.split = entity.SplitInput{}
	r.customer = nil
	r.key = uuid.Nil
}

// RegisterPool hands out one register per cashier.
type RegisterPool struct {
	deps          Collaborators
	submitTimeout time.Duration
	metrics       *metrics.Metrics
	logger        *zap.Logger

	mu        sync.Mutex
	registers map[string]*Register
}

func NewRegisterPool(deps Collaborators, submitTimeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *RegisterPool {
	return &RegisterPool{
		deps:          deps,
		submitTimeout: submitTimeout,
		metrics:       m,
		logger:        logger,
		registers:     make(map[string]*Register),
	}
}

// Get returns the cashier's register, creating an empty one on first use.
func (p *RegisterPool) Get(cashierID string) *Register {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.registers[cashierID]
	if !ok {
		r = NewRegister(cashierID, p.deps, p.submitTimeout, p.metrics, p.logger)
		p.registers[cashierID] = r
	}
	return r
}
