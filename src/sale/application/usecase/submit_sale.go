package usecase

import (
	"context"

	"kassa/src/sale/domain/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Submit sends the composed sale to the sale repository.
//
// Local preconditions (non-empty cart, sufficient payment, customer rules,
// shift gate) are checked before any remote call. While the sale is with the
// backend the register rejects every other action. On success the register
// is cleared and collaborators are told which read models went stale; on
// failure cart and tenders are left exactly as they were and the error is a
// classified *entity.SaleError.
func (r *Register) Submit(ctx context.Context, role string) (*entity.Confirmation, error) {
	req, customer, err := r.begin(ctx, role)
	if err != nil {
		r.metrics.SaleFailures.WithLabelValues(string(entity.KindOf(err))).Inc()
		return nil, err
	}
	r.metrics.SubmissionsInFlight.Inc()

	// A tender that reached the backend must not be torn down by the caller
	// going away.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.submitTimeout)
	conf, createErr := r.deps.Sales.Create(callCtx, req)
	cancel()

	r.metrics.SubmissionsInFlight.Dec()

	if createErr != nil {
		saleErr := classifyRemote(createErr)
		r.finish(nil)
		r.deps.Shifts.Invalidate(r.cashierID)
		if saleErr.Kind == entity.KindConcurrency {
			r.effects.afterConflict(context.WithoutCancel(ctx), req)
		}
		r.metrics.SaleFailures.WithLabelValues(string(saleErr.Kind)).Inc()
		r.logger.Warn("sale rejected",
			zap.String("idempotency_key", req.IdempotencyKey.String()),
			zap.String("kind", string(saleErr.Kind)),
			zap.Error(createErr))
		return nil, saleErr
	}

	r.finish(req)
	if conf.Replayed {
		// the backend totals already hold this sale
		r.deps.Shifts.Invalidate(r.cashierID)
	} else {
		r.deps.Shifts.RecordSale(r.cashierID, req)
	}

	r.metrics.SalesSubmitted.WithLabelValues(string(conf.Method)).Inc()
	r.metrics.SaleAmount.Observe(conf.Total.Decimal().InexactFloat64())
	r.logger.Info("sale confirmed",
		zap.String("sale_id", conf.SaleID.String()),
		zap.String("total", conf.Total.String()),
		zap.String("method", string(conf.Method)),
		zap.Bool("replayed", conf.Replayed))

	r.effects.afterSale(context.WithoutCancel(ctx), r.cashierID, req, conf, customer, r.currentSettings())
	return conf, nil
}

// begin validates locally, resolves the shift and freezes the request. On
// success the register is in flight and unlocked.
func (r *Register) begin(ctx context.Context, role string) (*entity.SaleRequest, *entity.Customer, error) {
	r.refreshSettings(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inFlight {
		return nil, nil, classifyLocal(entity.ErrSubmissionInFlight)
	}
	if r.cart.IsEmpty() {
		return nil, nil, classifyLocal(entity.ErrEmptyCart)
	}
	settlement := r.calculator().Settle(r.split)
	if err := settlement.Validate(); err != nil {
		return nil, nil, classifyLocal(err)
	}

	shiftID, err := r.deps.Shifts.Authorize(ctx, r.cashierID, role)
	if err != nil {
		return nil, nil, classifyLocal(err)
	}

	if r.key == uuid.Nil {
		r.key = uuid.New()
	}
	req, err := entity.NewSaleRequest(r.key, r.cashierID, shiftID, r.cart.Lines(), settlement, r.customer)
	if err != nil {
		return nil, nil, classifyLocal(err)
	}

	var customer *entity.Customer
	if r.customer != nil {
		c := *r.customer
		customer = &c
	}
	r.inFlight = true
	return req, customer, nil
}

// finish leaves the in-flight state. A confirmed request clears the sale.
func (r *Register) finish(confirmed *entity.SaleRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight = false
	if confirmed != nil {
		r.reset()
	}
}

func (r *Register) currentSettings() entity.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}
