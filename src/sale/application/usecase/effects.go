package usecase

import (
	"context"
	"time"

	"kassa/src/sale/domain/entity"
	"kassa/src/sale/domain/port"
	"kassa/src/shared/infrastructure/metrics"

	"go.uber.org/zap"
)

const effectsTimeout = 5 * time.Second

// saleEffects signals collaborators after a confirmed sale or refund. The
// sale is already booked, so every failure here is logged and dropped.
type saleEffects struct {
	invalidator port.ReadModelInvalidator
	notifier    port.SaleNotifier
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func newSaleEffects(invalidator port.ReadModelInvalidator, notifier port.SaleNotifier, m *metrics.Metrics, logger *zap.Logger) *saleEffects {
	return &saleEffects{invalidator: invalidator, notifier: notifier, metrics: m, logger: logger}
}

func (e *saleEffects) afterSale(
	ctx context.Context,
	cashierID string,
	req *entity.SaleRequest,
	conf *entity.Confirmation,
	customer *entity.Customer,
	settings entity.Settings,
) {
	ctx, cancel := context.WithTimeout(ctx, effectsTimeout)
	defer cancel()

	inv := port.Invalidation{
		Models:     []port.ReadModel{port.ReadModelStock, port.ReadModelShiftTotals, port.ReadModelDashboard},
		ProductIDs: make([]string, 0, len(req.Lines)),
		CashierID:  cashierID,
	}
	for _, l := range req.Lines {
		inv.ProductIDs = append(inv.ProductIDs, l.ProductID)
	}
	if req.CustomerID != nil {
		inv.Models = append(inv.Models, port.ReadModelCustomers)
		inv.CustomerIDs = []string{*req.CustomerID}
	}
	e.invalidate(ctx, inv)

	if conf.Replayed || e.notifier == nil {
		return
	}
	if customer != nil && req.Debt.IsPositive() {
		if err := e.notifier.NotifyDebtSale(ctx, *customer, req, conf); err != nil {
			e.notificationFailed("debt_sale", err)
		}
	}
	if low := lowStock(conf.StockLevels, settings); len(low) > 0 {
		if err := e.notifier.NotifyLowStock(ctx, low); err != nil {
			e.notificationFailed("low_stock", err)
		}
	}
}

// afterConflict drops the read models a rejected sale was composed from, so
// the cashier's next lookup sees the backend's current prices, stock and
// balances.
func (e *saleEffects) afterConflict(ctx context.Context, req *entity.SaleRequest) {
	ctx, cancel := context.WithTimeout(ctx, effectsTimeout)
	defer cancel()

	inv := port.Invalidation{
		Models:     []port.ReadModel{port.ReadModelStock},
		ProductIDs: make([]string, 0, len(req.Lines)),
	}
	for _, l := range req.Lines {
		inv.ProductIDs = append(inv.ProductIDs, l.ProductID)
	}
	if req.CustomerID != nil {
		inv.Models = append(inv.Models, port.ReadModelCustomers)
		inv.CustomerIDs = []string{*req.CustomerID}
	}
	e.invalidate(ctx, inv)
}

func (e *saleEffects) afterRefund(ctx context.Context, cashierID string, res *entity.RefundResult) {
	ctx, cancel := context.WithTimeout(ctx, effectsTimeout)
	defer cancel()

	inv := port.Invalidation{
		Models:     []port.ReadModel{port.ReadModelStock, port.ReadModelShiftTotals, port.ReadModelDashboard},
		ProductIDs: res.ProductIDs,
		CashierID:  cashierID,
	}
	if res.CustomerID != nil {
		inv.Models = append(inv.Models, port.ReadModelCustomers)
		inv.CustomerIDs = []string{*res.CustomerID}
	}
	e.invalidate(ctx, inv)
}

func (e *saleEffects) invalidate(ctx context.Context, inv port.Invalidation) {
	if e.invalidator == nil {
		return
	}
	if err := e.invalidator.Invalidate(ctx, inv); err != nil {
		e.logger.Warn("read model invalidation failed", zap.Error(err))
		return
	}
	for _, m := range inv.Models {
		e.metrics.ReadModelInvalidations.WithLabelValues(string(m)).Inc()
	}
}

func (e *saleEffects) notificationFailed(kind string, err error) {
	e.metrics.NotificationFailures.WithLabelValues(kind).Inc()
	e.logger.Warn("notification failed", zap.String("type", kind), zap.Error(err))
}

func lowStock(levels []entity.StockLevel, settings entity.Settings) []entity.StockLevel {
	var low []entity.StockLevel
	for _, l := range levels {
		if l.Remaining.LessThan(settings.LowStockThreshold) {
			low = append(low, l)
		}
	}
	return low
}
