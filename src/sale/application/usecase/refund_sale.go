package usecase

import (
	"context"
	"time"

	"kassa/src/sale/domain/entity"
	"kassa/src/sale/domain/port"
	"kassa/src/shared/infrastructure/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RefundSaleUseCase passes a refund through to the sale repository, which
// reverses stock, credit, points and shift totals exactly.
type RefundSaleUseCase struct {
	sales   port.SaleRepository
	shifts  port.ShiftGate
	effects *saleEffects
	metrics *metrics.Metrics
	logger  *zap.Logger
	timeout time.Duration
}

func NewRefundSaleUseCase(deps Collaborators, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *RefundSaleUseCase {
	return &RefundSaleUseCase{
		sales:   deps.Sales,
		shifts:  deps.Shifts,
		effects: newSaleEffects(deps.Invalidator, nil, m, logger),
		metrics: m,
		logger:  logger,
		timeout: timeout,
	}
}

func (uc *RefundSaleUseCase) Execute(ctx context.Context, cashierID string, saleID uuid.UUID) (*entity.RefundResult, error) {
	if saleID == uuid.Nil {
		return nil, entity.NewSaleError(entity.KindValidation, entity.ErrSaleNotFound)
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.timeout)
	res, err := uc.sales.Refund(callCtx, saleID)
	cancel()

	if err != nil {
		// a transient failure may have committed; the owner is unknown
		uc.shifts.Invalidate(cashierID)
		saleErr := classifyRemote(err)
		uc.metrics.SaleFailures.WithLabelValues(string(saleErr.Kind)).Inc()
		uc.logger.Warn("refund rejected",
			zap.String("cashier_id", cashierID),
			zap.String("sale_id", saleID.String()),
			zap.Error(err))
		return nil, saleErr
	}

	owner := res.CashierID
	if owner == "" {
		owner = cashierID
	}
	uc.shifts.Invalidate(owner)

	uc.logger.Info("sale refunded",
		zap.String("cashier_id", cashierID),
		zap.String("sale_owner", owner),
		zap.String("sale_id", saleID.String()),
		zap.String("total", res.Total.String()))
	uc.effects.afterRefund(context.WithoutCancel(ctx), owner, res)
	return res, nil
}
