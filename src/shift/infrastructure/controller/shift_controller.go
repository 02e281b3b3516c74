package controller

import (
	"errors"
	"net/http"

	"kassa/src/shared/domain/money"
	"kassa/src/shared/infrastructure/server"
	"kassa/src/shift/application/request"
	"kassa/src/shift/application/response"
	"kassa/src/shift/application/usecase"
	"kassa/src/shift/domain/entity"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ShiftController struct {
	shiftUC *usecase.ShiftUseCase
	logger  *zap.Logger
}

func NewShiftController(shiftUC *usecase.ShiftUseCase, logger *zap.Logger) *ShiftController {
	return &ShiftController{
		shiftUC: shiftUC,
		logger:  logger,
	}
}

func (c *ShiftController) RegisterRoutes(router *gin.RouterGroup) {
	shifts := router.Group("/shifts")
	{
		shifts.GET("/current", c.Current)
		shifts.POST("/open", c.Open)
		shifts.POST("/close", c.Close)
		shifts.POST("/movements", c.RecordMovement)
	}
}

// Current always asks the backend, so a shift opened or closed elsewhere is
// picked up.
func (c *ShiftController) Current(ctx *gin.Context) {
	cashierID, ok := server.CashierID(ctx)
	if !ok {
		return
	}
	shift, err := c.shiftUC.Refresh(ctx.Request.Context(), cashierID)
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.FromShift(shift))
}

func (c *ShiftController) Open(ctx *gin.Context) {
	cashierID, ok := server.CashierID(ctx)
	if !ok {
		return
	}
	var req request.OpenShiftRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	shift, err := c.shiftUC.Open(ctx.Request.Context(), cashierID, req)
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, response.FromShift(shift))
}

func (c *ShiftController) Close(ctx *gin.Context) {
	cashierID, ok := server.CashierID(ctx)
	if !ok {
		return
	}
	var req request.CloseShiftRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	closed, err := c.shiftUC.Close(ctx.Request.Context(), cashierID, req)
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, closed)
}

func (c *ShiftController) RecordMovement(ctx *gin.Context) {
	cashierID, ok := server.CashierID(ctx)
	if !ok {
		return
	}
	var req request.CashMovementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	movement, err := c.shiftUC.RecordMovement(ctx.Request.Context(), cashierID, req)
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, movement)
}

func (c *ShiftController) writeError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, entity.ErrInvalidMovement),
		errors.Is(err, entity.ErrUnknownMovementKind),
		errors.Is(err, money.ErrNegativeAmount):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrNoActiveShift),
		errors.Is(err, entity.ErrShiftNotOpen):
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrShiftAlreadyOpen),
		errors.Is(err, entity.ErrShiftClosed):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrShiftNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.logger.Error("shift backend unavailable", zap.Error(err))
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "shift service unavailable", "details": err.Error()})
	}
}
