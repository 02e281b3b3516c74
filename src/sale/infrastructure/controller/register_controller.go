package controller

import (
	"errors"
	"net/http"

	"kassa/src/sale/application/request"
	"kassa/src/sale/application/response"
	"kassa/src/sale/application/usecase"
	"kassa/src/sale/domain/entity"
	"kassa/src/shared/infrastructure/server"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterController exposes each cashier's register over HTTP. The cashier
// is taken from the X-Cashier-ID header.
type RegisterController struct {
	registers *usecase.RegisterPool
	refundUC  *usecase.RefundSaleUseCase
}

func NewRegisterController(registers *usecase.RegisterPool, refundUC *usecase.RefundSaleUseCase) *RegisterController {
	return &RegisterController{
		registers: registers,
		refundUC:  refundUC,
	}
}

func (c *RegisterController) RegisterRoutes(router *gin.RouterGroup) {
	pos := router.Group("/pos")
	{
		register := pos.Group("/register")
		register.GET("", c.Summary)
		register.DELETE("", c.Void)
		register.POST("/items", c.AddItem)
		register.POST("/items/by-amount", c.AddByAmount)
		register.PATCH("/items/:product_id", c.AdjustQuantity)
		register.DELETE("/items/:product_id", c.RemoveItem)
		register.PUT("/payment", c.SetPayment)
		register.POST("/payment/fill/:method", c.FillRemaining)
		register.PUT("/customer", c.BindCustomer)
		register.DELETE("/customer", c.UnbindCustomer)
		register.POST("/submit", c.Submit)

		pos.POST("/sales/:sale_id/refund", c.Refund)
	}
}

func (c *RegisterController) register(ctx *gin.Context) (*usecase.Register, bool) {
	id, ok := server.CashierID(ctx)
	if !ok {
		return nil, false
	}
	return c.registers.Get(id), true
}

func (c *RegisterController) Summary(ctx *gin.Context) {
	r, ok := c.register(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, r.Summary(ctx.Request.Context()))
}

func (c *RegisterController) Void(ctx *gin.Context) {
	r, ok := c.register(ctx)
	if !ok {
		return
	}
	resp, err := r.Void(ctx.Request.Context())
	c.respond(ctx, resp, err)
}

func (c *RegisterController) AddItem(ctx *gin.Context) {
	r, ok := c.register(ctx)
	if !ok {
		return
	}
	var req request.AddItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	resp, err := r.AddItem(ctx.Request.Context(), req)
	c.respond(ctx, resp, err)
}

func (c *RegisterController) AddByAmount(ctx *gin.Context) {
	r, ok := c.register(ctx)
	if !ok {
		return
	}
	var req request.AddByAmountRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	resp, err := r.AddByAmount(ctx.Request.Context(), req)
	c.respond(ctx, resp, err)
}

func (c *RegisterController) AdjustQuantity(ctx *gin.Context) {
	r, ok := c.register(ctx)
	if !ok {
		return
	}
	var req request.AdjustQuantityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	resp, err := r.AdjustQuantity(ctx.Request.Context(), ctx.Param("product_id"), req.Delta)
	c.respond(ctx, resp, err)
}

func (c *RegisterController) RemoveItem(ctx *gin.Context) {
	r, ok := c.register(ctx)
	if !ok {
		return
	}
	resp, err := r.RemoveItem(ctx.Request.Context(), ctx.Param("product_id"))
	c.respond(ctx, resp, err)
}

func (c *RegisterController) SetPayment(ctx *gin.Context) {
	r, ok := c.register(ctx)
	if !ok {
		return
	}
	var req request.PaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	resp, err := r.SetPayment(ctx.Request.Context(), req)
	c.respond(ctx, resp, err)
}

func (c *RegisterController) FillRemaining(ctx *gin.Context) {
	r, ok := c.register(ctx)
	if !ok {
		return
	}
	method, err := entity.ParsePaymentMethod(ctx.Param("method"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := r.FillRemaining(ctx.Request.Context(), method)
	c.respond(ctx, resp, err)
}

func (c *RegisterController) BindCustomer(ctx *gin.Context) {
	r, ok := c.register(ctx)
	if !ok {
		return
	}
	var req request.BindCustomerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	resp, err := r.BindCustomer(ctx.Request.Context(), req.CustomerID)
	c.respond(ctx, resp, err)
}

func (c *RegisterController) UnbindCustomer(ctx *gin.Context) {
	r, ok := c.register(ctx)
	if !ok {
		return
	}
	resp, err := r.UnbindCustomer(ctx.Request.Context())
	c.respond(ctx, resp, err)
}

// Submit books the composed sale. Failures carry their kind so the client
// knows whether retrying the same sale can help.
func (c *RegisterController) Submit(ctx *gin.Context) {
	r, ok := c.register(ctx)
	if !ok {
		return
	}
	conf, err := r.Submit(ctx.Request.Context(), server.Role(ctx))
	if err != nil {
		WriteError(ctx, err)
		return
	}
	status := http.StatusCreated
	if conf.Replayed {
		status = http.StatusOK
	}
	ctx.JSON(status, conf)
}

func (c *RegisterController) Refund(ctx *gin.Context) {
	cashierID, ok := server.CashierID(ctx)
	if !ok {
		return
	}
	saleID, err := uuid.Parse(ctx.Param("sale_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid sale_id format"})
		return
	}
	res, err := c.refundUC.Execute(ctx.Request.Context(), cashierID, saleID)
	if err != nil {
		WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

func (c *RegisterController) respond(ctx *gin.Context, resp *response.RegisterResponse, err error) {
	if err != nil {
		WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// WriteError maps a classified failure to its HTTP status.
func WriteError(ctx *gin.Context, err error) {
	var saleErr *entity.SaleError
	if !errors.As(err, &saleErr) {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusServiceUnavailable
	switch saleErr.Kind {
	case entity.KindValidation:
		status = http.StatusUnprocessableEntity
		if errors.Is(err, entity.ErrSaleNotFound) {
			status = http.StatusNotFound
		}
	case entity.KindConcurrency:
		status = http.StatusConflict
	case entity.KindAuthorization:
		status = http.StatusForbidden
	}
	ctx.JSON(status, gin.H{
		"error":     saleErr.Message,
		"kind":      saleErr.Kind,
		"retryable": saleErr.Retryable(),
	})
}
