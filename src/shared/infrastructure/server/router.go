// Package server builds the HTTP engine shared by every bounded context.
package server

import (
	"database/sql"
	"net/http"

	"kassa/src/shared/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	CashierHeader = "X-Cashier-ID"
	RoleHeader    = "X-Cashier-Role"
	DefaultRole   = "cashier"
)

// Options controls the shared routes.
type Options struct {
	// Gatherer serves /metrics when non-nil.
	Gatherer prometheus.Gatherer
	// DB is pinged by /health when non-nil.
	DB *sql.DB
}

// NewRouter returns an engine with recovery, request logging and the health
// and metrics endpoints installed.
func NewRouter(log *zap.Logger, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinMiddleware(log))

	router.GET("/health", func(c *gin.Context) {
		if opts.DB != nil {
			if err := opts.DB.PingContext(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	return router
}

// CashierID reads the cashier header, answering 400 when it is missing.
func CashierID(c *gin.Context) (string, bool) {
	id := c.GetHeader(CashierHeader)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": CashierHeader + " header is required"})
		return "", false
	}
	return id, true
}

// Role reads the role header, defaulting to a plain cashier.
func Role(c *gin.Context) string {
	if role := c.GetHeader(RoleHeader); role != "" {
		return role
	}
	return DefaultRole
}
