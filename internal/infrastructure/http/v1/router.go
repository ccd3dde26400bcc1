// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"procurement/internal/core/tx"
	"procurement/internal/domain/catalogs/product"
	"procurement/internal/domain/catalogs/supplier"
	"procurement/internal/domain/documents/goods_receipt"
	"procurement/internal/domain/documents/payment_out"
	"procurement/internal/domain/documents/purchase_bill"
	"procurement/internal/domain/documents/purchase_order"
	"procurement/internal/domain/reports"
	"procurement/internal/domain/settings"
	"procurement/internal/infrastructure/http/v1/dto"
	"procurement/internal/infrastructure/http/v1/handlers"
	"procurement/internal/infrastructure/http/v1/middleware"
	"procurement/pkg/logger"
)

// Services are the domain services exposed over HTTP.
type Services struct {
	Products  *product.Service
	Suppliers *supplier.Service
	Orders    *purchase_order.Service
	Receipts  *goods_receipt.Service
	Bills     *purchase_bill.Service
	Payments  *payment_out.Service
	Settings  *settings.Service
	Reports   *reports.Service
}

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// TxManager is injected into every request context by the Tenant middleware
	TxManager tx.Manager

	Services Services

	// IdempotencyStore enables X-Idempotency-Key handling when set
	IdempotencyStore middleware.IdempotencyStore

	// RateLimit is a per-tenant limiter rate ("600-M"); empty disables throttling
	RateLimit string

	// HealthChecks are run by /health/ready
	HealthChecks map[string]handlers.HealthCheck

	Version string

	// Development enables gin debug mode
	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	dto.SetupValidator()

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth, no tenant required)
	healthHandler := handlers.NewHealthHandler(cfg.Version, cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTValidator))  // 1. Validate JWT
	api.Use(middleware.Tenant(cfg.TxManager))   // 2. Tenant from token, tx manager into context
	api.Use(middleware.UserContext(cfg.Logger)) // 3. Request logger for the domain layer
	if cfg.RateLimit != "" {
		limit, err := middleware.RateLimit(cfg.RateLimit)
		if err != nil {
			return nil, err
		}
		api.Use(limit)
	}
	if cfg.IdempotencyStore != nil {
		api.Use(middleware.Idempotency(cfg.IdempotencyStore))
	}

	base := handlers.NewBaseHandler()
	registerCatalogRoutes(api, base, cfg.Services)
	registerPurchasingRoutes(api, base, cfg.Services)
	registerPayablesRoutes(api, base, cfg.Services)

	rh := handlers.NewReportsHandler(base, cfg.Services.Reports)
	api.GET("/dashboard/stats", rh.DashboardStats)

	return router, nil
}

// registerCatalogRoutes registers product and supplier endpoints.
func registerCatalogRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, s Services) {
	products := handlers.NewCatalogHandler[*product.Product, dto.CreateProductRequest](base, s.Products)
	RegisterCatalogRoutes(rg.Group("/products"), products, middleware.RolePurchasing)

	suppliers := handlers.NewCatalogHandler[*supplier.Supplier, dto.CreateSupplierRequest](base, s.Suppliers)
	RegisterCatalogRoutes(rg.Group("/suppliers"), suppliers, middleware.RolePurchasing, middleware.RolePayables)
}

// registerPurchasingRoutes registers purchase order and goods receipt endpoints.
func registerPurchasingRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, s Services) {
	h := handlers.NewPurchaseOrderHandler(base, s.Orders, s.Receipts)
	write := middleware.RequireRole(middleware.RolePurchasing)

	orders := rg.Group("/purchase-orders")
	{
		orders.GET("", h.List)
		orders.POST("", write, h.Create)
		orders.GET("/:id", h.Get)
		orders.PUT("/:id/lines", write, h.UpdateLines)
		orders.POST("/:id/cancel", write, h.Cancel)
		orders.POST("/:id/receipts", write, h.Receive)
		orders.GET("/:id/receipts", h.ListReceipts)
	}
	rg.GET("/goods-receipts/:id", h.GetReceipt)
}

// registerPayablesRoutes registers bill, payment and settings endpoints.
func registerPayablesRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, s Services) {
	write := middleware.RequireRole(middleware.RolePayables)

	bills := handlers.NewPurchaseBillHandler(base, s.Bills)
	billGroup := rg.Group("/purchase-bills")
	{
		billGroup.GET("", bills.List)
		billGroup.POST("", write, bills.Record)
		billGroup.GET("/:id", bills.Get)
		billGroup.DELETE("/:id", write, bills.Void)
	}

	payments := handlers.NewPaymentOutHandler(base, s.Payments)
	paymentGroup := rg.Group("/payments-out")
	{
		paymentGroup.GET("", payments.List)
		paymentGroup.POST("", write, payments.Allocate)
		paymentGroup.GET("/:id", payments.Get)
	}

	st := handlers.NewSettingsHandler(base, s.Settings)
	rg.GET("/settings", st.Get)
	rg.PUT("/settings", middleware.RequireRole(middleware.RoleAdmin), st.Update)
}
