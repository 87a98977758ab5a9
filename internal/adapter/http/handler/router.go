package handler

import (
	"account-ledger/internal/adapter/http/middleware"
	"account-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Ledger         ports.LedgerService
	TokenSvc       ports.TokenService
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger

	// RateLimiter is optional; when set every principal is held to RateLimit on /api/v1.
	RateLimiter ports.RateLimiter
	RateLimit   middleware.RateLimitRule
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	v1 := r.Group("/api/v1", middleware.JWTAuth(deps.TokenSvc, deps.Logger))
	if deps.RateLimiter != nil {
		v1.Use(middleware.RateLimiter(deps.RateLimiter, "api", deps.RateLimit, deps.Logger))
	}

	accountHandler := NewAccountHandler(deps.Ledger)
	accounts := v1.Group("/accounts")
	{
		accounts.POST("", accountHandler.Create)
		accounts.GET("", accountHandler.List)
		accounts.GET("/:identifier/currency", accountHandler.GetCurrency)
		accounts.GET("/:identifier/details", accountHandler.GetDetails)
		accounts.POST("/:identifier/transactions", accountHandler.CreateTransaction)
	}

	txHandler := NewTransactionHandler(deps.Ledger)
	transactions := v1.Group("/transactions")
	{
		transactions.POST("", txHandler.Transfer)
		transactions.GET("/:identifier", txHandler.History)
	}

	return r
}
