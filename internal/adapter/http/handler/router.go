package handler

import (
	"retail-bank/internal/adapter/http/middleware"
	"retail-bank/internal/core/domain"
	"retail-bank/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	AccountSvc     ports.AccountService
	ApprovalSvc    ports.ApprovalService
	Engine         ports.TransactionEngine
	LedgerSvc      ports.LedgerService
	TokenSvc       ports.TokenService
	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	AuthPerMin     int
	AccountPerMin  int
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Logger         zerolog.Logger
	MaxBodyBytes   int64
	TracingService string // empty = no request spans
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))

	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	r.Use(middleware.MaxBodySize(maxBody))

	if deps.TracingService != "" {
		r.Use(otelgin.Middleware(deps.TracingService))
	}

	// runs after the handler
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rl := func(group string, perMin int) gin.HandlerFunc {
		if deps.RateLimitStore == nil || perMin <= 0 {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, middleware.PerMinute(perMin), deps.Logger)
	}

	v1 := r.Group("/api/v1")

	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth", rl("auth", deps.AuthPerMin))
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	accountRL := rl("account", deps.AccountPerMin)

	accountHandler := NewAccountHandler(deps.AccountSvc, deps.ApprovalSvc)
	accounts := v1.Group("/accounts", jwtAuth, accountRL, middleware.RequireRole(domain.RoleCustomer))
	{
		accounts.POST("", accountHandler.Apply)
		accounts.GET("/me", accountHandler.GetMine)
	}

	txHandler := NewTransactionHandler(deps.Engine, deps.LedgerSvc, deps.AccountSvc)
	transactions := v1.Group("/transactions", jwtAuth, accountRL)
	{
		transactions.POST("/transfer", txHandler.Transfer)
		transactions.GET("", txHandler.History)
		transactions.GET("/statement", txHandler.Statement)
	}

	admin := v1.Group("/admin", jwtAuth, accountRL, middleware.RequireRole(domain.RoleAdmin))
	{
		admin.GET("/accounts", accountHandler.ListAll)
		admin.PUT("/accounts/:account_uuid/approve", accountHandler.Approve)
		admin.PUT("/accounts/:account_uuid/reject", accountHandler.Reject)
		admin.POST("/deposits", txHandler.Deposit)
		admin.GET("/transactions", txHandler.AllTransactions)
		admin.PUT("/users/password", authHandler.ResetPassword)
	}

	return r
}
