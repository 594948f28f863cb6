package server

import (
	"wallet-custody/internal/handler"
	"wallet-custody/internal/session"
	"wallet-custody/pkg/monitor"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由依赖
type Handlers struct {
	Wallet     *handler.WalletHandler
	Withdraw   *handler.WithdrawHandler
	Credential *handler.CredentialHandler
	Sessions   *session.Store
	// Limiter 只作用于提现提交
	Limiter *handler.RateLimiter
}

// NewHTTPRouter 初始化并返回一个 Gin Engine
func NewHTTPRouter(h Handlers) *gin.Engine {
	monitor.Init()

	r := gin.Default()
	r.Use(monitor.PrometheusMiddleware())

	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.Use(handler.SessionMiddleware(h.Sessions))
	{
		wallet := api.Group("/wallet")
		wallet.POST("/provision", h.Wallet.Provision)
		wallet.POST("/reveal", h.Wallet.Reveal)
		wallet.POST("/confirm", h.Wallet.Confirm)
		wallet.DELETE("/session", h.Wallet.EndSession)
		wallet.GET("", h.Wallet.Get)
		wallet.GET("/balances", h.Wallet.Balances)

		withdrawals := api.Group("/withdrawals")
		withdrawals.POST("/estimate", h.Withdraw.Estimate)
		withdrawals.POST("", h.Limiter.Middleware(), h.Withdraw.Create)
		withdrawals.GET("", h.Withdraw.List)
		withdrawals.GET("/:chain/:tx_hash", h.Withdraw.Get)

		credential := api.Group("/credential")
		credential.GET("", h.Credential.Status)
		credential.POST("/renew", h.Credential.Renew)
	}

	return r
}
