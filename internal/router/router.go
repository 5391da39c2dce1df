package router

import (
	"apipanel/config"
	"apipanel/internal/centralcash"
	"apipanel/internal/domain"
	"apipanel/internal/events"
	"apipanel/internal/handler"
	"apipanel/internal/ledger"
	"apipanel/internal/middleware"
	"apipanel/internal/referral"

	"github.com/gin-gonic/gin"
)

func Setup(cfg *config.Config, bal *ledger.Ledger, cash *centralcash.Ledger, engine *referral.Engine, bus events.Bus) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	authHandler := handler.NewAuthHandler(&cfg.JWT)
	balanceHandler := handler.NewBalanceHandler(bal, cash, engine, bus)
	referralHandler := handler.NewReferralHandler(engine, cash)
	cashHandler := handler.NewCashHandler(cash, bal)

	authMw := middleware.AuthRequired(&cfg.JWT)
	adminMw := middleware.RequireRole(domain.RoleAdmin)

	api := r.Group("/api/v1")
	{
		api.POST("/auth/token", authHandler.Token)

		users := api.Group("/users")
		users.Use(authMw)
		{
			users.POST("", referralHandler.Register)
			users.GET("/:id/balance", balanceHandler.GetBalance)
			users.GET("/:id/transactions", balanceHandler.GetTransactions)
			users.POST("/:id/recharge", balanceHandler.Recharge)
			users.POST("/:id/deduct", balanceHandler.Deduct)
			users.POST("/:id/plan", balanceHandler.BuyPlan)
			users.POST("/:id/referral-bonus", referralHandler.ProcessBonus)
		}

		api.POST("/referrals/validate", authMw, referralHandler.Validate)

		admin := api.Group("/admin")
		admin.Use(authMw, adminMw)
		{
			admin.GET("/cash/stats", cashHandler.Stats)
			admin.GET("/cash/transactions", cashHandler.Transactions)
			admin.GET("/cash/revenue", cashHandler.Revenue)
			admin.POST("/cash/adjust", cashHandler.Adjust)
			admin.POST("/cash/withdrawals", cashHandler.Withdraw)
			admin.GET("/activity", cashHandler.Activity)
			admin.GET("/referrals", referralHandler.ListRecords)
		}
	}
	return r
}
