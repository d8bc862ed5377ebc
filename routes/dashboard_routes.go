package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/followup_ledger/controllers"
	"github.com/BerniceZTT/followup_ledger/middleware"
)

// RegisterDashboardRoutes 注册看板路由
func RegisterDashboardRoutes(router *gin.Engine, deps Dependencies) {
	dashboard := controllers.NewDashboardController(deps.Ledger)

	dashboardGroup := router.Group("/api/dashboard")
	dashboardGroup.Use(middleware.AuthMiddleware(deps.JWTKey))

	dashboardGroup.GET("/kpis", dashboard.GetBrokerKpis)
	dashboardGroup.GET("/productivity", dashboard.GetProductivity)
	dashboardGroup.GET("/funnel", dashboard.GetFunnel)
}
