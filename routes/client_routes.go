package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/followup_ledger/controllers"
	"github.com/BerniceZTT/followup_ledger/middleware"
	"github.com/BerniceZTT/followup_ledger/models"
)

// RegisterClientRoutes 注册客户及时间线相关路由
func RegisterClientRoutes(router *gin.Engine, deps Dependencies) {
	clients := controllers.NewClientController(deps.Ledger)
	interactions := controllers.NewInteractionController(deps.Ledger)

	clientGroup := router.Group("/api/clients")
	clientGroup.Use(deps.protected()...)

	clientGroup.GET("", clients.GetClients)
	clientGroup.POST("", clients.CreateClient)
	clientGroup.GET("/:id", clients.GetClient)
	clientGroup.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), clients.DeleteClient)

	// 时间线
	clientGroup.GET("/:id/interactions", interactions.GetInteractions)
	clientGroup.POST("/:id/interactions", interactions.CreateInteraction)
}
