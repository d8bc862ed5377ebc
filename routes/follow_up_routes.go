package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/followup_ledger/controllers"
)

// RegisterFollowUpRoutes 注册跟进相关路由
func RegisterFollowUpRoutes(router *gin.Engine, deps Dependencies) {
	followUps := controllers.NewFollowUpController(deps.Ledger)

	followUpGroup := router.Group("/api/clients/:id/follow-ups")
	followUpGroup.Use(deps.protected()...)

	// 预约跟进，已有跟进时需带 resolution
	followUpGroup.POST("", followUps.ScheduleFollowUp)

	// 结束当前跟进：complete / lost / cancel
	followUpGroup.POST("/:resolution", followUps.ResolveFollowUp)
}
