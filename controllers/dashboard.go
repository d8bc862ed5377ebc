package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/followup_ledger/service"
	"github.com/BerniceZTT/followup_ledger/utils"
)

// DashboardController 看板接口
type DashboardController struct {
	svc *service.LedgerService
}

// NewDashboardController 创建看板接口
func NewDashboardController(svc *service.LedgerService) *DashboardController {
	return &DashboardController{svc: svc}
}

// GetBrokerKpis 获取经纪人看板指标，经理和管理员可通过 ownerId 查看指定经纪人
func (ctl *DashboardController) GetBrokerKpis(c *gin.Context) {
	session, err := utils.GetSession(c)
	if err != nil {
		utils.HandleError(c, utils.CreateUnauthorizedError())
		return
	}

	ownerID := c.Query("ownerId")
	utils.LogInfo(map[string]interface{}{
		"actorId": session.ActorID,
		"ownerId": ownerID,
	}, "获取看板指标")

	kpis, err := ctl.svc.BrokerKPIs(c.Request.Context(), session, ownerID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, kpis, "")
}

// GetProductivity 每日通话量，startDate 和 endDate 均为 YYYY-MM-DD
func (ctl *DashboardController) GetProductivity(c *gin.Context) {
	session, err := utils.GetSession(c)
	if err != nil {
		utils.HandleError(c, utils.CreateUnauthorizedError())
		return
	}

	from, to, err := service.ParseReportRange(c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	report, err := ctl.svc.Productivity(c.Request.Context(), session, from, to, c.Query("brokerId"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, report, "")
}

// GetFunnel 区间内各销售阶段的客户数
func (ctl *DashboardController) GetFunnel(c *gin.Context) {
	session, err := utils.GetSession(c)
	if err != nil {
		utils.HandleError(c, utils.CreateUnauthorizedError())
		return
	}

	from, to, err := service.ParseReportRange(c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	report, err := ctl.svc.Funnel(c.Request.Context(), session, from, to, c.Query("brokerId"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, report, "")
}
