package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/followup_ledger/models"
	"github.com/BerniceZTT/followup_ledger/service"
	"github.com/BerniceZTT/followup_ledger/utils"
)

// FollowUpController 跟进接口
type FollowUpController struct {
	svc *service.LedgerService
}

// NewFollowUpController 创建跟进接口
func NewFollowUpController(svc *service.LedgerService) *FollowUpController {
	return &FollowUpController{svc: svc}
}

// ScheduleFollowUp 预约跟进。
// 已有进行中或逾期的跟进时，不带 resolution 会返回 409 和可选的处理方式，
// 前端让用户选择后带上 resolution 重新提交。
func (ctl *FollowUpController) ScheduleFollowUp(c *gin.Context) {
	session, err := utils.GetSession(c)
	if err != nil {
		utils.HandleError(c, utils.CreateUnauthorizedError())
		return
	}

	var req models.ScheduleFollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.HandleError(c, utils.CreateBadRequestError("无效的请求数据: "+err.Error()))
		return
	}

	clientID := c.Param("id")
	var result *service.FollowUpResult
	if req.Resolution == "" {
		result, err = ctl.svc.Schedule(c.Request.Context(), session, clientID, req.ScheduledAt)
	} else {
		var resolution service.Resolution
		resolution, err = service.ParseResolution(req.Resolution)
		if err == nil {
			result, err = ctl.svc.ResolveThenSchedule(c.Request.Context(), session, clientID, req.ScheduledAt, resolution)
		}
	}
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, result, "跟进预约成功", http.StatusCreated)
}

// ResolveFollowUp 结束当前跟进，路径中的 resolution 为 complete、lost 或 cancel
func (ctl *FollowUpController) ResolveFollowUp(c *gin.Context) {
	session, err := utils.GetSession(c)
	if err != nil {
		utils.HandleError(c, utils.CreateUnauthorizedError())
		return
	}

	resolution, err := service.ParseResolution(c.Param("resolution"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	var req models.ResolveFollowUpRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.HandleError(c, utils.CreateBadRequestError("无效的请求数据: "+err.Error()))
			return
		}
	}

	result, err := ctl.svc.Resolve(c.Request.Context(), session, c.Param("id"), resolution, req.Note)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, result, "跟进已更新")
}
