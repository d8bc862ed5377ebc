package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/followup_ledger/models"
	"github.com/BerniceZTT/followup_ledger/service"
	"github.com/BerniceZTT/followup_ledger/utils"
)

// ClientController 客户接口
type ClientController struct {
	svc *service.LedgerService
}

// NewClientController 创建客户接口
func NewClientController(svc *service.LedgerService) *ClientController {
	return &ClientController{svc: svc}
}

// GetClients 获取客户列表
// 支持 q（姓名/电话/邮箱）、status、followUpState 筛选，followUpState=Atrasado 按推导状态筛选
func (ctl *ClientController) GetClients(c *gin.Context) {
	session, err := utils.GetSession(c)
	if err != nil {
		utils.HandleError(c, utils.CreateUnauthorizedError())
		return
	}

	filter := models.ClientFilter{
		Query:         c.Query("q"),
		Status:        models.ClientStatus(c.Query("status")),
		FollowUpState: models.FollowUpState(c.Query("followUpState")),
	}
	clients, err := ctl.svc.ListClients(c.Request.Context(), session, filter)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"clients": clients, "total": len(clients)}, "")
}

// CreateClient 创建客户
func (ctl *ClientController) CreateClient(c *gin.Context) {
	session, err := utils.GetSession(c)
	if err != nil {
		utils.HandleError(c, utils.CreateUnauthorizedError())
		return
	}

	var req models.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.HandleError(c, utils.CreateBadRequestError("无效的请求数据: "+err.Error()))
		return
	}

	client, err := ctl.svc.CreateClient(c.Request.Context(), session, req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"client": client}, "客户创建成功", http.StatusCreated)
}

// GetClient 获取客户详情及时间线
func (ctl *ClientController) GetClient(c *gin.Context) {
	session, err := utils.GetSession(c)
	if err != nil {
		utils.HandleError(c, utils.CreateUnauthorizedError())
		return
	}

	client, err := ctl.svc.GetClient(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"client": client}, "")
}

// DeleteClient 删除客户
func (ctl *ClientController) DeleteClient(c *gin.Context) {
	session, err := utils.GetSession(c)
	if err != nil {
		utils.HandleError(c, utils.CreateUnauthorizedError())
		return
	}

	if err := ctl.svc.DeleteClient(c.Request.Context(), session, c.Param("id")); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, nil, "客户删除成功")
}
