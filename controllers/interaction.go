package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/followup_ledger/models"
	"github.com/BerniceZTT/followup_ledger/service"
	"github.com/BerniceZTT/followup_ledger/utils"
)

// InteractionController 客户时间线接口
type InteractionController struct {
	svc *service.LedgerService
}

// NewInteractionController 创建时间线接口
func NewInteractionController(svc *service.LedgerService) *InteractionController {
	return &InteractionController{svc: svc}
}

// GetInteractions 获取客户时间线，最新的在前
func (ctl *InteractionController) GetInteractions(c *gin.Context) {
	session, err := utils.GetSession(c)
	if err != nil {
		utils.HandleError(c, utils.CreateUnauthorizedError())
		return
	}

	clientID := c.Param("id")
	entries, err := ctl.svc.ListForClient(c.Request.Context(), session, clientID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	views := make([]models.InteractionView, 0, len(entries))
	for _, e := range entries {
		views = append(views, models.NewInteractionView(e))
	}

	utils.LogInfo(map[string]interface{}{
		"clientId":    clientID,
		"recordCount": len(views),
	}, "获取客户时间线成功")

	utils.SuccessResponse(c, gin.H{"interactions": views}, "")
}

// CreateInteraction 追加时间线记录，状态变更可同时指定 explicitNext
func (ctl *InteractionController) CreateInteraction(c *gin.Context) {
	session, err := utils.GetSession(c)
	if err != nil {
		utils.HandleError(c, utils.CreateUnauthorizedError())
		return
	}

	var input models.CreateInteractionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.HandleError(c, utils.CreateBadRequestError("无效的请求数据: "+err.Error()))
		return
	}

	entry, err := ctl.svc.Append(c.Request.Context(), session, service.AppendInput{
		ClientID:     c.Param("id"),
		Type:         models.InteractionType(input.Type),
		Observation:  input.Observation,
		ExplicitNext: models.ClientStatus(input.ExplicitNext),
	})
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"interaction": models.NewInteractionView(*entry)}, "记录添加成功", http.StatusCreated)
}
