package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/BerniceZTT/followup_ledger/models"
	"github.com/BerniceZTT/followup_ledger/utils"
)

const defaultClientSource = "Manual"

// CreateClient 创建客户，同时写入建档记录
func (s *LedgerService) CreateClient(ctx context.Context, session models.Session, req models.CreateClientRequest) (*models.ClientView, error) {
	if err := requireActor(session); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "客户姓名不能为空"}
	}
	if !utils.IsValidPhone(req.Phone) {
		return nil, &ValidationError{Field: "phone", Message: "手机号格式无效"}
	}
	email := strings.TrimSpace(req.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, &ValidationError{Field: "email", Message: "邮箱格式无效"}
		}
	}
	if req.PropertyValue < 0 {
		return nil, &ValidationError{Field: "propertyValue", Message: "房产价值不能为负数"}
	}

	owner := session.ActorID
	if req.OwnerID != "" && req.OwnerID != session.ActorID {
		if !session.CanSeeAll() {
			return nil, &ForbiddenError{Reason: "经纪人只能为自己创建客户"}
		}
		owner = req.OwnerID
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = defaultClientSource
	}

	now := s.Now()
	client := &models.Client{
		Name:          name,
		Phone:         strings.TrimSpace(req.Phone),
		Source:        source,
		Status:        models.StatusFirstContact,
		Email:         email,
		Observations:  req.Observations,
		Product:       req.Product,
		PropertyValue: req.PropertyValue,
		OwnerID:       owner,
		FollowUpState: models.FollowUpNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	created := &models.Interaction{
		ActorID:     session.ActorID,
		Type:        models.InteractionClientCreated,
		Timestamp:   now,
		Observation: "Cliente cadastrado.",
	}
	if err := s.store.CreateClient(ctx, client, created); err != nil {
		utils.LogError(err, map[string]interface{}{"ownerId": owner}, "创建客户失败")
		return nil, err
	}
	recordAppended([]*models.Interaction{created})
	s.publishAppended(ctx, []*models.Interaction{created})

	utils.LogInfo(map[string]interface{}{
		"clientId": client.ID,
		"ownerId":  owner,
		"actorId":  session.ActorID,
	}, "客户已创建")
	view := models.NewClientView(*client, now)
	view.Interactions = []models.InteractionView{models.NewInteractionView(*created)}
	return &view, nil
}

// GetClient 客户详情，附带推导后的跟进状态和完整时间线
func (s *LedgerService) GetClient(ctx context.Context, session models.Session, id string) (*models.ClientView, error) {
	if err := requireActor(session); err != nil {
		return nil, err
	}
	client, err := s.loadClient(ctx, session, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListInteractions(ctx, client.ID)
	if err != nil {
		return nil, translateStoreError(err, client.ID)
	}

	view := models.NewClientView(*client, s.Now())
	view.Interactions = make([]models.InteractionView, 0, len(entries))
	for _, e := range entries {
		view.Interactions = append(view.Interactions, models.NewInteractionView(e))
	}
	return &view, nil
}

// ListClients 客户列表，经纪人只能看到自己的客户
func (s *LedgerService) ListClients(ctx context.Context, session models.Session, filter models.ClientFilter) ([]models.ClientView, error) {
	if err := requireActor(session); err != nil {
		return nil, err
	}
	if filter.Status != "" && !models.IsKnownClientStatus(filter.Status) {
		return nil, &ValidationError{Field: "status", Message: "无效的客户状态"}
	}
	if filter.FollowUpState != "" && !filter.FollowUpState.IsValid() {
		return nil, &ValidationError{Field: "followUpState", Message: "无效的跟进状态"}
	}
	if !session.CanSeeAll() {
		filter.OwnerID = session.ActorID
	}

	now := s.Now()
	clients, err := s.store.ListClients(ctx, filter, now)
	if err != nil {
		return nil, err
	}
	views := make([]models.ClientView, 0, len(clients))
	for _, c := range clients {
		views = append(views, models.NewClientView(c, now))
	}
	return views, nil
}

// DeleteClient 删除客户及其时间线，仅管理员可操作
func (s *LedgerService) DeleteClient(ctx context.Context, session models.Session, id string) error {
	if err := requireActor(session); err != nil {
		return err
	}
	if !session.IsAdmin() {
		return &ForbiddenError{Reason: "只有管理员可以删除客户"}
	}
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: "clientId", Message: "客户ID不能为空"}
	}
	if err := s.store.DeleteClient(ctx, id); err != nil {
		return translateStoreError(err, id)
	}
	utils.LogInfo(map[string]interface{}{
		"clientId": id,
		"actorId":  session.ActorID,
	}, "客户已删除")
	return nil
}
