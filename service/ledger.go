package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BerniceZTT/followup_ledger/models"
	"github.com/BerniceZTT/followup_ledger/repository"
	"github.com/BerniceZTT/followup_ledger/utils"
)

// Store 时间线服务依赖的存储
type Store interface {
	repository.ClientStore
	repository.LedgerStore
}

// LedgerService 客户时间线与跟进状态机。
// 所有写操作都通过一次 Commit 完成，客户字段只在同一次提交里随时间线一起更新。
type LedgerService struct {
	store     Store
	clock     Clock
	publisher EventPublisher
}

// NewLedgerService 创建服务，clock 与 publisher 可为 nil
func NewLedgerService(store Store, clock Clock, publisher EventPublisher) *LedgerService {
	if clock == nil {
		clock = SystemClock{}
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &LedgerService{store: store, clock: clock, publisher: publisher}
}

// Now 服务端当前时间，精确到毫秒以便与存储保持一致
func (s *LedgerService) Now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Millisecond)
}

// AppendInput 新增时间线记录
type AppendInput struct {
	ClientID     string
	Type         models.InteractionType
	Observation  string
	ExplicitNext models.ClientStatus
}

// Append 追加一条普通时间线记录。
// 跟进生命周期和建档记录由状态机写入，这里不接受。
func (s *LedgerService) Append(ctx context.Context, session models.Session, in AppendInput) (*models.Interaction, error) {
	if err := requireActor(session); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ClientID) == "" {
		return nil, &ValidationError{Field: "clientId", Message: "客户ID不能为空"}
	}
	if in.Type == "" {
		return nil, &ValidationError{Field: "type", Message: "事件类型不能为空"}
	}
	if !in.Type.IsValid() {
		return nil, &ValidationError{Field: "type", Message: fmt.Sprintf("未知的事件类型: %s", in.Type)}
	}
	if in.Type.IsLifecycle() {
		return nil, &ValidationError{Field: "type", Message: fmt.Sprintf("%s 只能通过跟进接口写入", in.Type)}
	}
	if in.ExplicitNext != "" {
		if in.Type != models.InteractionStatusChange {
			return nil, &ValidationError{Field: "explicitNext", Message: "只有状态变更记录可以指定目标状态"}
		}
		if !models.IsValidClientStatus(in.ExplicitNext) {
			return nil, &ValidationError{Field: "explicitNext", Message: fmt.Sprintf("无效的目标状态: %s", in.ExplicitNext)}
		}
	}

	client, err := s.loadClient(ctx, session, in.ClientID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	entry := &models.Interaction{
		ActorID:     session.ActorID,
		Type:        in.Type,
		Timestamp:   now,
		Observation: in.Observation,
	}
	change := repository.Change{Append: []*models.Interaction{entry}, At: now}

	if in.ExplicitNext != "" {
		if in.ExplicitNext == client.Status {
			return nil, &ValidationError{Field: "explicitNext", Message: "目标状态与当前状态相同"}
		}
		next := in.ExplicitNext
		entry.FromStatus = client.Status
		entry.ToStatus = next
		if strings.TrimSpace(entry.Observation) == "" {
			entry.Observation = fmt.Sprintf("Status alterado de '%s' para '%s'", client.Status, next)
		}
		change.Patch.Status = &next
	}

	if _, err := s.commit(ctx, client, change); err != nil {
		return nil, err
	}

	utils.LogInfo(map[string]interface{}{
		"clientId": client.ID,
		"type":     entry.Type,
		"seq":      entry.Seq,
		"actorId":  session.ActorID,
	}, "时间线记录已追加")
	result := *entry
	return &result, nil
}

// ListForClient 客户时间线，最新的在前
func (s *LedgerService) ListForClient(ctx context.Context, session models.Session, clientID string) ([]models.Interaction, error) {
	if err := requireActor(session); err != nil {
		return nil, err
	}
	client, err := s.loadClient(ctx, session, clientID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListInteractions(ctx, client.ID)
	if err != nil {
		return nil, translateStoreError(err, client.ID)
	}
	return entries, nil
}

// loadClient 读取客户并校验会话权限
func (s *LedgerService) loadClient(ctx context.Context, session models.Session, clientID string) (*models.Client, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, &ValidationError{Field: "clientId", Message: "客户ID不能为空"}
	}
	client, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return nil, translateStoreError(err, clientID)
	}
	if !session.CanAccess(client.OwnerID) {
		return nil, &ForbiddenError{Reason: "无权访问该客户"}
	}
	return client, nil
}

// commit 以读取时的版本号提交，成功后发布新增记录
func (s *LedgerService) commit(ctx context.Context, client *models.Client, change repository.Change) (*models.Client, error) {
	change.ClientID = client.ID
	change.ExpectedVersion = client.Version
	updated, err := s.store.Commit(ctx, change)
	if err != nil {
		translated := translateStoreError(err, client.ID)
		utils.LogLedgerRejected(client.ID, client.Version, recordRejected(translated), err)
		return nil, translated
	}
	utils.LogLedgerCommit(updated, change.Append)
	recordAppended(change.Append)
	s.publishAppended(ctx, change.Append)
	return updated, nil
}

func requireActor(session models.Session) error {
	if strings.TrimSpace(session.ActorID) == "" {
		return &ValidationError{Field: "actorId", Message: "缺少操作人"}
	}
	if !session.Role.IsValid() {
		return &ForbiddenError{Reason: "无效的用户角色"}
	}
	return nil
}
