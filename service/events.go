package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/BerniceZTT/followup_ledger/models"
	"github.com/BerniceZTT/followup_ledger/utils"
)

// 事件类型
const (
	EventLedgerAppended  = "ledger.appended"
	EventFollowUpOverdue = "followup.overdue"
)

// Event 提交后对外发布的事件
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	ClientID   string      `json:"clientId"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

// OverduePayload 跟进逾期通知
type OverduePayload struct {
	OwnerID     string    `json:"ownerId"`
	ClientName  string    `json:"clientName"`
	ScheduledAt time.Time `json:"scheduledAt"`
	OverdueBy   string    `json:"overdueBy"`
}

// EventPublisher 事件发布
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher 未配置消息队列时使用
type NopPublisher struct{}

// Publish 丢弃事件
func (NopPublisher) Publish(ctx context.Context, event Event) error {
	return nil
}

func newEvent(eventType, clientID string, at time.Time, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		ClientID:   clientID,
		OccurredAt: at,
		Payload:    payload,
	}
}

// publish 发布失败只记录日志，不影响已提交的写入
func publish(ctx context.Context, publisher EventPublisher, event Event) {
	if err := publisher.Publish(ctx, event); err != nil {
		utils.LogError(err, map[string]interface{}{
			"eventId":  event.ID,
			"type":     event.Type,
			"clientId": event.ClientID,
		}, "发布事件失败")
	}
}

func (s *LedgerService) publishAppended(ctx context.Context, entries []*models.Interaction) {
	for _, e := range entries {
		publish(ctx, s.publisher, newEvent(EventLedgerAppended, e.ClientID, e.Timestamp, *e))
	}
}
