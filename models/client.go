package models

import (
	"time"
)

// ClientStatus 客户所处的销售阶段
type ClientStatus string

const (
	StatusFirstContact  ClientStatus = "Primeiro Atendimento"
	StatusCadenceFlow   ClientStatus = "Fluxo de Cadência"
	StatusHandling      ClientStatus = "Tratativa"
	StatusAwaitingDoc   ClientStatus = "Aguardando Doc"
	StatusDocComplete   ClientStatus = "Doc Completa"
	StatusInAnalysis    ClientStatus = "Em Análise"
	StatusApproved      ClientStatus = "Aprovado"
	StatusReproved      ClientStatus = "Reprovado"
	StatusSaleGenerated ClientStatus = "Venda Gerada"
	StatusArchived      ClientStatus = "Arquivado"

	// 历史数据中的旧状态，只读
	StatusLegacyCadence ClientStatus = "Cadência"
	StatusLegacyDocs    ClientStatus = "Docs"
	StatusLegacySale    ClientStatus = "Venda"
)

var activeStatuses = []ClientStatus{
	StatusFirstContact,
	StatusCadenceFlow,
	StatusHandling,
	StatusAwaitingDoc,
	StatusDocComplete,
	StatusInAnalysis,
	StatusApproved,
	StatusReproved,
	StatusSaleGenerated,
	StatusArchived,
}

// IsValidClientStatus 验证状态是否可以作为变更目标
func IsValidClientStatus(status ClientStatus) bool {
	for _, s := range activeStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsKnownClientStatus 包含旧状态在内的全部状态
func IsKnownClientStatus(status ClientStatus) bool {
	switch status {
	case StatusLegacyCadence, StatusLegacyDocs, StatusLegacySale:
		return true
	}
	return IsValidClientStatus(status)
}

// FollowUpState 跟进状态
type FollowUpState string

const (
	FollowUpNone      FollowUpState = "Sem Follow Up"
	FollowUpActive    FollowUpState = "Ativo"
	FollowUpDelayed   FollowUpState = "Atrasado" // 只在读取时推导，从不落库
	FollowUpCompleted FollowUpState = "Concluido"
	FollowUpCanceled  FollowUpState = "Cancelado"
	FollowUpLost      FollowUpState = "Perdido"
)

// IsValid 判断跟进状态是否合法
func (s FollowUpState) IsValid() bool {
	switch s {
	case FollowUpNone, FollowUpActive, FollowUpDelayed, FollowUpCompleted, FollowUpCanceled, FollowUpLost:
		return true
	}
	return false
}

// IsOpen 存在待处理的跟进
func (s FollowUpState) IsOpen() bool {
	return s == FollowUpActive || s == FollowUpDelayed
}

// Client 客户（线索）
type Client struct {
	ID            string        `bson:"_id,omitempty" json:"id"`
	Name          string        `bson:"name" json:"name"`
	Phone         string        `bson:"phone" json:"phone"`
	Source        string        `bson:"source" json:"source"`
	Status        ClientStatus  `bson:"status" json:"status"`
	Email         string        `bson:"email,omitempty" json:"email,omitempty"`
	Observations  string        `bson:"observations,omitempty" json:"observations,omitempty"`
	Product       string        `bson:"product,omitempty" json:"product,omitempty"`
	PropertyValue float64       `bson:"propertyValue,omitempty" json:"propertyValue,omitempty"`
	OwnerID       string        `bson:"ownerId" json:"ownerId"`
	FollowUpState FollowUpState `bson:"followUpState" json:"followUpState"`
	FollowUpAt    *time.Time    `bson:"followUpAt,omitempty" json:"followUpAt,omitempty"`
	Version       int64         `bson:"version" json:"-"`
	LedgerSeq     int64         `bson:"ledgerSeq" json:"-"`
	CreatedAt     time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// EffectiveFollowUpState 读取时计算的跟进状态：
// 已预约且预约时间已过则视为 Atrasado，库中的值保持不变。
func (c *Client) EffectiveFollowUpState(now time.Time) FollowUpState {
	if c.FollowUpState == "" {
		return FollowUpNone
	}
	if c.FollowUpState == FollowUpActive && c.FollowUpAt != nil && c.FollowUpAt.Before(now) {
		return FollowUpDelayed
	}
	return c.FollowUpState
}

// ClientView 客户展示结构，followUpState 为推导后的值
type ClientView struct {
	Client
	FollowUpState FollowUpState     `json:"followUpState"`
	Interactions  []InteractionView `json:"interactions,omitempty"`
}

// NewClientView 构造展示结构
func NewClientView(c Client, now time.Time) ClientView {
	return ClientView{Client: c, FollowUpState: c.EffectiveFollowUpState(now)}
}

// ClientFilter 客户列表筛选条件
type ClientFilter struct {
	Query         string
	Status        ClientStatus
	FollowUpState FollowUpState
	OwnerID       string
}

// CreateClientRequest 创建客户请求
type CreateClientRequest struct {
	Name          string  `json:"name" binding:"required"`
	Phone         string  `json:"phone" binding:"required"`
	Source        string  `json:"source"`
	Email         string  `json:"email"`
	Observations  string  `json:"observations"`
	Product       string  `json:"product"`
	PropertyValue float64 `json:"propertyValue"`
	OwnerID       string  `json:"ownerId"`
}

// ScheduleFollowUpRequest 预约跟进请求
type ScheduleFollowUpRequest struct {
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
	Resolution  string    `json:"resolution"`
}

// ResolveFollowUpRequest 结束当前跟进请求
type ResolveFollowUpRequest struct {
	Note string `json:"note"`
}
