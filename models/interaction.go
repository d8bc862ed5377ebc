package models

import (
	"regexp"
	"time"
)

// InteractionType 时间线事件类型
type InteractionType string

const (
	InteractionNote              InteractionType = "Anotação"
	InteractionWhatsApp          InteractionType = "WhatsApp"
	InteractionCallInitiated     InteractionType = "Ligação Iniciada"
	InteractionLoggedCall        InteractionType = "Ligação Registrada"
	InteractionStatusChange      InteractionType = "Mudança de Status"
	InteractionFollowUpScheduled InteractionType = "Follow-up Agendado"
	InteractionFollowUpCompleted InteractionType = "Follow-up Concluído"
	InteractionFollowUpCanceled  InteractionType = "Follow-up Cancelado"
	InteractionFollowUpLost      InteractionType = "Follow-up Perdido"
	InteractionClientCreated     InteractionType = "Cliente Cadastrado"
	InteractionAudio             InteractionType = "Áudio Enviado"
	InteractionInsecure          InteractionType = "Cliente Inseguro"
)

var interactionTypes = map[InteractionType]bool{
	InteractionNote:              true,
	InteractionWhatsApp:          true,
	InteractionCallInitiated:     true,
	InteractionLoggedCall:        true,
	InteractionStatusChange:      true,
	InteractionFollowUpScheduled: true,
	InteractionFollowUpCompleted: true,
	InteractionFollowUpCanceled:  true,
	InteractionFollowUpLost:      true,
	InteractionClientCreated:     true,
	InteractionAudio:             true,
	InteractionInsecure:          true,
}

// IsValid 判断事件类型是否合法
func (t InteractionType) IsValid() bool {
	return interactionTypes[t]
}

// IsLifecycle 跟进生命周期和建档事件只能由状态机写入
func (t InteractionType) IsLifecycle() bool {
	switch t {
	case InteractionFollowUpScheduled, InteractionFollowUpCompleted,
		InteractionFollowUpCanceled, InteractionFollowUpLost, InteractionClientCreated:
		return true
	}
	return false
}

// ScheduledAtLayout 跟进时间的严格 ISO-8601 UTC 格式
const ScheduledAtLayout = "2006-01-02T15:04:05.000Z"

var scheduledAtPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`)

// FormatScheduledAt 把跟进时间编码为时间线 observation
func FormatScheduledAt(t time.Time) string {
	return t.UTC().Format(ScheduledAtLayout)
}

// ObservationKind observation 的实际类型
type ObservationKind string

const (
	ObservationFreeText    ObservationKind = "text"
	ObservationScheduledAt ObservationKind = "scheduledAt"
)

// Observation 时间线备注，要么是自由文本，要么是跟进时间
type Observation struct {
	Kind ObservationKind
	Text string
	At   time.Time
}

// FreeText 构造自由文本备注
func FreeText(text string) Observation {
	return Observation{Kind: ObservationFreeText, Text: text}
}

// ScheduledAt 构造跟进时间备注
func ScheduledAt(at time.Time) Observation {
	at = at.UTC().Truncate(time.Millisecond)
	return Observation{Kind: ObservationScheduledAt, Text: FormatScheduledAt(at), At: at}
}

// ParseObservation 按事件类型解析原始备注。
// 只有格式严格匹配的 Follow-up Agendado 备注才会被当作时间，其余一律按文本处理。
func ParseObservation(t InteractionType, raw string) Observation {
	if t != InteractionFollowUpScheduled || !scheduledAtPattern.MatchString(raw) {
		return FreeText(raw)
	}
	at, err := time.Parse(ScheduledAtLayout, raw)
	if err != nil {
		return FreeText(raw)
	}
	return Observation{Kind: ObservationScheduledAt, Text: raw, At: at}
}

// Interaction 客户时间线记录，创建后不可修改（substituted 标记除外）
type Interaction struct {
	ID          string          `bson:"_id,omitempty" json:"id"`
	ClientID    string          `bson:"clientId" json:"clientId"`
	ActorID     string          `bson:"actorId" json:"actorId"`
	Type        InteractionType `bson:"type" json:"type"`
	Timestamp   time.Time       `bson:"timestamp" json:"date"`
	Seq         int64           `bson:"seq" json:"seq"`
	Observation string          `bson:"observation" json:"observation"`
	FromStatus  ClientStatus    `bson:"fromStatus,omitempty" json:"fromStatus,omitempty"`
	ToStatus    ClientStatus    `bson:"toStatus,omitempty" json:"toStatus,omitempty"`
	Substituted bool            `bson:"substituted" json:"substituted"`
}

// ParsedObservation 返回带类型的备注
func (i *Interaction) ParsedObservation() Observation {
	return ParseObservation(i.Type, i.Observation)
}

// IsLiveFollowUp 未被替换的跟进预约
func (i *Interaction) IsLiveFollowUp() bool {
	return i.Type == InteractionFollowUpScheduled && !i.Substituted
}

// InteractionView 时间线展示结构
type InteractionView struct {
	Interaction
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
}

// NewInteractionView 附带解析后的跟进时间
func NewInteractionView(i Interaction) InteractionView {
	view := InteractionView{Interaction: i}
	if obs := i.ParsedObservation(); obs.Kind == ObservationScheduledAt {
		at := obs.At
		view.ScheduledAt = &at
	}
	return view
}

// CreateInteractionInput 新增时间线记录的请求数据，客户ID取自路径
type CreateInteractionInput struct {
	Type         string `json:"type" binding:"required"`
	Observation  string `json:"observation"`
	ExplicitNext string `json:"explicitNext"`
}
