package repository

import (
	"context"
	"errors"
	"time"

	"github.com/BerniceZTT/followup_ledger/models"
)

var (
	// ErrNotFound 客户或时间线记录不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrVersionConflict 客户记录在读取后被其他请求修改
	ErrVersionConflict = errors.New("客户记录已被并发修改")
	// ErrLiveFollowUpExists 同一客户出现第二条未替换的跟进预约
	ErrLiveFollowUpExists = errors.New("客户已存在未处理的跟进预约")
)

// ClientPatch 随时间线写入一起更新的客户字段，nil 表示不修改
type ClientPatch struct {
	Status        *models.ClientStatus
	FollowUpState *models.FollowUpState
	FollowUpAt    *time.Time
}

// Change 一次原子提交：
// 按 ExpectedVersion 做比较交换，先标记被替换的跟进预约，再追加新记录，最后更新客户字段。
type Change struct {
	ClientID        string
	ExpectedVersion int64
	Substitute      []string
	Append          []*models.Interaction
	Patch           ClientPatch
	At              time.Time
}

// InteractionQuery 时间线统计条件，时间区间左闭右开，空字段不过滤
type InteractionQuery struct {
	Types   []models.InteractionType
	ActorID string
	From    time.Time
	To      time.Time
}

// ClientStore 客户存储
type ClientStore interface {
	// CreateClient 写入客户及其建档记录，ID 与序号由存储分配
	CreateClient(ctx context.Context, client *models.Client, created *models.Interaction) error
	GetClient(ctx context.Context, id string) (*models.Client, error)
	// ListClients 按推导后的跟进状态筛选，now 为推导基准时间
	ListClients(ctx context.Context, filter models.ClientFilter, now time.Time) ([]models.Client, error)
	// DeleteClient 删除客户及其全部时间线
	DeleteClient(ctx context.Context, id string) error
}

// LedgerStore 时间线存储
type LedgerStore interface {
	// ListInteractions 按时间倒序返回，时间相同按序号倒序
	ListInteractions(ctx context.Context, clientID string) ([]models.Interaction, error)
	LiveFollowUps(ctx context.Context, clientID string) ([]models.Interaction, error)
	Commit(ctx context.Context, change Change) (*models.Client, error)
	// CountByDay 按UTC日期统计记录数，只返回有记录的日期，日期升序
	CountByDay(ctx context.Context, q InteractionQuery) ([]models.DailyCount, error)
	// CountStageEntries 区间内进入各销售阶段的客户数，同一客户同一阶段只计一次。
	// 建档记录计入首次接待，状态变更记录计入目标状态。
	CountStageEntries(ctx context.Context, q InteractionQuery) (map[models.ClientStatus]int, error)
}

// OperationLogStore 接口操作日志存储
type OperationLogStore interface {
	SaveOperationLog(ctx context.Context, log *models.OperationLog) error
}

// StatusReporter 数据库状态
type StatusReporter interface {
	DatabaseStatus(ctx context.Context) (map[string]interface{}, error)
}

// Store 服务所需的全部存储能力
type Store interface {
	ClientStore
	LedgerStore
	OperationLogStore
	StatusReporter
}
