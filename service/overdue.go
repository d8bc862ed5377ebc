package service

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/BerniceZTT/followup_ledger/models"
	"github.com/BerniceZTT/followup_ledger/repository"
	"github.com/BerniceZTT/followup_ledger/utils"
)

// DefaultOverdueSweepSpec 默认每15分钟检查一次
const DefaultOverdueSweepSpec = "@every 15m"

// OverdueSweeper 定时检查逾期跟进并发送通知，只读不写。
// 同一个预约时间只通知一次，重新预约后会再次通知。
type OverdueSweeper struct {
	store     repository.ClientStore
	publisher EventPublisher
	clock     Clock
	spec      string
	cron      *cron.Cron

	mu       sync.Mutex
	notified map[string]time.Time
}

// NewOverdueSweeper 创建逾期检查任务
func NewOverdueSweeper(store repository.ClientStore, publisher EventPublisher, clock Clock, spec string) *OverdueSweeper {
	if clock == nil {
		clock = SystemClock{}
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if spec == "" {
		spec = DefaultOverdueSweepSpec
	}
	return &OverdueSweeper{
		store:     store,
		publisher: publisher,
		clock:     clock,
		spec:      spec,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		notified:  make(map[string]time.Time),
	}
}

// Start 注册并启动定时任务
func (o *OverdueSweeper) Start() error {
	_, err := o.cron.AddFunc(o.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := o.Sweep(ctx); err != nil {
			utils.LogError(err, map[string]interface{}{"spec": o.spec}, "逾期跟进检查失败")
		}
	})
	if err != nil {
		return err
	}
	o.cron.Start()
	utils.Logger.Info().Str("spec", o.spec).Msg("逾期跟进检查任务已启动")
	return nil
}

// Stop 停止任务并等待正在执行的检查结束
func (o *OverdueSweeper) Stop() {
	ctx := o.cron.Stop()
	<-ctx.Done()
	utils.Logger.Info().Msg("逾期跟进检查任务已停止")
}

// Sweep 执行一次检查，返回本次发送的通知数。
// 当前时间与服务一样精确到毫秒，保证逾期判断一致。
func (o *OverdueSweeper) Sweep(ctx context.Context) (int, error) {
	now := o.clock.Now().UTC().Truncate(time.Millisecond)
	clients, err := o.store.ListClients(ctx, models.ClientFilter{FollowUpState: models.FollowUpDelayed}, now)
	if err != nil {
		return 0, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	seen := make(map[string]bool, len(clients))
	sent := 0
	for i := range clients {
		c := &clients[i]
		if c.FollowUpAt == nil || c.EffectiveFollowUpState(now) != models.FollowUpDelayed {
			continue
		}
		seen[c.ID] = true
		if last, ok := o.notified[c.ID]; ok && last.Equal(*c.FollowUpAt) {
			continue
		}
		payload := OverduePayload{
			OwnerID:     c.OwnerID,
			ClientName:  c.Name,
			ScheduledAt: *c.FollowUpAt,
			OverdueBy:   now.Sub(*c.FollowUpAt).Truncate(time.Minute).String(),
		}
		publish(ctx, o.publisher, newEvent(EventFollowUpOverdue, c.ID, now, payload))
		overdueNotifications.Inc()
		o.notified[c.ID] = *c.FollowUpAt
		sent++
	}
	// 已处理或重新预约的客户不再记录
	for id := range o.notified {
		if !seen[id] {
			delete(o.notified, id)
		}
	}

	utils.LogInfo(map[string]interface{}{
		"delayed": len(clients),
		"sent":    sent,
	}, "逾期跟进检查完成")
	return sent, nil
}
