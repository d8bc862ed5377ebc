package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BerniceZTT/followup_ledger/models"
)

// MemoryStore 内存存储，语义与 Mongo 实现一致，用于测试和本地开发
type MemoryStore struct {
	mu            sync.RWMutex
	clients       map[string]*models.Client
	interactions  map[string][]*models.Interaction
	operationLogs []models.OperationLog
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clients:      make(map[string]*models.Client),
		interactions: make(map[string][]*models.Interaction),
	}
}

// CreateClient 写入客户及建档记录
func (s *MemoryStore) CreateClient(ctx context.Context, client *models.Client, created *models.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	client.ID = uuid.NewString()
	client.Version = 1
	client.LedgerSeq = 0

	if created != nil {
		client.LedgerSeq = 1
		created.ID = uuid.NewString()
		created.ClientID = client.ID
		created.Seq = 1
		entry := *created
		s.interactions[client.ID] = []*models.Interaction{&entry}
	}

	stored := *client
	s.clients[client.ID] = &stored
	return nil
}

// GetClient 根据ID获取客户
func (s *MemoryStore) GetClient(ctx context.Context, id string) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

// ListClients 获取客户列表，按更新时间倒序
func (s *MemoryStore) ListClients(ctx context.Context, filter models.ClientFilter, now time.Time) ([]models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(filter.Query))
	out := make([]models.Client, 0, len(s.clients))
	for _, c := range s.clients {
		if filter.OwnerID != "" && c.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.FollowUpState != "" && c.EffectiveFollowUpState(now) != filter.FollowUpState {
			continue
		}
		if q != "" && !matchesQuery(c, q) {
			continue
		}
		out = append(out, *c)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func matchesQuery(c *models.Client, q string) bool {
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.Phone), q) ||
		strings.Contains(strings.ToLower(c.Email), q)
}

// DeleteClient 删除客户及其时间线
func (s *MemoryStore) DeleteClient(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[id]; !ok {
		return ErrNotFound
	}
	delete(s.clients, id)
	delete(s.interactions, id)
	return nil
}

// ListInteractions 获取客户时间线
func (s *MemoryStore) ListInteractions(ctx context.Context, clientID string) ([]models.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.interactions[clientID]
	out := make([]models.Interaction, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e)
	}
	sortNewestFirst(out)
	return out, nil
}

// LiveFollowUps 获取未替换的跟进预约
func (s *MemoryStore) LiveFollowUps(ctx context.Context, clientID string) ([]models.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Interaction
	for _, e := range s.interactions[clientID] {
		if e.IsLiveFollowUp() {
			out = append(out, *e)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// Commit 原子提交一次时间线变更
func (s *MemoryStore) Commit(ctx context.Context, change Change) (*models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[change.ClientID]
	if !ok {
		return nil, ErrNotFound
	}
	if c.Version != change.ExpectedVersion {
		return nil, ErrVersionConflict
	}

	entries := s.interactions[change.ClientID]
	substitute := make(map[string]bool, len(change.Substitute))
	for _, id := range change.Substitute {
		found := false
		for _, e := range entries {
			if e.ID == id && e.IsLiveFollowUp() {
				found = true
				break
			}
		}
		if !found {
			return nil, ErrVersionConflict
		}
		substitute[id] = true
	}

	// 提交后未替换的跟进预约最多一条
	live := 0
	for _, e := range entries {
		if e.IsLiveFollowUp() && !substitute[e.ID] {
			live++
		}
	}
	for _, e := range change.Append {
		if e.IsLiveFollowUp() {
			live++
		}
	}
	if live > 1 {
		return nil, ErrLiveFollowUpExists
	}

	for _, e := range entries {
		if substitute[e.ID] {
			e.Substituted = true
		}
	}
	for _, e := range change.Append {
		c.LedgerSeq++
		e.ID = uuid.NewString()
		e.ClientID = change.ClientID
		e.Seq = c.LedgerSeq
		entry := *e
		entries = append(entries, &entry)
	}
	s.interactions[change.ClientID] = entries

	applyPatch(c, change.Patch)
	c.Version++
	if !change.At.IsZero() {
		c.UpdatedAt = change.At
	}

	out := *c
	return &out, nil
}

// CountByDay 按UTC日期统计记录数
func (s *MemoryStore) CountByDay(ctx context.Context, q InteractionQuery) ([]models.DailyCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, entries := range s.interactions {
		for _, e := range entries {
			if matchesInteraction(e, q) {
				counts[e.Timestamp.UTC().Format(models.DayLayout)]++
			}
		}
	}

	out := make([]models.DailyCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, models.DailyCount{Date: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// CountStageEntries 区间内进入各销售阶段的客户数
func (s *MemoryStore) CountStageEntries(ctx context.Context, q InteractionQuery) (map[models.ClientStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type key struct {
		stage    models.ClientStatus
		clientID string
	}
	seen := make(map[key]bool)
	out := make(map[models.ClientStatus]int)
	for clientID, entries := range s.interactions {
		for _, e := range entries {
			if !matchesInteraction(e, q) {
				continue
			}
			stage := stageEntered(e)
			if stage == "" || seen[key{stage, clientID}] {
				continue
			}
			seen[key{stage, clientID}] = true
			out[stage]++
		}
	}
	return out, nil
}

func matchesInteraction(e *models.Interaction, q InteractionQuery) bool {
	if q.ActorID != "" && e.ActorID != q.ActorID {
		return false
	}
	if !q.From.IsZero() && e.Timestamp.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !e.Timestamp.Before(q.To) {
		return false
	}
	if len(q.Types) == 0 {
		return true
	}
	for _, t := range q.Types {
		if e.Type == t {
			return true
		}
	}
	return false
}

// stageEntered 记录使客户进入的销售阶段
func stageEntered(e *models.Interaction) models.ClientStatus {
	switch e.Type {
	case models.InteractionClientCreated:
		return models.StatusFirstContact
	case models.InteractionStatusChange:
		return e.ToStatus
	}
	return ""
}

// SaveOperationLog 保存操作日志
func (s *MemoryStore) SaveOperationLog(ctx context.Context, log *models.OperationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.ID = uuid.NewString()
	s.operationLogs = append(s.operationLogs, *log)
	return nil
}

// OperationLogs 已保存的操作日志
func (s *MemoryStore) OperationLogs() []models.OperationLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.OperationLog, len(s.operationLogs))
	copy(out, s.operationLogs)
	return out
}

// DatabaseStatus 获取存储状态
func (s *MemoryStore) DatabaseStatus(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, entries := range s.interactions {
		total += len(entries)
	}
	return map[string]interface{}{
		"driver":                   "memory",
		ClientsCollection:          map[string]interface{}{"count": len(s.clients)},
		InteractionsCollection:     map[string]interface{}{"count": total},
		ApiOperationLogsCollection: map[string]interface{}{"count": len(s.operationLogs)},
	}, nil
}

func applyPatch(c *models.Client, p ClientPatch) {
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.FollowUpState != nil {
		c.FollowUpState = *p.FollowUpState
	}
	if p.FollowUpAt != nil {
		at := *p.FollowUpAt
		c.FollowUpAt = &at
	}
}

func sortNewestFirst(entries []models.Interaction) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.After(entries[j].Timestamp)
		}
		return entries[i].Seq > entries[j].Seq
	})
}
