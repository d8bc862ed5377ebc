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

// Resolution 重新预约前对当前跟进的处理方式
type Resolution string

const (
	ResolutionComplete Resolution = "complete"
	ResolutionLost     Resolution = "lost"
	ResolutionCancel   Resolution = "cancel"
)

// Resolutions 全部处理方式，顺序即前端展示顺序
func Resolutions() []Resolution {
	return []Resolution{ResolutionComplete, ResolutionLost, ResolutionCancel}
}

// ParseResolution 解析处理方式
func ParseResolution(raw string) (Resolution, error) {
	r := Resolution(strings.ToLower(strings.TrimSpace(raw)))
	if !r.IsValid() {
		return "", &ValidationError{Field: "resolution", Message: fmt.Sprintf("无效的处理方式: %s", raw)}
	}
	return r, nil
}

// IsValid 判断处理方式是否合法
func (r Resolution) IsValid() bool {
	return r == ResolutionComplete || r == ResolutionLost || r == ResolutionCancel
}

type terminalOutcome struct {
	entryType   models.InteractionType
	state       models.FollowUpState
	defaultNote string
}

var outcomes = map[Resolution]terminalOutcome{
	ResolutionComplete: {models.InteractionFollowUpCompleted, models.FollowUpCompleted, "Follow-up concluído."},
	ResolutionLost:     {models.InteractionFollowUpLost, models.FollowUpLost, "Follow-up marcado como perdido."},
	ResolutionCancel:   {models.InteractionFollowUpCanceled, models.FollowUpCanceled, "Follow-up cancelado."},
}

// FollowUpResult 跟进操作结果
type FollowUpResult struct {
	Client   models.ClientView    `json:"client"`
	Appended []models.Interaction `json:"appended"`
}

// EffectiveState 推导客户当前的跟进状态
func (s *LedgerService) EffectiveState(client *models.Client) models.FollowUpState {
	return client.EffectiveFollowUpState(s.Now())
}

// Schedule 预约跟进。
// 时间必须晚于当前时间；已有进行中或逾期的跟进时需要先选择处理方式。
func (s *LedgerService) Schedule(ctx context.Context, session models.Session, clientID string, when time.Time) (*FollowUpResult, error) {
	if err := requireActor(session); err != nil {
		return nil, err
	}
	now := s.Now()
	when, err := futureInstant(when, now)
	if err != nil {
		return nil, err
	}

	client, err := s.loadClient(ctx, session, clientID)
	if err != nil {
		return nil, err
	}
	if client.EffectiveFollowUpState(now).IsOpen() {
		return nil, pendingFollowUpError()
	}

	change, err := s.scheduleChange(ctx, client, session, when, now)
	if err != nil {
		return nil, err
	}
	return s.commitFollowUp(ctx, client, session, change, now, "跟进已预约")
}

// Complete 完成当前跟进
func (s *LedgerService) Complete(ctx context.Context, session models.Session, clientID, note string) (*FollowUpResult, error) {
	return s.resolve(ctx, session, clientID, ResolutionComplete, note)
}

// MarkLost 把当前跟进标记为流失
func (s *LedgerService) MarkLost(ctx context.Context, session models.Session, clientID, note string) (*FollowUpResult, error) {
	return s.resolve(ctx, session, clientID, ResolutionLost, note)
}

// Cancel 取消当前跟进
func (s *LedgerService) Cancel(ctx context.Context, session models.Session, clientID, note string) (*FollowUpResult, error) {
	return s.resolve(ctx, session, clientID, ResolutionCancel, note)
}

// Resolve 按处理方式结束当前跟进
func (s *LedgerService) Resolve(ctx context.Context, session models.Session, clientID string, resolution Resolution, note string) (*FollowUpResult, error) {
	if !resolution.IsValid() {
		return nil, &ValidationError{Field: "resolution", Message: fmt.Sprintf("无效的处理方式: %s", resolution)}
	}
	return s.resolve(ctx, session, clientID, resolution, note)
}

func (s *LedgerService) resolve(ctx context.Context, session models.Session, clientID string, resolution Resolution, note string) (*FollowUpResult, error) {
	if err := requireActor(session); err != nil {
		return nil, err
	}
	client, err := s.loadClient(ctx, session, clientID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	entry, state, err := terminalEntry(client, session, resolution, note, now)
	if err != nil {
		return nil, err
	}
	change := repository.Change{
		Append: []*models.Interaction{entry},
		Patch:  repository.ClientPatch{FollowUpState: &state},
		At:     now,
	}
	return s.commitFollowUp(ctx, client, session, change, now, "跟进已结束")
}

// ResolveThenSchedule 先按处理方式结束当前跟进，再预约新的跟进，两步在同一次提交中完成。
// 客户没有进行中的跟进时只预约。
func (s *LedgerService) ResolveThenSchedule(ctx context.Context, session models.Session, clientID string, when time.Time, resolution Resolution) (*FollowUpResult, error) {
	if err := requireActor(session); err != nil {
		return nil, err
	}
	if !resolution.IsValid() {
		return nil, &ValidationError{Field: "resolution", Message: fmt.Sprintf("无效的处理方式: %s", resolution)}
	}
	now := s.Now()
	when, err := futureInstant(when, now)
	if err != nil {
		return nil, err
	}

	client, err := s.loadClient(ctx, session, clientID)
	if err != nil {
		return nil, err
	}
	change, err := s.scheduleChange(ctx, client, session, when, now)
	if err != nil {
		return nil, err
	}
	// 没有进行中的跟进时直接预约，不追加结束记录
	if !client.EffectiveFollowUpState(now).IsOpen() {
		return s.commitFollowUp(ctx, client, session, change, now, "跟进已预约")
	}
	terminal, _, err := terminalEntry(client, session, resolution, "", now)
	if err != nil {
		return nil, err
	}
	change.Append = append([]*models.Interaction{terminal}, change.Append...)
	return s.commitFollowUp(ctx, client, session, change, now, "跟进已处理并重新预约")
}

// scheduleChange 替换现有的跟进预约并追加新的预约
func (s *LedgerService) scheduleChange(ctx context.Context, client *models.Client, session models.Session, when, now time.Time) (repository.Change, error) {
	live, err := s.store.LiveFollowUps(ctx, client.ID)
	if err != nil {
		return repository.Change{}, translateStoreError(err, client.ID)
	}
	if len(live) > 1 {
		utils.LogLiveFollowUpMismatch("预约跟进", client.ID, 1, len(live))
	}
	substitute := make([]string, 0, len(live))
	for _, e := range live {
		substitute = append(substitute, e.ID)
	}

	active := models.FollowUpActive
	return repository.Change{
		Substitute: substitute,
		Append: []*models.Interaction{{
			ActorID:     session.ActorID,
			Type:        models.InteractionFollowUpScheduled,
			Timestamp:   now,
			Observation: models.ScheduledAt(when).Text,
		}},
		Patch: repository.ClientPatch{FollowUpState: &active, FollowUpAt: &when},
		At:    now,
	}, nil
}

func (s *LedgerService) commitFollowUp(ctx context.Context, client *models.Client, session models.Session, change repository.Change, now time.Time, message string) (*FollowUpResult, error) {
	updated, err := s.commit(ctx, client, change)
	if err != nil {
		return nil, err
	}
	appended := make([]models.Interaction, 0, len(change.Append))
	for _, e := range change.Append {
		appended = append(appended, *e)
	}
	view := models.NewClientView(*updated, now)
	utils.LogInfo(map[string]interface{}{
		"clientId":      updated.ID,
		"followUpState": view.FollowUpState,
		"actorId":       session.ActorID,
	}, message)
	return &FollowUpResult{Client: view, Appended: appended}, nil
}

// terminalEntry 结束记录；没有任何跟进时无可处理
func terminalEntry(client *models.Client, session models.Session, resolution Resolution, note string, now time.Time) (*models.Interaction, models.FollowUpState, error) {
	if client.EffectiveFollowUpState(now) == models.FollowUpNone {
		return nil, "", &ConflictError{Code: CodeNoFollowUp, Reason: "客户当前没有跟进，无需处理"}
	}
	outcome := outcomes[resolution]
	if strings.TrimSpace(note) == "" {
		note = outcome.defaultNote
	}
	return &models.Interaction{
		ActorID:     session.ActorID,
		Type:        outcome.entryType,
		Timestamp:   now,
		Observation: note,
	}, outcome.state, nil
}

func futureInstant(when, now time.Time) (time.Time, error) {
	if when.IsZero() {
		return time.Time{}, &ValidationError{Field: "scheduledAt", Message: "预约时间不能为空"}
	}
	when = when.UTC().Truncate(time.Millisecond)
	if !when.After(now) {
		return time.Time{}, &PastDateError{At: when, Now: now}
	}
	return when, nil
}
