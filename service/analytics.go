package service

import (
	"context"
	"strings"
	"time"

	"github.com/BerniceZTT/followup_ledger/models"
	"github.com/BerniceZTT/followup_ledger/repository"
)

// maxReportDays 报表最长跨度
const maxReportDays = 366

var callTypes = []models.InteractionType{
	models.InteractionCallInitiated,
	models.InteractionLoggedCall,
}

// funnelStageOrder 漏斗阶段顺序，拒绝和归档不属于漏斗
var funnelStageOrder = []models.ClientStatus{
	models.StatusFirstContact,
	models.StatusCadenceFlow,
	models.StatusHandling,
	models.StatusAwaitingDoc,
	models.StatusDocComplete,
	models.StatusInAnalysis,
	models.StatusApproved,
	models.StatusSaleGenerated,
}

// ParseReportRange 解析 YYYY-MM-DD 日期区间，结束日期包含当天。
// 返回 [from, to) 的UTC时间区间。
func ParseReportRange(startDate, endDate string) (time.Time, time.Time, error) {
	from, err := time.Parse(models.DayLayout, strings.TrimSpace(startDate))
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{Field: "startDate", Message: "日期格式应为 YYYY-MM-DD"}
	}
	end, err := time.Parse(models.DayLayout, strings.TrimSpace(endDate))
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{Field: "endDate", Message: "日期格式应为 YYYY-MM-DD"}
	}
	to := end.AddDate(0, 0, 1)
	if !to.After(from) {
		return time.Time{}, time.Time{}, &ValidationError{Field: "endDate", Message: "结束日期不能早于开始日期"}
	}
	return from, to, nil
}

func checkReportRange(from, to time.Time) error {
	if !to.After(from) {
		return &ValidationError{Field: "endDate", Message: "结束日期不能早于开始日期"}
	}
	if to.Sub(from) > maxReportDays*24*time.Hour {
		return &ValidationError{Field: "endDate", Message: "统计区间不能超过一年"}
	}
	return nil
}

// Productivity 经纪人每日通话量，区间内没有通话的日期补零
func (s *LedgerService) Productivity(ctx context.Context, session models.Session, from, to time.Time, brokerID string) (*models.ProductivityReport, error) {
	brokerID, err := scopeOwner(session, brokerID)
	if err != nil {
		return nil, err
	}
	from, to = from.UTC(), to.UTC()
	if err := checkReportRange(from, to); err != nil {
		return nil, err
	}

	counts, err := s.store.CountByDay(ctx, repository.InteractionQuery{
		Types:   callTypes,
		ActorID: brokerID,
		From:    from,
		To:      to,
	})
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]int, len(counts))
	for _, c := range counts {
		byDay[c.Date] = c.Count
	}

	report := &models.ProductivityReport{Series: []models.DailyCount{}}
	for day := from.Truncate(24 * time.Hour); day.Before(to); day = day.AddDate(0, 0, 1) {
		key := day.Format(models.DayLayout)
		report.Series = append(report.Series, models.DailyCount{Date: key, Count: byDay[key]})
		report.Total += byDay[key]
	}
	return report, nil
}

// Funnel 区间内进入各销售阶段的客户数
func (s *LedgerService) Funnel(ctx context.Context, session models.Session, from, to time.Time, brokerID string) (*models.FunnelReport, error) {
	brokerID, err := scopeOwner(session, brokerID)
	if err != nil {
		return nil, err
	}
	from, to = from.UTC(), to.UTC()
	if err := checkReportRange(from, to); err != nil {
		return nil, err
	}

	counts, err := s.store.CountStageEntries(ctx, repository.InteractionQuery{
		ActorID: brokerID,
		From:    from,
		To:      to,
	})
	if err != nil {
		return nil, err
	}

	report := &models.FunnelReport{Stages: make(models.FunnelStages, 0, len(funnelStageOrder))}
	for _, stage := range funnelStageOrder {
		report.Stages = append(report.Stages, models.ChartDataItem{Name: string(stage), Value: counts[stage]})
	}
	return report, nil
}
