package service

import (
	"context"

	"github.com/BerniceZTT/followup_ledger/models"
)

var followUpChartOrder = []models.FollowUpState{
	models.FollowUpNone,
	models.FollowUpActive,
	models.FollowUpDelayed,
	models.FollowUpCompleted,
	models.FollowUpCanceled,
	models.FollowUpLost,
}

var statusChartOrder = []models.ClientStatus{
	models.StatusFirstContact,
	models.StatusCadenceFlow,
	models.StatusHandling,
	models.StatusAwaitingDoc,
	models.StatusDocComplete,
	models.StatusInAnalysis,
	models.StatusApproved,
	models.StatusReproved,
	models.StatusSaleGenerated,
	models.StatusArchived,
}

// BrokerKPIs 经纪人看板指标。
// ownerID 为空时经纪人统计自己的客户，经理和管理员统计全部客户。
func (s *LedgerService) BrokerKPIs(ctx context.Context, session models.Session, ownerID string) (*models.BrokerKpis, error) {
	ownerID, err := scopeOwner(session, ownerID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	clients, err := s.store.ListClients(ctx, models.ClientFilter{OwnerID: ownerID}, now)
	if err != nil {
		return nil, err
	}

	kpis := &models.BrokerKpis{}
	byState := make(map[models.FollowUpState]int)
	byStatus := make(map[models.ClientStatus]int)
	for i := range clients {
		c := &clients[i]
		state := c.EffectiveFollowUpState(now)
		byState[state]++
		byStatus[c.Status]++

		switch state {
		case models.FollowUpDelayed:
			kpis.FollowUpAtrasado++
		case models.FollowUpActive:
			kpis.FollowUpFuturo++
		}
		switch c.Status {
		case models.StatusFirstContact:
			kpis.LeadsPrimeiroAtendimento++
		case models.StatusHandling:
			kpis.LeadsEmTratativa++
		}
		if c.Status != models.StatusArchived {
			kpis.TotalLeads++
		}
	}

	kpis.FollowUpDistribution = make([]models.ChartDataItem, 0, len(followUpChartOrder))
	for _, state := range followUpChartOrder {
		kpis.FollowUpDistribution = append(kpis.FollowUpDistribution, models.ChartDataItem{Name: string(state), Value: byState[state]})
	}
	kpis.StatusDistribution = make([]models.ChartDataItem, 0, len(statusChartOrder))
	for _, status := range statusChartOrder {
		if byStatus[status] == 0 {
			continue
		}
		kpis.StatusDistribution = append(kpis.StatusDistribution, models.ChartDataItem{Name: string(status), Value: byStatus[status]})
	}
	return kpis, nil
}

// scopeOwner 经纪人只能统计自己，经理和管理员可指定经纪人或统计全部
func scopeOwner(session models.Session, requested string) (string, error) {
	if err := requireActor(session); err != nil {
		return "", err
	}
	if session.CanSeeAll() {
		return requested, nil
	}
	if requested != "" && requested != session.ActorID {
		return "", &ForbiddenError{Reason: "无权查看其他经纪人的指标"}
	}
	return session.ActorID, nil
}
