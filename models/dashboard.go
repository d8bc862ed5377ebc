package models

import (
	"bytes"
	"encoding/json"
)

// DayLayout 报表按UTC自然日分组的日期格式
const DayLayout = "2006-01-02"

// 图表数据项
type ChartDataItem struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// BrokerKpis 经纪人看板指标，跟进状态按推导值统计
type BrokerKpis struct {
	FollowUpAtrasado         int `json:"followUpAtrasado"`         // 已逾期跟进
	FollowUpFuturo           int `json:"followUpFuturo"`           // 待进行跟进
	LeadsEmTratativa         int `json:"leadsEmTratativa"`         // 洽谈阶段
	LeadsPrimeiroAtendimento int `json:"leadsPrimeiroAtendimento"` // 首次接待阶段
	TotalLeads               int `json:"totalLeads"`               // 未归档线索总数

	FollowUpDistribution []ChartDataItem `json:"followUpDistribution"` // 跟进状态分布
	StatusDistribution   []ChartDataItem `json:"statusDistribution"`   // 销售阶段分布
}

// DailyCount 单日记录数
type DailyCount struct {
	Date  string `bson:"_id" json:"date"`
	Count int    `bson:"count" json:"count"`
}

// ProductivityReport 通话量日报，区间内每天一项，没有记录的日期为0
type ProductivityReport struct {
	Series []DailyCount `json:"series"`
	Total  int          `json:"total"`
}

// FunnelReport 区间内进入各销售阶段的客户数
type FunnelReport struct {
	Stages FunnelStages `json:"stages"`
}

// FunnelStages 按漏斗顺序排列的阶段计数，序列化为保持顺序的对象
type FunnelStages []ChartDataItem

// MarshalJSON 输出 {"阶段": 数量, ...}
func (s FunnelStages) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, item := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(item.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(item.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
