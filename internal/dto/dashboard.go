package dto

import "time"

// ── 看板模块 DTO ──

// DashboardQuery 看板查询参数
type DashboardQuery struct {
	Date string `form:"date"` // YYYY-MM-DD，缺省为当天
	Line string `form:"line"`
}

// CombinedQuery 交接/接班合并视图查询参数
type CombinedQuery struct {
	From   string `form:"from"   binding:"required"`
	To     string `form:"to"     binding:"required"`
	Line   string `form:"line"`
	Status string `form:"status" binding:"omitempty,oneof=Pending Received"`
}

// DashboardRow 看板行
type DashboardRow struct {
	HandoverID    string     `json:"handover_id"`
	Line          string     `json:"line"`
	Shift         string     `json:"shift"`
	CrewGroup     string     `json:"crew_group"`
	SubmitterCode string     `json:"submitter_code"`
	SubmitterName string     `json:"submitter_name"`
	SubmittedAt   time.Time  `json:"submitted_at"`
	OKCount       int        `json:"ok_count"`
	NOKCount      int        `json:"nok_count"`
	NACount       int        `json:"na_count"`
	ReceiptStatus string     `json:"receipt_status"`
	ReceivedAt    *time.Time `json:"received_at"`
	ReceiverCode  *string    `json:"receiver_code"`
	ReceiverName  *string    `json:"receiver_name"`
}

// DashboardSummary 看板汇总
type DashboardSummary struct {
	Total    int `json:"total"`
	Received int `json:"received"`
	Pending  int `json:"pending"`
	NOKItems int `json:"nok_items"`
}

// DashboardResponse 看板响应
type DashboardResponse struct {
	Date    string           `json:"date"`
	Line    string           `json:"line,omitempty"`
	Summary DashboardSummary `json:"summary"`
	List    []DashboardRow   `json:"list"`
}

// CombinedCategory 合并视图中的检查项：交班状态 + 接班确认
type CombinedCategory struct {
	Category       string  `json:"category"`
	Status         string  `json:"status"`
	Comment        string  `json:"comment"`
	Confirmed      *bool   `json:"confirmed"`
	ReceiveComment *string `json:"receive_comment"`
}

// CombinedRow 合并视图行
type CombinedRow struct {
	DashboardRow
	ReportDate string             `json:"report_date"`
	Categories []CombinedCategory `json:"categories"`
}

// CombinedResponse 合并视图响应
type CombinedResponse struct {
	From    string           `json:"from"`
	To      string           `json:"to"`
	Summary DashboardSummary `json:"summary"`
	List    []CombinedRow    `json:"list"`
}

// RecentQuery 管理端最近交接单
type RecentQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// GetLimit 缺省 10 条
func (q *RecentQuery) GetLimit() int {
	if q.Limit <= 0 {
		return 10
	}
	return q.Limit
}
