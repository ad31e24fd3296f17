package dto

import "time"

// ── 交接模块 DTO ──

// CategoryInput 交班方单个检查项输入
type CategoryInput struct {
	Status  string `json:"status"  binding:"required,oneof=OK NOK NA"`
	Comment string `json:"comment" binding:"max=2000"`
}

// OptionalCategoryInput "其他" 检查项输入：状态缺省为 NA
type OptionalCategoryInput struct {
	Status  string `json:"status"  binding:"omitempty,oneof=OK NOK NA"`
	Comment string `json:"comment" binding:"max=2000"`
}

// HandoverCategories 6 个固定检查项
type HandoverCategories struct {
	FiveS     CategoryInput         `json:"5s"`
	Safety    CategoryInput         `json:"safety"`
	Quality   CategoryInput         `json:"quality"`
	Equipment CategoryInput         `json:"equipment"`
	Plan      CategoryInput         `json:"plan"`
	Other     OptionalCategoryInput `json:"other"`
}

// SubmitHandoverRequest 提交交接单请求（不含编号，编号由服务端生成）
type SubmitHandoverRequest struct {
	EmployeeCode string             `json:"employee_code" binding:"required,len=6,numeric"`
	EmployeeName string             `json:"employee_name" binding:"required,max=200"`
	Line         string             `json:"line"          binding:"required,max=100"`
	Shift        string             `json:"shift"         binding:"required,max=50"`
	CrewGroup    string             `json:"crew_group"    binding:"required,max=10"`
	ReportDate   string             `json:"report_date"   binding:"required"` // YYYY-MM-DD
	Categories   HandoverCategories `json:"categories"`
}

// LatestPendingQuery 查询某产线某日最新未接收交接单
type LatestPendingQuery struct {
	Line string `form:"line" binding:"required"`
	Date string `form:"date" binding:"required"` // YYYY-MM-DD
}

// ── 响应 ──

// SubmitHandoverResponse 提交结果
type SubmitHandoverResponse struct {
	HandoverID    string    `json:"handover_id"`
	ReceiptStatus string    `json:"receipt_status"`
	SubmittedAt   time.Time `json:"submitted_at"`
	Attempts      int       `json:"attempts"`
}

// CategoryItem 检查项（固定顺序输出）
type CategoryItem struct {
	Category string `json:"category"`
	Status   string `json:"status"`
	Comment  string `json:"comment"`
}

// HandoverResponse 交接单详情
type HandoverResponse struct {
	HandoverID    string         `json:"handover_id"`
	EmployeeCode  string         `json:"employee_code"`
	EmployeeName  string         `json:"employee_name"`
	Line          string         `json:"line"`
	Shift         string         `json:"shift"`
	CrewGroup     string         `json:"crew_group"`
	ReportDate    string         `json:"report_date"`
	SubmittedAt   time.Time      `json:"submitted_at"`
	ReceiptStatus string         `json:"receipt_status"`
	Categories    []CategoryItem `json:"categories"`
	Receiver      *ReceiverInfo  `json:"receiver,omitempty"`
}

// NextIDResponse 预览下一个交接单号
type NextIDResponse struct {
	HandoverID string `json:"handover_id"`
}

