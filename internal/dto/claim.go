package dto

import "time"

// ── 接班模块 DTO ──

// ConfirmInput 接班方单个检查项确认
type ConfirmInput struct {
	Confirmed bool   `json:"confirmed"`
	Comment   string `json:"comment" binding:"max=2000"`
}

// ReceiveCategories 6 个固定确认项
type ReceiveCategories struct {
	FiveS     ConfirmInput `json:"5s"`
	Safety    ConfirmInput `json:"safety"`
	Quality   ConfirmInput `json:"quality"`
	Equipment ConfirmInput `json:"equipment"`
	Plan      ConfirmInput `json:"plan"`
	Other     ConfirmInput `json:"other"`
}

// ClaimRequest 接班请求
type ClaimRequest struct {
	EmployeeCode string            `json:"employee_code" binding:"required,len=6,numeric"`
	EmployeeName string            `json:"employee_name" binding:"required,max=200"`
	Line         string            `json:"line"          binding:"max=100"`
	Shift        string            `json:"shift"         binding:"max=50"`
	CrewGroup    string            `json:"crew_group"    binding:"max=10"`
	ReceiveDate  string            `json:"receive_date"` // YYYY-MM-DD，缺省为当天
	Categories   ReceiveCategories `json:"categories"`
}

// ── 响应 ──

// ReceiverInfo 接班人信息
type ReceiverInfo struct {
	EmployeeCode string    `json:"employee_code"`
	EmployeeName string    `json:"employee_name"`
	ReceivedAt   time.Time `json:"received_at"`
}

// ClaimResponse 接班成功结果
type ClaimResponse struct {
	HandoverID    string       `json:"handover_id"`
	ReceiptStatus string       `json:"receipt_status"`
	Receiver      ReceiverInfo `json:"receiver"`
	Attempts      int          `json:"attempts"`
}

// HandoverStatusResponse 交接单接收状态；Pending 时 Receiver 为空
type HandoverStatusResponse struct {
	HandoverID    string        `json:"handover_id"`
	ReceiptStatus string        `json:"receipt_status"`
	Receiver      *ReceiverInfo `json:"receiver,omitempty"`
}
