package model

import "time"

// Handover 交接单，对应 handovers
// handover_id 为对外编号（PREFIX-YYYYMMDD-NNNN），receives 通过它关联，而非内部主键
type Handover struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"                        json:"-"`
	HandoverID    string    `gorm:"type:varchar(50);uniqueIndex;not null"            json:"handover_id"`
	EmployeeCode  string    `gorm:"type:varchar(6);not null"                         json:"employee_code"`
	EmployeeName  string    `gorm:"type:varchar(200);not null"                       json:"employee_name"`
	Line          string    `gorm:"type:varchar(100);not null;index"                 json:"line"`
	Shift         string    `gorm:"type:varchar(50);not null"                        json:"shift"`
	CrewGroup     string    `gorm:"type:varchar(10);not null"                        json:"crew_group"`
	ReportDate    time.Time `gorm:"type:date;not null;index"                         json:"report_date"`
	SubmittedAt   time.Time `gorm:"not null"                                         json:"submitted_at"`
	ReceiptStatus string    `gorm:"type:varchar(20);not null;default:'Pending';index" json:"receipt_status"` // Pending | Received

	Status5S         string `gorm:"column:status_5s;type:varchar(10);not null"        json:"status_5s"`
	Comment5S        string `gorm:"column:comment_5s;type:text;not null;default:''"   json:"comment_5s"`
	StatusSafety     string `gorm:"column:status_safety;type:varchar(10);not null"    json:"status_safety"`
	CommentSafety    string `gorm:"column:comment_safety;type:text;not null;default:''" json:"comment_safety"`
	StatusQuality    string `gorm:"column:status_quality;type:varchar(10);not null"   json:"status_quality"`
	CommentQuality   string `gorm:"column:comment_quality;type:text;not null;default:''" json:"comment_quality"`
	StatusEquipment  string `gorm:"column:status_equipment;type:varchar(10);not null" json:"status_equipment"`
	CommentEquipment string `gorm:"column:comment_equipment;type:text;not null;default:''" json:"comment_equipment"`
	StatusPlan       string `gorm:"column:status_plan;type:varchar(10);not null"      json:"status_plan"`
	CommentPlan      string `gorm:"column:comment_plan;type:text;not null;default:''" json:"comment_plan"`
	StatusOther      string `gorm:"column:status_other;type:varchar(10);not null"     json:"status_other"`
	CommentOther     string `gorm:"column:comment_other;type:text;not null;default:''" json:"comment_other"`

	AuditModel

	// 关联（仅查询时按需加载）
	Receive *Receive `gorm:"foreignKey:HandoverID;references:HandoverID;constraint:OnDelete:CASCADE" json:"receive,omitempty"`
}

// TableName 指定表名
func (Handover) TableName() string { return "handovers" }

// CategoryCheck 单个检查项的状态与备注
type CategoryCheck struct {
	Category Category
	Status   string
	Comment  string
}

// Checks 按固定顺序返回 6 个检查项
func (h *Handover) Checks() []CategoryCheck {
	return []CategoryCheck{
		{Category5S, h.Status5S, h.Comment5S},
		{CategorySafety, h.StatusSafety, h.CommentSafety},
		{CategoryQuality, h.StatusQuality, h.CommentQuality},
		{CategoryEquipment, h.StatusEquipment, h.CommentEquipment},
		{CategoryPlan, h.StatusPlan, h.CommentPlan},
		{CategoryOther, h.StatusOther, h.CommentOther},
	}
}

// SetCheck 写入单个检查项
func (h *Handover) SetCheck(c Category, status, comment string) {
	switch c {
	case Category5S:
		h.Status5S, h.Comment5S = status, comment
	case CategorySafety:
		h.StatusSafety, h.CommentSafety = status, comment
	case CategoryQuality:
		h.StatusQuality, h.CommentQuality = status, comment
	case CategoryEquipment:
		h.StatusEquipment, h.CommentEquipment = status, comment
	case CategoryPlan:
		h.StatusPlan, h.CommentPlan = status, comment
	case CategoryOther:
		h.StatusOther, h.CommentOther = status, comment
	}
}

// Tally 统计 OK / NOK / NA 数量
func (h *Handover) Tally() (ok, nok, na int) {
	for _, c := range h.Checks() {
		switch c.Status {
		case StatusOK:
			ok++
		case StatusNOK:
			nok++
		case StatusNA:
			na++
		}
	}
	return
}

// IsReceived 是否已被接收
func (h *Handover) IsReceived() bool { return h.ReceiptStatus == ReceiptReceived }

