package model

import "time"

// AuditModel 通用时间戳字段
type AuditModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// ── 检查项 ──

// Category 交接检查项（固定 6 项，顺序固定）
type Category string

const (
	Category5S        Category = "5S"
	CategorySafety    Category = "Safety"
	CategoryQuality   Category = "Quality"
	CategoryEquipment Category = "Equipment"
	CategoryPlan      Category = "Plan"
	CategoryOther     Category = "Other"
)

// Categories 检查项的固定顺序
var Categories = []Category{
	Category5S,
	CategorySafety,
	CategoryQuality,
	CategoryEquipment,
	CategoryPlan,
	CategoryOther,
}

// Optional "其他" 为可选项：备注可为空，且为空时接班方无需确认
func (c Category) Optional() bool { return c == CategoryOther }

// 检查项状态
const (
	StatusOK  = "OK"
	StatusNOK = "NOK"
	StatusNA  = "NA"
)

// ValidStatus 判断是否为合法检查项状态
func ValidStatus(s string) bool {
	return s == StatusOK || s == StatusNOK || s == StatusNA
}

// 交接单接收状态
const (
	ReceiptPending  = "Pending"
	ReceiptReceived = "Received"
)

