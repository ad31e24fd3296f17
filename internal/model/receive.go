package model

import "time"

// Receive 接班记录，对应 receives
// 每个交接单至多一条（uq_receives_handover_id），删除交接单时级联删除
type Receive struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"              json:"-"`
	HandoverID   string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"handover_id"`
	EmployeeCode string    `gorm:"type:varchar(6);not null"              json:"employee_code"`
	EmployeeName string    `gorm:"type:varchar(200);not null"            json:"employee_name"`
	Line         string    `gorm:"type:varchar(100);not null;default:''" json:"line"`
	Shift        string    `gorm:"type:varchar(50);not null;default:''"  json:"shift"`
	CrewGroup    string    `gorm:"type:varchar(10);not null;default:''"  json:"crew_group"`
	ReceiveDate  time.Time `gorm:"type:date;not null"                    json:"receive_date"`
	ReceivedAt   time.Time `gorm:"not null"                              json:"received_at"`

	Confirmed5S        bool   `gorm:"column:confirmed_5s;not null;default:false"        json:"confirmed_5s"`
	Comment5S          string `gorm:"column:comment_5s;type:text;not null;default:''"   json:"comment_5s"`
	ConfirmedSafety    bool   `gorm:"column:confirmed_safety;not null;default:false"    json:"confirmed_safety"`
	CommentSafety      string `gorm:"column:comment_safety;type:text;not null;default:''" json:"comment_safety"`
	ConfirmedQuality   bool   `gorm:"column:confirmed_quality;not null;default:false"   json:"confirmed_quality"`
	CommentQuality     string `gorm:"column:comment_quality;type:text;not null;default:''" json:"comment_quality"`
	ConfirmedEquipment bool   `gorm:"column:confirmed_equipment;not null;default:false" json:"confirmed_equipment"`
	CommentEquipment   string `gorm:"column:comment_equipment;type:text;not null;default:''" json:"comment_equipment"`
	ConfirmedPlan      bool   `gorm:"column:confirmed_plan;not null;default:false"      json:"confirmed_plan"`
	CommentPlan        string `gorm:"column:comment_plan;type:text;not null;default:''" json:"comment_plan"`
	ConfirmedOther     bool   `gorm:"column:confirmed_other;not null;default:false"     json:"confirmed_other"`
	CommentOther       string `gorm:"column:comment_other;type:text;not null;default:''" json:"comment_other"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (Receive) TableName() string { return "receives" }

// CategoryAck 单个检查项的确认与备注
type CategoryAck struct {
	Category  Category
	Confirmed bool
	Comment   string
}

// Acks 按固定顺序返回 6 个确认项
func (r *Receive) Acks() []CategoryAck {
	return []CategoryAck{
		{Category5S, r.Confirmed5S, r.Comment5S},
		{CategorySafety, r.ConfirmedSafety, r.CommentSafety},
		{CategoryQuality, r.ConfirmedQuality, r.CommentQuality},
		{CategoryEquipment, r.ConfirmedEquipment, r.CommentEquipment},
		{CategoryPlan, r.ConfirmedPlan, r.CommentPlan},
		{CategoryOther, r.ConfirmedOther, r.CommentOther},
	}
}

// SetAck 写入单个确认项
func (r *Receive) SetAck(c Category, confirmed bool, comment string) {
	switch c {
	case Category5S:
		r.Confirmed5S, r.Comment5S = confirmed, comment
	case CategorySafety:
		r.ConfirmedSafety, r.CommentSafety = confirmed, comment
	case CategoryQuality:
		r.ConfirmedQuality, r.CommentQuality = confirmed, comment
	case CategoryEquipment:
		r.ConfirmedEquipment, r.CommentEquipment = confirmed, comment
	case CategoryPlan:
		r.ConfirmedPlan, r.CommentPlan = confirmed, comment
	case CategoryOther:
		r.ConfirmedOther, r.CommentOther = confirmed, comment
	}
}
