package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shift-handover/internal/model"
)

// HandoverReceiveRow 交接单 LEFT JOIN 接班记录后的一行；未接收时 Ack* 与 Receiver* 全部为 nil
type HandoverReceiveRow struct {
	model.Handover

	ReceiverCode *string    `gorm:"column:receiver_code"`
	ReceiverName *string    `gorm:"column:receiver_name"`
	ReceivedAt   *time.Time `gorm:"column:received_at"`

	Ack5S               *bool   `gorm:"column:ack_5s"`
	AckComment5S        *string `gorm:"column:ack_comment_5s"`
	AckSafety           *bool   `gorm:"column:ack_safety"`
	AckCommentSafety    *string `gorm:"column:ack_comment_safety"`
	AckQuality          *bool   `gorm:"column:ack_quality"`
	AckCommentQuality   *string `gorm:"column:ack_comment_quality"`
	AckEquipment        *bool   `gorm:"column:ack_equipment"`
	AckCommentEquipment *string `gorm:"column:ack_comment_equipment"`
	AckPlan             *bool   `gorm:"column:ack_plan"`
	AckCommentPlan      *string `gorm:"column:ack_comment_plan"`
	AckOther            *bool   `gorm:"column:ack_other"`
	AckCommentOther     *string `gorm:"column:ack_comment_other"`
}

// JoinFilter 看板查询条件；From/To 为 YYYY-MM-DD（闭区间），Line/Status 为空表示不过滤
type JoinFilter struct {
	From   string
	To     string
	Line   string
	Status string
}

// DashboardRepository 看板只读查询接口（不加锁）
type DashboardRepository interface {
	ListJoined(ctx context.Context, f JoinFilter) ([]HandoverReceiveRow, error)
	// GetJoined 单条语句读取交接单及其接班记录，两者来自同一快照
	GetJoined(ctx context.Context, handoverID string) (*HandoverReceiveRow, error)
}

type dashboardRepo struct {
	db *gorm.DB
}

// NewDashboardRepo 创建 DashboardRepository 实例
func NewDashboardRepo(db *gorm.DB) DashboardRepository {
	return &dashboardRepo{db: db}
}

const joinedColumns = `handovers.*,
	r.employee_code AS receiver_code, r.employee_name AS receiver_name, r.received_at AS received_at,
	r.confirmed_5s AS ack_5s, r.comment_5s AS ack_comment_5s,
	r.confirmed_safety AS ack_safety, r.comment_safety AS ack_comment_safety,
	r.confirmed_quality AS ack_quality, r.comment_quality AS ack_comment_quality,
	r.confirmed_equipment AS ack_equipment, r.comment_equipment AS ack_comment_equipment,
	r.confirmed_plan AS ack_plan, r.comment_plan AS ack_comment_plan,
	r.confirmed_other AS ack_other, r.comment_other AS ack_comment_other`

func (r *dashboardRepo) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("handovers").
		Select(joinedColumns).
		Joins("LEFT JOIN receives r ON r.handover_id = handovers.handover_id")
}

func (r *dashboardRepo) ListJoined(ctx context.Context, f JoinFilter) ([]HandoverReceiveRow, error) {
	query := r.joined(ctx).
		Where("handovers.report_date BETWEEN CAST(? AS DATE) AND CAST(? AS DATE)", f.From, f.To)
	if f.Line != "" {
		query = query.Where("handovers.line = ?", f.Line)
	}
	if f.Status != "" {
		query = query.Where("handovers.receipt_status = ?", f.Status)
	}

	var rows []HandoverReceiveRow
	err := query.
		Order("handovers.report_date DESC, handovers.submitted_at DESC").
		Scan(&rows).Error
	return rows, translateError(err)
}

func (r *dashboardRepo) GetJoined(ctx context.Context, handoverID string) (*HandoverReceiveRow, error) {
	var rows []HandoverReceiveRow
	err := r.joined(ctx).
		Where("handovers.handover_id = ?", handoverID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}
