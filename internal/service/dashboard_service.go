package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"shift-handover/config"
	"shift-handover/internal/dto"
	"shift-handover/internal/model"
	"shift-handover/internal/repository"
)

// ── 看板模块业务错误 ──

var (
	ErrInvalidDate      = errors.New("日期格式无效，应为 YYYY-MM-DD")
	ErrInvalidDateRange = errors.New("日期范围无效：开始日期不能晚于结束日期，且跨度不超过 366 天")
)

const maxCombinedRangeDays = 366

// DashboardService 看板业务接口（只读，不加锁）
type DashboardService interface {
	ListDashboard(ctx context.Context, q *dto.DashboardQuery) (*dto.DashboardResponse, error)
	ListCombined(ctx context.Context, q *dto.CombinedQuery) (*dto.CombinedResponse, error)
}

type dashboardService struct {
	repo   *repository.Repository
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewDashboardService 创建 DashboardService 实例
func NewDashboardService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) DashboardService {
	return &dashboardService{
		repo:   repo,
		loc:    cfg.Handover.Location(),
		now:    time.Now,
		logger: logger,
	}
}

// ────────────────────── ListDashboard ──────────────────────

func (s *dashboardService) ListDashboard(ctx context.Context, q *dto.DashboardQuery) (*dto.DashboardResponse, error) {
	date := q.Date
	if date == "" {
		date = s.now().In(s.loc).Format(dateLayout)
	} else if _, err := parseDate(date); err != nil {
		return nil, ErrInvalidDate
	}

	rows, err := s.repo.Dashboard.ListJoined(ctx, repository.JoinFilter{From: date, To: date, Line: q.Line})
	if err != nil {
		s.logger.Error("查询看板失败", zap.String("date", date), zap.Error(err))
		return nil, storageError(err)
	}

	resp := &dto.DashboardResponse{
		Date: date,
		Line: q.Line,
		List: make([]dto.DashboardRow, 0, len(rows)),
	}
	for i := range rows {
		row := toDashboardRow(&rows[i])
		resp.List = append(resp.List, row)
		addToSummary(&resp.Summary, &row)
	}
	return resp, nil
}

// ────────────────────── ListCombined ──────────────────────

func (s *dashboardService) ListCombined(ctx context.Context, q *dto.CombinedQuery) (*dto.CombinedResponse, error) {
	from, err := parseDate(q.From)
	if err != nil {
		return nil, ErrInvalidDate
	}
	to, err := parseDate(q.To)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if from.After(to) || to.Sub(from) > maxCombinedRangeDays*24*time.Hour {
		return nil, ErrInvalidDateRange
	}

	rows, err := s.repo.Dashboard.ListJoined(ctx, repository.JoinFilter{
		From:   q.From,
		To:     q.To,
		Line:   q.Line,
		Status: q.Status,
	})
	if err != nil {
		s.logger.Error("查询合并视图失败", zap.String("from", q.From), zap.String("to", q.To), zap.Error(err))
		return nil, storageError(err)
	}

	resp := &dto.CombinedResponse{
		From: q.From,
		To:   q.To,
		List: make([]dto.CombinedRow, 0, len(rows)),
	}
	for i := range rows {
		row := &rows[i]
		combined := dto.CombinedRow{
			DashboardRow: toDashboardRow(row),
			ReportDate:   row.ReportDate.Format(dateLayout),
			Categories:   combinedCategories(row),
		}
		resp.List = append(resp.List, combined)
		addToSummary(&resp.Summary, &combined.DashboardRow)
	}
	return resp, nil
}

// ────────────────────── 辅助函数 ──────────────────────

func toDashboardRow(row *repository.HandoverReceiveRow) dto.DashboardRow {
	ok, nok, na := row.Tally()
	out := dto.DashboardRow{
		HandoverID:    row.HandoverID,
		Line:          row.Line,
		Shift:         row.Shift,
		CrewGroup:     row.CrewGroup,
		SubmitterCode: row.EmployeeCode,
		SubmitterName: row.EmployeeName,
		SubmittedAt:   row.SubmittedAt,
		OKCount:       ok,
		NOKCount:      nok,
		NACount:       na,
		ReceiptStatus: row.ReceiptStatus,
	}
	// Pending 行不带接班人信息，即使读到了残留数据
	if row.ReceiptStatus == model.ReceiptReceived {
		out.ReceivedAt = row.ReceivedAt
		out.ReceiverCode = row.ReceiverCode
		out.ReceiverName = row.ReceiverName
	}
	return out
}

func combinedCategories(row *repository.HandoverReceiveRow) []dto.CombinedCategory {
	acks := []struct {
		confirmed *bool
		comment   *string
	}{
		{row.Ack5S, row.AckComment5S},
		{row.AckSafety, row.AckCommentSafety},
		{row.AckQuality, row.AckCommentQuality},
		{row.AckEquipment, row.AckCommentEquipment},
		{row.AckPlan, row.AckCommentPlan},
		{row.AckOther, row.AckCommentOther},
	}
	checks := row.Checks()
	out := make([]dto.CombinedCategory, len(checks))
	for i, c := range checks {
		out[i] = dto.CombinedCategory{
			Category:       string(c.Category),
			Status:         c.Status,
			Comment:        c.Comment,
			Confirmed:      acks[i].confirmed,
			ReceiveComment: acks[i].comment,
		}
	}
	return out
}

func addToSummary(sum *dto.DashboardSummary, row *dto.DashboardRow) {
	sum.Total++
	if row.ReceiptStatus == model.ReceiptReceived {
		sum.Received++
	} else {
		sum.Pending++
	}
	sum.NOKItems += row.NOKCount
}
