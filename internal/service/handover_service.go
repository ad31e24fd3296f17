package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shift-handover/internal/dto"
	"shift-handover/internal/model"
	"shift-handover/internal/repository"
	pkgerrors "shift-handover/pkg/errors"
	"shift-handover/pkg/retry"
)

// ── 交接模块业务错误 ──

var (
	ErrHandoverNotFound  = errors.New("交接单不存在")
	ErrInvalidReportDate = errors.New("报告日期格式无效，应为 YYYY-MM-DD")
	ErrCommentRequired   = errors.New("检查项状态为 NOK 或 NA 时必须填写备注")
	ErrInvalidStatus     = errors.New("检查项状态只能是 OK、NOK 或 NA")
	// ErrStorage 未归类的存储错误（不可重试），原始错误通过 %w 保留
	ErrStorage = errors.New("数据存储失败")
)

// SubmitErrorKind 提交失败类别
type SubmitErrorKind int

const (
	// SubmitDuplicateExhausted 重试次数内始终编号冲突
	SubmitDuplicateExhausted SubmitErrorKind = iota + 1
	// SubmitTransientExhausted 重试次数内始终遇到瞬时错误
	SubmitTransientExhausted
	// SubmitPersistent 不可重试的存储错误
	SubmitPersistent
)

func (k SubmitErrorKind) String() string {
	switch k {
	case SubmitDuplicateExhausted:
		return "duplicate_exhausted"
	case SubmitTransientExhausted:
		return "transient_exhausted"
	case SubmitPersistent:
		return "persistent"
	}
	return "unknown"
}

// SubmitError 提交交接单失败；Retryable 为 true 时客户端可稍后重试
type SubmitError struct {
	Kind     SubmitErrorKind
	Attempts int
	Err      error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("提交交接单失败(%s, 尝试 %d 次): %v", e.Kind, e.Attempts, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// Retryable 是否值得客户端稍后重试
func (e *SubmitError) Retryable() bool { return e.Kind != SubmitPersistent }

// HandoverService 交接单业务接口
type HandoverService interface {
	Submit(ctx context.Context, req *dto.SubmitHandoverRequest) (*dto.SubmitHandoverResponse, error)
	Get(ctx context.Context, handoverID string) (*dto.HandoverResponse, error)
	GetLatestPending(ctx context.Context, q *dto.LatestPendingQuery) (*dto.HandoverResponse, error)
}

type handoverService struct {
	repo   *repository.Repository
	idGen  IDGenerator
	retry  retry.Policy
	now    func() time.Time
	logger *zap.Logger
}

// NewHandoverService 创建 HandoverService 实例
func NewHandoverService(repo *repository.Repository, idGen IDGenerator, policy retry.Policy, logger *zap.Logger) HandoverService {
	return &handoverService{
		repo:   repo,
		idGen:  idGen,
		retry:  policy,
		now:    time.Now,
		logger: logger,
	}
}

// ────────────────────── Submit ──────────────────────

// Submit 每次尝试为一个事务：锁内发号 → 插入（Pending）→ 提交。
// 编号冲突时重新发号重试，瞬时错误时原样重试，其他错误立即返回
func (s *handoverService) Submit(ctx context.Context, req *dto.SubmitHandoverRequest) (*dto.SubmitHandoverResponse, error) {
	draft, err := buildHandover(req)
	if err != nil {
		return nil, err
	}

	var saved model.Handover
	attempts := 0
	err = s.retry.Do(ctx, func(attempt int) error {
		attempts = attempt
		rec := *draft

		txErr := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			rec.HandoverID = s.idGen.Next(ctx, tx)
			rec.SubmittedAt = s.now()
			return tx.Handover.Create(ctx, &rec)
		})

		switch {
		case txErr == nil:
			saved = rec
			return nil
		case errors.Is(txErr, pkgerrors.ErrDuplicateKey):
			s.logger.Warn("交接单号冲突，重新发号",
				zap.String("handover_id", rec.HandoverID), zap.Int("attempt", attempt))
			return txErr
		case pkgerrors.IsRetryable(txErr):
			s.logger.Warn("提交交接单遇到瞬时错误，准备重试",
				zap.Int("attempt", attempt), zap.Error(txErr))
			return txErr
		default:
			return retry.Permanent(txErr)
		}
	})
	if err != nil {
		kind := SubmitPersistent
		switch {
		case errors.Is(err, pkgerrors.ErrDuplicateKey):
			kind = SubmitDuplicateExhausted
		case pkgerrors.IsRetryable(err):
			kind = SubmitTransientExhausted
		}
		s.logger.Error("提交交接单失败",
			zap.String("line", req.Line), zap.Stringer("kind", kind),
			zap.Int("attempts", attempts), zap.Error(err))
		return nil, &SubmitError{Kind: kind, Attempts: attempts, Err: err}
	}

	s.logger.Info("交接单已提交",
		zap.String("handover_id", saved.HandoverID),
		zap.String("line", saved.Line),
		zap.Int("attempts", attempts))

	return &dto.SubmitHandoverResponse{
		HandoverID:    saved.HandoverID,
		ReceiptStatus: saved.ReceiptStatus,
		SubmittedAt:   saved.SubmittedAt,
		Attempts:      attempts,
	}, nil
}

// buildHandover 校验并组装待插入记录（不含编号与提交时间）
func buildHandover(req *dto.SubmitHandoverRequest) (*model.Handover, error) {
	reportDate, err := parseDate(req.ReportDate)
	if err != nil {
		return nil, ErrInvalidReportDate
	}

	h := &model.Handover{
		EmployeeCode:  req.EmployeeCode,
		EmployeeName:  req.EmployeeName,
		Line:          req.Line,
		Shift:         req.Shift,
		CrewGroup:     req.CrewGroup,
		ReportDate:    reportDate,
		ReceiptStatus: model.ReceiptPending,
	}

	c := req.Categories
	inputs := []struct {
		category model.Category
		status   string
		comment  string
	}{
		{model.Category5S, c.FiveS.Status, c.FiveS.Comment},
		{model.CategorySafety, c.Safety.Status, c.Safety.Comment},
		{model.CategoryQuality, c.Quality.Status, c.Quality.Comment},
		{model.CategoryEquipment, c.Equipment.Status, c.Equipment.Comment},
		{model.CategoryPlan, c.Plan.Status, c.Plan.Comment},
		{model.CategoryOther, c.Other.Status, c.Other.Comment},
	}
	for _, in := range inputs {
		status := in.status
		if in.category.Optional() && status == "" {
			status = model.StatusNA
		}
		if !model.ValidStatus(status) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, in.category)
		}
		if !in.category.Optional() && status != model.StatusOK && in.comment == "" {
			return nil, fmt.Errorf("%w: %s", ErrCommentRequired, in.category)
		}
		h.SetCheck(in.category, status, in.comment)
	}
	return h, nil
}

// ────────────────────── Get ──────────────────────

func (s *handoverService) Get(ctx context.Context, handoverID string) (*dto.HandoverResponse, error) {
	row, err := s.repo.Dashboard.GetJoined(ctx, handoverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHandoverNotFound
		}
		s.logger.Error("查询交接单失败", zap.String("handover_id", handoverID), zap.Error(err))
		return nil, storageError(err)
	}
	resp := toHandoverResponse(&row.Handover)
	resp.Receiver = receiverFromRow(row)
	return resp, nil
}

// ────────────────────── GetLatestPending ──────────────────────

func (s *handoverService) GetLatestPending(ctx context.Context, q *dto.LatestPendingQuery) (*dto.HandoverResponse, error) {
	if _, err := parseDate(q.Date); err != nil {
		return nil, ErrInvalidReportDate
	}
	h, err := s.repo.Handover.GetLatestPending(ctx, q.Line, q.Date)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHandoverNotFound
		}
		s.logger.Error("查询待接收交接单失败", zap.String("line", q.Line), zap.Error(err))
		return nil, storageError(err)
	}
	return toHandoverResponse(h), nil
}

// ────────────────────── 辅助函数 ──────────────────────

const dateLayout = "2006-01-02"

// parseDate 解析 YYYY-MM-DD 为 UTC 零点，date 列按年月日存储
func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// storageError 瞬时错误保持可识别，其余统一包装为 ErrStorage
func storageError(err error) error {
	if pkgerrors.IsRetryable(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

func toHandoverResponse(h *model.Handover) *dto.HandoverResponse {
	resp := &dto.HandoverResponse{
		HandoverID:    h.HandoverID,
		EmployeeCode:  h.EmployeeCode,
		EmployeeName:  h.EmployeeName,
		Line:          h.Line,
		Shift:         h.Shift,
		CrewGroup:     h.CrewGroup,
		ReportDate:    h.ReportDate.Format(dateLayout),
		SubmittedAt:   h.SubmittedAt,
		ReceiptStatus: h.ReceiptStatus,
	}
	for _, c := range h.Checks() {
		resp.Categories = append(resp.Categories, dto.CategoryItem{
			Category: string(c.Category),
			Status:   c.Status,
			Comment:  c.Comment,
		})
	}
	return resp
}

func receiverFromRow(row *repository.HandoverReceiveRow) *dto.ReceiverInfo {
	if row.ReceiverCode == nil || row.ReceivedAt == nil {
		return nil
	}
	info := &dto.ReceiverInfo{
		EmployeeCode: *row.ReceiverCode,
		ReceivedAt:   *row.ReceivedAt,
	}
	if row.ReceiverName != nil {
		info.EmployeeName = *row.ReceiverName
	}
	return info
}

func receiverFromModel(r *model.Receive) *dto.ReceiverInfo {
	if r == nil {
		return nil
	}
	return &dto.ReceiverInfo{
		EmployeeCode: r.EmployeeCode,
		EmployeeName: r.EmployeeName,
		ReceivedAt:   r.ReceivedAt,
	}
}
