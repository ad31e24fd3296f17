package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shift-handover/config"
	"shift-handover/internal/dto"
	"shift-handover/internal/model"
	"shift-handover/internal/repository"
	pkgerrors "shift-handover/pkg/errors"
	"shift-handover/pkg/retry"
)

// ── 接班模块业务错误 ──

var (
	ErrInvalidReceiveDate = errors.New("接班日期格式无效，应为 YYYY-MM-DD")
	ErrAckRequired        = errors.New("必须确认所有必填检查项")
)

// ClaimErrorKind 接班失败类别
type ClaimErrorKind int

const (
	// ClaimNotFound 交接单不存在
	ClaimNotFound ClaimErrorKind = iota + 1
	// ClaimAlreadyClaimed 已被他人接收，Receiver 为先到者
	ClaimAlreadyClaimed
	// ClaimTransient 重试次数内始终遇到瞬时错误（锁等待超时、死锁、连接抖动）
	ClaimTransient
	// ClaimFailed 不可重试的存储错误
	ClaimFailed
)

func (k ClaimErrorKind) String() string {
	switch k {
	case ClaimNotFound:
		return "not_found"
	case ClaimAlreadyClaimed:
		return "already_claimed"
	case ClaimTransient:
		return "transient"
	case ClaimFailed:
		return "failed"
	}
	return "unknown"
}

// ClaimError 接班失败
type ClaimError struct {
	Kind       ClaimErrorKind
	HandoverID string
	Receiver   *dto.ReceiverInfo
	Attempts   int
	Err        error
}

func (e *ClaimError) Error() string {
	switch e.Kind {
	case ClaimNotFound:
		return fmt.Sprintf("交接单 %s 不存在", e.HandoverID)
	case ClaimAlreadyClaimed:
		if e.Receiver != nil {
			return fmt.Sprintf("交接单 %s 已由 %s 于 %s 接收",
				e.HandoverID, e.Receiver.EmployeeCode, e.Receiver.ReceivedAt.Format(time.RFC3339))
		}
		return fmt.Sprintf("交接单 %s 已被接收", e.HandoverID)
	}
	return fmt.Sprintf("接班失败(%s, 尝试 %d 次): %v", e.Kind, e.Attempts, e.Err)
}

func (e *ClaimError) Unwrap() error { return e.Err }

// ClaimService 接班业务接口
type ClaimService interface {
	// Claim 至多一人接收成功；其余调用方得到 ClaimAlreadyClaimed 及先到者信息
	Claim(ctx context.Context, handoverID string, req *dto.ClaimRequest) (*dto.ClaimResponse, error)
	Status(ctx context.Context, handoverID string) (*dto.HandoverStatusResponse, error)
}

type claimService struct {
	repo     *repository.Repository
	retry    retry.Policy
	lockWait time.Duration
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewClaimService 创建 ClaimService 实例
func NewClaimService(cfg *config.Config, repo *repository.Repository, policy retry.Policy, logger *zap.Logger) ClaimService {
	return &claimService{
		repo:     repo,
		retry:    policy,
		lockWait: cfg.Claim.LockTimeout,
		loc:      cfg.Handover.Location(),
		now:      time.Now,
		logger:   logger,
	}
}

// ────────────────────── Claim ──────────────────────

func (s *claimService) Claim(ctx context.Context, handoverID string, req *dto.ClaimRequest) (*dto.ClaimResponse, error) {
	draft, err := s.buildReceive(handoverID, req)
	if err != nil {
		return nil, err
	}

	// 先做一次无锁读取：不存在时不进入加锁事务；同时取得"其他"备注用于确认校验。
	// 是否已被接收只以锁内读取为准
	current, err := s.repo.Handover.GetByHandoverID(ctx, handoverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ClaimError{Kind: ClaimNotFound, HandoverID: handoverID}
		}
		s.logger.Error("查询交接单失败", zap.String("handover_id", handoverID), zap.Error(err))
		return nil, s.classify(handoverID, 1, err)
	}
	if err := validateAcks(current, draft); err != nil {
		return nil, err
	}

	var saved model.Receive
	attempts := 0
	err = s.retry.Do(ctx, func(attempt int) error {
		attempts = attempt
		rec := *draft

		txErr := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			h, err := tx.Handover.GetByHandoverIDForUpdate(ctx, handoverID, s.lockWait)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					// 预读之后被管理员删除
					return &ClaimError{Kind: ClaimNotFound, HandoverID: handoverID}
				}
				return err
			}
			if h.IsReceived() {
				winner, err := tx.Receive.GetByHandoverID(ctx, handoverID)
				if err != nil {
					return fmt.Errorf("读取接班记录失败: %w", err)
				}
				return &ClaimError{Kind: ClaimAlreadyClaimed, HandoverID: handoverID, Receiver: receiverFromModel(winner)}
			}
			// 预读之后"其他"备注可能已变化，以锁内读取为准重新校验
			if err := validateAcks(h, &rec); err != nil {
				return err
			}

			rec.ReceivedAt = s.now()
			if err := tx.Receive.Create(ctx, &rec); err != nil {
				return err
			}
			return tx.Handover.UpdateReceiptStatus(ctx, handoverID, model.ReceiptReceived)
		})

		var claimErr *ClaimError
		switch {
		case txErr == nil:
			saved = rec
			return nil
		case errors.Is(txErr, ErrAckRequired):
			return retry.Permanent(txErr)
		case errors.As(txErr, &claimErr):
			return retry.Permanent(claimErr)
		case errors.Is(txErr, pkgerrors.ErrDuplicateKey):
			// 唯一约束兜底：行锁之外已有人写入接班记录
			return retry.Permanent(&ClaimError{Kind: ClaimAlreadyClaimed, HandoverID: handoverID})
		case pkgerrors.IsRetryable(txErr):
			s.logger.Warn("接班遇到瞬时错误，准备重试",
				zap.String("handover_id", handoverID), zap.Int("attempt", attempt), zap.Error(txErr))
			return txErr
		default:
			return retry.Permanent(txErr)
		}
	})
	if err != nil {
		if errors.Is(err, ErrAckRequired) {
			return nil, err
		}
		return nil, s.finishClaimError(ctx, handoverID, attempts, err)
	}

	s.logger.Info("交接单已接收",
		zap.String("handover_id", handoverID),
		zap.String("receiver", saved.EmployeeCode),
		zap.Int("attempts", attempts))

	return &dto.ClaimResponse{
		HandoverID:    handoverID,
		ReceiptStatus: model.ReceiptReceived,
		Receiver:      *receiverFromModel(&saved),
		Attempts:      attempts,
	}, nil
}

func (s *claimService) finishClaimError(ctx context.Context, handoverID string, attempts int, err error) error {
	var claimErr *ClaimError
	if !errors.As(err, &claimErr) {
		s.logger.Error("接班失败", zap.String("handover_id", handoverID), zap.Int("attempts", attempts), zap.Error(err))
		return s.classify(handoverID, attempts, err)
	}

	claimErr.Attempts = attempts
	if claimErr.Kind == ClaimAlreadyClaimed && claimErr.Receiver == nil {
		if rec, rerr := s.repo.Receive.GetByHandoverID(ctx, handoverID); rerr == nil {
			claimErr.Receiver = receiverFromModel(rec)
		}
	}
	s.logger.Info("接班被拒绝",
		zap.String("handover_id", handoverID), zap.Stringer("kind", claimErr.Kind))
	return claimErr
}

func (s *claimService) classify(handoverID string, attempts int, err error) *ClaimError {
	kind := ClaimFailed
	if pkgerrors.IsRetryable(err) {
		kind = ClaimTransient
	}
	return &ClaimError{Kind: kind, HandoverID: handoverID, Attempts: attempts, Err: err}
}

func (s *claimService) buildReceive(handoverID string, req *dto.ClaimRequest) (*model.Receive, error) {
	receiveDate := s.now().In(s.loc)
	receiveDate = time.Date(receiveDate.Year(), receiveDate.Month(), receiveDate.Day(), 0, 0, 0, 0, time.UTC)
	if req.ReceiveDate != "" {
		d, err := parseDate(req.ReceiveDate)
		if err != nil {
			return nil, ErrInvalidReceiveDate
		}
		receiveDate = d
	}

	rec := &model.Receive{
		HandoverID:   handoverID,
		EmployeeCode: req.EmployeeCode,
		EmployeeName: req.EmployeeName,
		Line:         req.Line,
		Shift:        req.Shift,
		CrewGroup:    req.CrewGroup,
		ReceiveDate:  receiveDate,
	}
	c := req.Categories
	rec.SetAck(model.Category5S, c.FiveS.Confirmed, c.FiveS.Comment)
	rec.SetAck(model.CategorySafety, c.Safety.Confirmed, c.Safety.Comment)
	rec.SetAck(model.CategoryQuality, c.Quality.Confirmed, c.Quality.Comment)
	rec.SetAck(model.CategoryEquipment, c.Equipment.Confirmed, c.Equipment.Comment)
	rec.SetAck(model.CategoryPlan, c.Plan.Confirmed, c.Plan.Comment)
	rec.SetAck(model.CategoryOther, c.Other.Confirmed, c.Other.Comment)
	return rec, nil
}

// validateAcks 必填 5 项必须确认；"其他"在交班或接班任一方填写了备注时也必须确认
func validateAcks(h *model.Handover, rec *model.Receive) error {
	for _, ack := range rec.Acks() {
		required := !ack.Category.Optional() ||
			h.CommentOther != "" || ack.Comment != ""
		if required && !ack.Confirmed {
			return fmt.Errorf("%w: %s", ErrAckRequired, ack.Category)
		}
	}
	return nil
}

// ────────────────────── Status ──────────────────────

func (s *claimService) Status(ctx context.Context, handoverID string) (*dto.HandoverStatusResponse, error) {
	row, err := s.repo.Dashboard.GetJoined(ctx, handoverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHandoverNotFound
		}
		s.logger.Error("查询接收状态失败", zap.String("handover_id", handoverID), zap.Error(err))
		return nil, storageError(err)
	}
	return &dto.HandoverStatusResponse{
		HandoverID:    row.HandoverID,
		ReceiptStatus: row.ReceiptStatus,
		Receiver:      receiverFromRow(row),
	}, nil
}
