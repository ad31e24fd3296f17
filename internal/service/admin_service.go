package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shift-handover/config"
	"shift-handover/internal/dto"
	"shift-handover/internal/model"
	"shift-handover/internal/repository"
	pkgerrors "shift-handover/pkg/errors"
	"shift-handover/pkg/retry"
)

// ── 管理模块业务错误 ──

var (
	ErrHandoverNotReceived = errors.New("交接单尚未被接收")
)

// AdminService 管理端操作：撤销接收、删除交接单、最近交接单
// 写操作与接班使用同一把行锁，不会与进行中的接班交错
type AdminService interface {
	RevokeReceive(ctx context.Context, handoverID, operator string) error
	DeleteHandover(ctx context.Context, handoverID, operator string) error
	ListRecent(ctx context.Context, q *dto.RecentQuery) ([]dto.HandoverResponse, error)
}

type adminService struct {
	cfg    *config.Config
	repo   *repository.Repository
	retry  retry.Policy
	logger *zap.Logger
}

// NewAdminService 创建 AdminService 实例
func NewAdminService(cfg *config.Config, repo *repository.Repository, policy retry.Policy, logger *zap.Logger) AdminService {
	return &adminService{cfg: cfg, repo: repo, retry: policy, logger: logger}
}

// ────────────────────── RevokeReceive ──────────────────────

// RevokeReceive 删除接班记录并将交接单重置为 Pending
func (s *adminService) RevokeReceive(ctx context.Context, handoverID, operator string) error {
	err := s.lockedWrite(ctx, handoverID, func(tx *repository.Repository, h *model.Handover) error {
		if !h.IsReceived() {
			return ErrHandoverNotReceived
		}
		if _, err := tx.Receive.DeleteByHandoverID(ctx, handoverID); err != nil {
			return err
		}
		return tx.Handover.UpdateReceiptStatus(ctx, handoverID, model.ReceiptPending)
	})
	if err != nil {
		return s.finish("撤销接收失败", handoverID, err)
	}

	s.logger.Info("接收已撤销", zap.String("handover_id", handoverID), zap.String("operator", operator))
	return nil
}

// ────────────────────── DeleteHandover ──────────────────────

// DeleteHandover 删除交接单，接班记录由外键级联删除
func (s *adminService) DeleteHandover(ctx context.Context, handoverID, operator string) error {
	err := s.lockedWrite(ctx, handoverID, func(tx *repository.Repository, h *model.Handover) error {
		n, err := tx.Handover.Delete(ctx, handoverID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrHandoverNotFound
		}
		return nil
	})
	if err != nil {
		return s.finish("删除交接单失败", handoverID, err)
	}

	s.logger.Info("交接单已删除", zap.String("handover_id", handoverID), zap.String("operator", operator))
	return nil
}

// ────────────────────── ListRecent ──────────────────────

func (s *adminService) ListRecent(ctx context.Context, q *dto.RecentQuery) ([]dto.HandoverResponse, error) {
	list, err := s.repo.Handover.ListRecent(ctx, q.GetLimit())
	if err != nil {
		s.logger.Error("查询最近交接单失败", zap.Error(err))
		return nil, storageError(err)
	}

	result := make([]dto.HandoverResponse, 0, len(list))
	for i := range list {
		result = append(result, *toHandoverResponse(&list[i]))
	}
	return result, nil
}

// ────────────────────── 辅助函数 ──────────────────────

// lockedWrite 事务内先 SELECT ... FOR UPDATE 锁定交接单再执行 fn，瞬时错误按策略重试
func (s *adminService) lockedWrite(ctx context.Context, handoverID string, fn func(tx *repository.Repository, h *model.Handover) error) error {
	return s.retry.Do(ctx, func(attempt int) error {
		err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			h, err := tx.Handover.GetByHandoverIDForUpdate(ctx, handoverID, s.cfg.Claim.LockTimeout)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrHandoverNotFound
				}
				return err
			}
			return fn(tx, h)
		})
		if err != nil && pkgerrors.IsRetryable(err) {
			s.logger.Warn("管理操作遇到瞬时错误，准备重试",
				zap.String("handover_id", handoverID), zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		if err != nil {
			return retry.Permanent(err)
		}
		return nil
	})
}

func (s *adminService) finish(msg, handoverID string, err error) error {
	if errors.Is(err, ErrHandoverNotFound) || errors.Is(err, ErrHandoverNotReceived) {
		return err
	}
	s.logger.Error(msg, zap.String("handover_id", handoverID), zap.Error(err))
	return storageError(err)
}
