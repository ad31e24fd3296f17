package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shift-handover/internal/model"
)

// HandoverRepository 交接单数据访问接口
type HandoverRepository interface {
	Create(ctx context.Context, h *model.Handover) error
	GetByHandoverID(ctx context.Context, handoverID string) (*model.Handover, error)
	// GetByHandoverIDForUpdate 使用 SELECT ... FOR UPDATE 行级锁查询交接单，
	// 必须在事务内调用（通过 Repository.Transaction 获取）。wait > 0 时设置 lock_timeout，
	// 等待超时返回 ErrTransient
	GetByHandoverIDForUpdate(ctx context.Context, handoverID string, wait time.Duration) (*model.Handover, error)
	UpdateReceiptStatus(ctx context.Context, handoverID, status string) error
	Delete(ctx context.Context, handoverID string) (int64, error)
	// GetLatestPending 查询某产线某日最新一条待接收交接单
	GetLatestPending(ctx context.Context, line string, reportDate string) (*model.Handover, error)
	ListRecent(ctx context.Context, limit int) ([]model.Handover, error)
}

type handoverRepo struct {
	db *gorm.DB
}

// NewHandoverRepo 创建 HandoverRepository 实例
func NewHandoverRepo(db *gorm.DB) HandoverRepository {
	return &handoverRepo{db: db}
}

func (r *handoverRepo) Create(ctx context.Context, h *model.Handover) error {
	return translateError(r.db.WithContext(ctx).Create(h).Error)
}

func (r *handoverRepo) GetByHandoverID(ctx context.Context, handoverID string) (*model.Handover, error) {
	var h model.Handover
	err := r.db.WithContext(ctx).
		Where("handover_id = ?", handoverID).
		First(&h).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &h, nil
}

func (r *handoverRepo) GetByHandoverIDForUpdate(ctx context.Context, handoverID string, wait time.Duration) (*model.Handover, error) {
	db := r.db.WithContext(ctx)
	if err := setLockTimeout(db, wait); err != nil {
		return nil, err
	}

	var h model.Handover
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("handover_id = ?", handoverID).
		First(&h).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &h, nil
}

// UpdateReceiptStatus 更新接收状态；记录不存在时返回 gorm.ErrRecordNotFound
func (r *handoverRepo) UpdateReceiptStatus(ctx context.Context, handoverID, status string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Handover{}).
		Where("handover_id = ?", handoverID).
		Updates(map[string]interface{}{
			"receipt_status": status,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 删除交接单，receives 由外键级联删除
func (r *handoverRepo) Delete(ctx context.Context, handoverID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("handover_id = ?", handoverID).
		Delete(&model.Handover{})
	return result.RowsAffected, translateError(result.Error)
}

func (r *handoverRepo) GetLatestPending(ctx context.Context, line string, reportDate string) (*model.Handover, error) {
	var h model.Handover
	err := r.db.WithContext(ctx).
		Where("line = ? AND report_date = CAST(? AS DATE) AND receipt_status = ?", line, reportDate, model.ReceiptPending).
		Order("submitted_at DESC").
		First(&h).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &h, nil
}

func (r *handoverRepo) ListRecent(ctx context.Context, limit int) ([]model.Handover, error) {
	var list []model.Handover
	err := r.db.WithContext(ctx).
		Order("submitted_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, translateError(err)
}

// setLockTimeout 仅对当前事务生效（SET LOCAL），事务结束自动恢复
func setLockTimeout(db *gorm.DB, wait time.Duration) error {
	if wait <= 0 {
		return nil
	}
	ms := wait.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return translateError(db.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", ms)).Error)
}

