package repository

import (
	"context"

	"gorm.io/gorm"

	"shift-handover/internal/model"
)

// ReceiveRepository 接班记录数据访问接口
type ReceiveRepository interface {
	// Create 插入接班记录；同一交接单已有记录时返回 ErrDuplicateKey（uq_receives_handover_id）
	Create(ctx context.Context, rec *model.Receive) error
	GetByHandoverID(ctx context.Context, handoverID string) (*model.Receive, error)
	DeleteByHandoverID(ctx context.Context, handoverID string) (int64, error)
}

type receiveRepo struct {
	db *gorm.DB
}

// NewReceiveRepo 创建 ReceiveRepository 实例
func NewReceiveRepo(db *gorm.DB) ReceiveRepository {
	return &receiveRepo{db: db}
}

func (r *receiveRepo) Create(ctx context.Context, rec *model.Receive) error {
	return translateError(r.db.WithContext(ctx).Create(rec).Error)
}

func (r *receiveRepo) GetByHandoverID(ctx context.Context, handoverID string) (*model.Receive, error) {
	var rec model.Receive
	err := r.db.WithContext(ctx).
		Where("handover_id = ?", handoverID).
		First(&rec).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &rec, nil
}

func (r *receiveRepo) DeleteByHandoverID(ctx context.Context, handoverID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("handover_id = ?", handoverID).
		Delete(&model.Receive{})
	return result.RowsAffected, translateError(result.Error)
}
