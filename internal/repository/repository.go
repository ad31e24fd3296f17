package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Handover   HandoverRepository
	Receive    ReceiveRepository
	Dashboard  DashboardRepository
	IDSequence IDSequenceRepository

	// Tx 事务执行器；测试中可替换为内存实现以模拟行锁
	Tx TxRunner
}

// TxRunner 在一个事务内执行 fn，fn 拿到的 Repository 全部绑定在该事务连接上。
// 在已处于事务中的 Repository 上再次调用时使用 SAVEPOINT。
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *Repository) error) error
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return WithTx(db)
}

// WithTx 基于给定连接（通常是事务连接）构造 Repository
func WithTx(db *gorm.DB) *Repository {
	return &Repository{
		Handover:   NewHandoverRepo(db),
		Receive:    NewReceiveRepo(db),
		Dashboard:  NewDashboardRepo(db),
		IDSequence: NewIDSequenceRepo(db),
		Tx:         &gormTxRunner{db: db},
	}
}

// Transaction 便捷方法：r.Tx.InTx
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.Tx.InTx(ctx, fn)
}

type gormTxRunner struct {
	db *gorm.DB
}

// InTx fn 返回的错误原样返回（业务错误不被改写）；驱动错误与提交错误统一分类
func (g *gormTxRunner) InTx(ctx context.Context, fn func(tx *Repository) error) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WithTx(tx))
	})
	return translateError(err)
}

