package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"gorm.io/gorm"
)

// IDSequenceRepository 交接单号发号所需的存储操作。
// Lock / Reserve 必须在事务内调用：Lock 获取的咨询锁在事务结束时自动释放
type IDSequenceRepository interface {
	// Lock 获取全局发号锁 pg_advisory_xact_lock(key)；wait > 0 时等待上限为 wait
	Lock(ctx context.Context, key int64, wait time.Duration) error
	// MaxIssued 返回 handovers 中 "<dayPrefix><NNNN>" 形式编号的最大序号，没有时为 0
	MaxIssued(ctx context.Context, dayPrefix string) (int, error)
	// Reserve 推进当天计数器：新值 = max(当前值, floor) + 1，返回新值
	Reserve(ctx context.Context, day string, floor int) (int, error)
	// LastReserved 返回当天计数器的当前值，没有记录时为 0（只读）
	LastReserved(ctx context.Context, day string) (int, error)
}

type idSequenceRepo struct {
	db *gorm.DB
}

// NewIDSequenceRepo 创建 IDSequenceRepository 实例
func NewIDSequenceRepo(db *gorm.DB) IDSequenceRepository {
	return &idSequenceRepo{db: db}
}

func (r *idSequenceRepo) Lock(ctx context.Context, key int64, wait time.Duration) error {
	db := r.db.WithContext(ctx)
	if err := setLockTimeout(db, wait); err != nil {
		return err
	}
	return translateError(db.Exec("SELECT pg_advisory_xact_lock(?)", key).Error)
}

func (r *idSequenceRepo) MaxIssued(ctx context.Context, dayPrefix string) (int, error) {
	pattern := "^" + regexp.QuoteMeta(dayPrefix) + "[0-9]{1,9}$"
	var maxSeq int
	err := r.db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(CAST(SUBSTRING(handover_id FROM CAST(? AS INTEGER)) AS INTEGER)), 0)
		   FROM handovers
		  WHERE handover_id ~ ?`,
		len(dayPrefix)+1, pattern,
	).Scan(&maxSeq).Error
	if err != nil {
		return 0, translateError(err)
	}
	return maxSeq, nil
}

func (r *idSequenceRepo) Reserve(ctx context.Context, day string, floor int) (int, error) {
	var seq int
	err := r.db.WithContext(ctx).Raw(
		`INSERT INTO handover_id_sequences (day, last_seq, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (day) DO UPDATE
		    SET last_seq   = GREATEST(handover_id_sequences.last_seq, EXCLUDED.last_seq - 1) + 1,
		        updated_at = CURRENT_TIMESTAMP
		 RETURNING last_seq`,
		day, floor+1,
	).Scan(&seq).Error
	if err != nil {
		return 0, translateError(err)
	}
	if seq <= floor {
		return 0, fmt.Errorf("发号计数器异常: day=%s seq=%d floor=%d", day, seq, floor)
	}
	return seq, nil
}

func (r *idSequenceRepo) LastReserved(ctx context.Context, day string) (int, error) {
	var seq int
	err := r.db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(last_seq), 0) FROM handover_id_sequences WHERE day = ?`, day,
	).Scan(&seq).Error
	if err != nil {
		return 0, translateError(err)
	}
	return seq, nil
}
