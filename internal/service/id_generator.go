package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shift-handover/config"
	"shift-handover/internal/repository"
	"shift-handover/pkg/redis"
)

// IDGenerator 交接单号生成器：PREFIX-YYYYMMDD-NNNN
//
// 发号在一把全局锁内完成：读取当天已发放的最大序号，推进计数器后返回。
// 任何锁或计数失败都不会返回错误，而是退化为带时间戳与随机后缀的编号
// （PREFIX-YYYYMMDD-HHMMSSffffff-xxxxxxxx），保留日期前缀但丢失连续序号。
type IDGenerator interface {
	// Generate 独立事务内发号
	Generate(ctx context.Context) string
	// Next 在调用方事务内发号；postgres 锁随该事务提交/回滚释放，覆盖后续插入
	Next(ctx context.Context, tx *repository.Repository) string
	// Peek 预览下一个编号：不加锁、不预留，仅供展示，实际编号以提交结果为准
	Peek(ctx context.Context) (string, error)
}

// IDLocker 全局发号锁
type IDLocker interface {
	// Acquire 获取锁；返回的 release 必须在所有路径上调用
	Acquire(ctx context.Context, tx *repository.Repository) (release func(), err error)
}

type idGenerator struct {
	repo   *repository.Repository
	locker IDLocker
	prefix string
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewIDGenerator 创建 IDGenerator 实例
func NewIDGenerator(cfg *config.Config, repo *repository.Repository, locker IDLocker, logger *zap.Logger) IDGenerator {
	return &idGenerator{
		repo:   repo,
		locker: locker,
		prefix: cfg.Handover.IDPrefix,
		loc:    cfg.Handover.Location(),
		now:    time.Now,
		logger: logger,
	}
}

func (g *idGenerator) Generate(ctx context.Context) string {
	var id string
	err := g.repo.Transaction(ctx, func(tx *repository.Repository) error {
		id = g.Next(ctx, tx)
		return nil
	})
	if err != nil || id == "" {
		// 事务未能开启或提交：已预留的序号随回滚作废，不能返回
		g.logger.Warn("发号事务失败，使用降级编号", zap.Error(err))
		return g.fallbackID(g.now().In(g.loc))
	}
	return id
}

func (g *idGenerator) Next(ctx context.Context, tx *repository.Repository) string {
	now := g.now().In(g.loc)
	day := now.Format("20060102")
	dayPrefix := fmt.Sprintf("%s-%s-", g.prefix, day)

	var seq int
	// 嵌套事务 = SAVEPOINT：失败时只回滚发号部分，调用方事务仍可继续使用降级编号
	err := tx.Transaction(ctx, func(inner *repository.Repository) error {
		release, err := g.locker.Acquire(ctx, inner)
		if err != nil {
			return fmt.Errorf("获取发号锁失败: %w", err)
		}
		defer release()

		floor, err := inner.IDSequence.MaxIssued(ctx, dayPrefix)
		if err != nil {
			return fmt.Errorf("查询已发放序号失败: %w", err)
		}
		seq, err = inner.IDSequence.Reserve(ctx, day, floor)
		if err != nil {
			return fmt.Errorf("推进发号计数器失败: %w", err)
		}
		return nil
	})
	if err != nil {
		g.logger.Warn("发号失败，使用降级编号", zap.String("day", day), zap.Error(err))
		return g.fallbackID(now)
	}

	// 超过 9999 时自然加宽，仍保持唯一
	return fmt.Sprintf("%s%04d", dayPrefix, seq)
}

func (g *idGenerator) Peek(ctx context.Context) (string, error) {
	now := g.now().In(g.loc)
	day := now.Format("20060102")
	dayPrefix := fmt.Sprintf("%s-%s-", g.prefix, day)

	issued, err := g.repo.IDSequence.MaxIssued(ctx, dayPrefix)
	if err != nil {
		return "", fmt.Errorf("查询已发放序号失败: %w", err)
	}
	reserved, err := g.repo.IDSequence.LastReserved(ctx, day)
	if err != nil {
		return "", fmt.Errorf("查询发号计数器失败: %w", err)
	}
	return fmt.Sprintf("%s%04d", dayPrefix, max(issued, reserved)+1), nil
}

func (g *idGenerator) fallbackID(now time.Time) string {
	return fmt.Sprintf("%s-%s-%s%06d-%s",
		g.prefix,
		now.Format("20060102"),
		now.Format("150405"),
		now.Nanosecond()/int(time.Microsecond),
		uuid.NewString()[:8],
	)
}

// ── 锁实现 ──

type pgIDLocker struct {
	key  int64
	wait time.Duration
}

// NewPostgresIDLocker 基于 pg_advisory_xact_lock 的发号锁，事务结束时自动释放
func NewPostgresIDLocker(cfg *config.IDGenConfig) IDLocker {
	return &pgIDLocker{key: cfg.LockKey, wait: cfg.LockTimeout}
}

func (l *pgIDLocker) Acquire(ctx context.Context, tx *repository.Repository) (func(), error) {
	if err := tx.IDSequence.Lock(ctx, l.key, l.wait); err != nil {
		return nil, err
	}
	return func() {}, nil
}

type redisIDLocker struct {
	rdb    *redis.Client
	key    string
	ttl    time.Duration
	wait   time.Duration
	logger *zap.Logger
}

// NewRedisIDLocker 基于 Redis SET NX PX 的发号锁。
// 锁在发号完成后即释放，早于调用方事务提交；其间的竞争由 handover_id_sequences 行锁与唯一约束兜底
func NewRedisIDLocker(cfg *config.IDGenConfig, rdb *redis.Client, logger *zap.Logger) IDLocker {
	return &redisIDLocker{
		rdb:    rdb,
		key:    cfg.RedisLockKey,
		ttl:    cfg.RedisLockTTL,
		wait:   cfg.AcquireTimeout,
		logger: logger,
	}
}

func (l *redisIDLocker) Acquire(ctx context.Context, _ *repository.Repository) (func(), error) {
	token, err := l.rdb.AcquireLock(ctx, l.key, l.ttl, l.wait)
	if err != nil {
		return nil, err
	}
	return func() {
		// 调用方 ctx 可能已取消，释放使用独立超时
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		released, err := l.rdb.ReleaseLock(releaseCtx, l.key, token)
		if err != nil {
			l.logger.Warn("释放发号锁失败，等待 TTL 过期", zap.Error(err))
			return
		}
		if !released {
			l.logger.Warn("发号锁已过期，持有时间超过 TTL", zap.Duration("ttl", l.ttl))
		}
	}, nil
}

