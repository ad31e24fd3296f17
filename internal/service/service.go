package service

import (
	"time"

	"go.uber.org/zap"

	"shift-handover/config"
	"shift-handover/internal/repository"
	"shift-handover/pkg/redis"
	"shift-handover/pkg/retry"
)

// Service 所有 Service 的聚合入口
type Service struct {
	IDGen     IDGenerator
	Handover  HandoverService
	Claim     ClaimService
	Dashboard DashboardService
	Admin     AdminService
}

// NewService 创建 Service 聚合
// rdb 可为 nil：此时即使配置了 redis 发号锁也回退到 postgres 咨询锁
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	policy := retry.NewExponential(&cfg.Retry)
	policy.OnRetry = func(err error, wait time.Duration) {
		logger.Debug("写操作重试", zap.Duration("wait", wait), zap.Error(err))
	}

	idGen := NewIDGenerator(cfg, repo, newIDLocker(cfg, rdb, logger), logger)

	return &Service{
		IDGen:     idGen,
		Handover:  NewHandoverService(repo, idGen, policy, logger),
		Claim:     NewClaimService(cfg, repo, policy, logger),
		Dashboard: NewDashboardService(cfg, repo, logger),
		Admin:     NewAdminService(cfg, repo, policy, logger),
	}
}

func newIDLocker(cfg *config.Config, rdb *redis.Client, logger *zap.Logger) IDLocker {
	if cfg.IDGen.LockBackend == "redis" {
		if rdb != nil {
			logger.Info("发号锁使用 Redis", zap.String("key", cfg.IDGen.RedisLockKey))
			return NewRedisIDLocker(&cfg.IDGen, rdb, logger)
		}
		logger.Warn("Redis 不可用，发号锁回退到 PostgreSQL 咨询锁")
	}
	return NewPostgresIDLocker(&cfg.IDGen)
}

