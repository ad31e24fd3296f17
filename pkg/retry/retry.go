package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"shift-handover/config"
)

// Policy 可注入的重试策略：最大尝试次数 + 退避函数
// 单元测试中使用 NoDelay 替换，避免真实 sleep
type Policy struct {
	MaxAttempts int
	NewBackOff  func() backoff.BackOff
	// OnRetry 每次失败且即将重试时回调（可为 nil）
	OnRetry func(err error, wait time.Duration)
}

// NewExponential 根据配置创建指数退避策略（默认 100ms 起步，倍率 2）
func NewExponential(cfg *config.RetryConfig) Policy {
	return Policy{
		MaxAttempts: cfg.MaxAttempts,
		NewBackOff: func() backoff.BackOff {
			b := &backoff.ExponentialBackOff{
				InitialInterval:     cfg.InitialInterval,
				RandomizationFactor: backoff.DefaultRandomizationFactor,
				Multiplier:          cfg.Multiplier,
				MaxInterval:         cfg.MaxInterval,
			}
			b.Reset()
			return b
		},
	}
}

// NoDelay 零等待策略
func NoDelay(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		NewBackOff: func() backoff.BackOff {
			return &backoff.ZeroBackOff{}
		},
	}
}

// Permanent 标记为不可重试错误，Do 立即返回
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do 执行 op 直到成功、返回 Permanent 错误或次数耗尽；attempt 从 1 开始
// 次数耗尽时返回最后一次的错误
func (p Policy) Do(ctx context.Context, op func(attempt int) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	newBackOff := p.NewBackOff
	if newBackOff == nil {
		newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	}

	attempt := 0
	opts := []backoff.RetryOption{
		backoff.WithBackOff(newBackOff()),
		backoff.WithMaxTries(uint(maxAttempts)),
	}
	if p.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(p.OnRetry))
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		return struct{}{}, op(attempt)
	}, opts...)
	return err
}
