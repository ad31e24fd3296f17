package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"shift-handover/config"
)

var errBusy = errors.New("busy")

func TestPolicy_Do_SucceedsAfterRetries(t *testing.T) {
	p := NoDelay(5)

	calls := 0
	err := p.Do(context.Background(), func(attempt int) error {
		calls++
		if attempt != calls {
			t.Errorf("attempt 期望=%d，实际=%d", calls, attempt)
		}
		if attempt < 3 {
			return errBusy
		}
		return nil
	})
	if err != nil {
		t.Fatalf("期望第 3 次成功，实际错误: %v", err)
	}
	if calls != 3 {
		t.Errorf("期望调用 3 次，实际 %d 次", calls)
	}
}

func TestPolicy_Do_Exhausted(t *testing.T) {
	p := NoDelay(4)

	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return errBusy
	})
	if !errors.Is(err, errBusy) {
		t.Fatalf("期望返回最后一次错误，实际: %v", err)
	}
	if calls != 4 {
		t.Errorf("期望调用 4 次，实际 %d 次", calls)
	}
}

func TestPolicy_Do_PermanentStopsImmediately(t *testing.T) {
	p := NoDelay(10)

	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return Permanent(errBusy)
	})
	if !errors.Is(err, errBusy) {
		t.Fatalf("期望返回原始错误，实际: %v", err)
	}
	if calls != 1 {
		t.Errorf("Permanent 错误不应重试，实际调用 %d 次", calls)
	}
}

func TestPolicy_Do_OnRetryCalled(t *testing.T) {
	p := NoDelay(3)
	notified := 0
	p.OnRetry = func(error, time.Duration) { notified++ }

	_ = p.Do(context.Background(), func(int) error { return errBusy })
	if notified != 2 {
		t.Errorf("3 次尝试应通知 2 次重试，实际 %d", notified)
	}
}

func TestNewExponential_Intervals(t *testing.T) {
	p := NewExponential(&config.RetryConfig{
		MaxAttempts:     5,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2,
	})
	if p.MaxAttempts != 5 {
		t.Errorf("期望 MaxAttempts=5，实际=%d", p.MaxAttempts)
	}

	b := p.NewBackOff()
	first := b.NextBackOff()
	// 默认 RandomizationFactor=0.5 → [50ms, 150ms]
	if first < 50*time.Millisecond || first > 150*time.Millisecond {
		t.Errorf("首次退避期望约 100ms，实际=%v", first)
	}
}
