package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shift-handover/internal/model"
	"shift-handover/pkg/redis"
)

var fallbackIDPattern = regexp.MustCompile(`^HO-20260115-\d{12}-[0-9a-f]{8}$`)

func TestIDGenerator_Generate_Sequential(t *testing.T) {
	env := setupTestEnv()
	ctx := context.Background()

	first := env.idGen.Generate(ctx)
	second := env.idGen.Generate(ctx)

	if first != "HO-20260115-0001" {
		t.Errorf("期望 HO-20260115-0001，实际=%s", first)
	}
	if second != "HO-20260115-0002" {
		t.Errorf("期望 HO-20260115-0002，实际=%s", second)
	}
}

func TestIDGenerator_Peek_DoesNotReserve(t *testing.T) {
	env := setupTestEnv()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := env.idGen.Peek(ctx)
		if err != nil {
			t.Fatalf("Peek 失败: %v", err)
		}
		if got != "HO-20260115-0001" {
			t.Errorf("第 %d 次预览期望 HO-20260115-0001，实际=%s", i+1, got)
		}
	}

	id := env.mustSubmit(t, validSubmitRequest("LINE-01"))
	if id != "HO-20260115-0001" {
		t.Errorf("预览后首次提交期望 HO-20260115-0001，实际=%s", id)
	}

	got, err := env.idGen.Peek(ctx)
	if err != nil {
		t.Fatalf("Peek 失败: %v", err)
	}
	if got != "HO-20260115-0002" {
		t.Errorf("提交后预览期望 HO-20260115-0002，实际=%s", got)
	}
}

func TestIDGenerator_Peek_CountsReservedSequence(t *testing.T) {
	env := setupTestEnv()
	ctx := context.Background()

	// Generate 预留了 0001，但没有写入交接单
	if got := env.idGen.Generate(ctx); got != "HO-20260115-0001" {
		t.Fatalf("期望 HO-20260115-0001，实际=%s", got)
	}
	got, err := env.idGen.Peek(ctx)
	if err != nil {
		t.Fatalf("Peek 失败: %v", err)
	}
	if got != "HO-20260115-0002" {
		t.Errorf("期望 HO-20260115-0002，实际=%s", got)
	}
}

func TestIDGenerator_ContinuesAfterExistingIDs(t *testing.T) {
	env := setupTestEnv()
	env.store.seedHandover(&model.Handover{HandoverID: "HO-20260115-0041"})
	env.store.seedHandover(&model.Handover{HandoverID: "HO-20260115-0007"})
	// 降级编号与其他日期不参与计数
	env.store.seedHandover(&model.Handover{HandoverID: "HO-20260115-083000123456-abcdef01"})
	env.store.seedHandover(&model.Handover{HandoverID: "HO-20260114-0099"})

	got := env.idGen.Generate(context.Background())
	if got != "HO-20260115-0042" {
		t.Errorf("期望 HO-20260115-0042，实际=%s", got)
	}
}

func TestIDGenerator_NewDayRestartsSequence(t *testing.T) {
	env := setupTestEnv()
	env.store.seedHandover(&model.Handover{HandoverID: "HO-20260115-0003"})

	gen := env.idGen.(*idGenerator)
	gen.now = func() time.Time { return testNow.Add(24 * time.Hour) }

	got := env.idGen.Generate(context.Background())
	if got != "HO-20260116-0001" {
		t.Errorf("期望 HO-20260116-0001，实际=%s", got)
	}
}

func TestIDGenerator_WidensPast9999(t *testing.T) {
	env := setupTestEnv()
	env.store.seedHandover(&model.Handover{HandoverID: "HO-20260115-9999"})

	got := env.idGen.Generate(context.Background())
	if got != "HO-20260115-10000" {
		t.Errorf("期望 HO-20260115-10000，实际=%s", got)
	}
}

func TestIDGenerator_UniqueUnderContention(t *testing.T) {
	env := setupTestEnv()
	const n = 100

	ids := make([]string, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			ids[i] = env.idGen.Generate(context.Background())
		}(i)
	}
	close(start)
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("编号重复: %s", id)
		}
		seen[id] = true
	}
	if !seen["HO-20260115-0001"] || !seen["HO-20260115-0100"] {
		t.Error("期望序号连续覆盖 0001..0100")
	}
}

func TestIDGenerator_FallbackOnLockFailure(t *testing.T) {
	env := setupTestEnv()
	env.store.lockErr = errors.New("connection reset by peer")

	got := env.idGen.Generate(context.Background())
	if !fallbackIDPattern.MatchString(got) {
		t.Errorf("期望降级编号格式，实际=%s", got)
	}
	if len(env.store.sequences) != 0 {
		t.Error("降级时不应推进计数器")
	}
}

func TestIDGenerator_FallbackIDsAreDistinct(t *testing.T) {
	env := setupTestEnv()
	env.store.lockErr = errors.New("lock unavailable")

	a := env.idGen.Generate(context.Background())
	b := env.idGen.Generate(context.Background())
	if a == b {
		t.Errorf("降级编号不应重复: %s", a)
	}
}

// ── Redis 锁 ──

func setupRedisGenerator(t *testing.T, env *testEnv) (*miniredis.Miniredis, IDGenerator) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := testConfig()
	cfg.IDGen.LockBackend = "redis"
	cfg.IDGen.RedisLockKey = "lock:handover:id"
	cfg.IDGen.RedisLockTTL = 5 * time.Second
	cfg.IDGen.AcquireTimeout = 5 * time.Second

	client := redis.NewFromClient(rdb, zap.NewNop())
	gen := NewIDGenerator(cfg, env.repo, NewRedisIDLocker(&cfg.IDGen, client, zap.NewNop()), zap.NewNop())
	gen.(*idGenerator).now = func() time.Time { return testNow }
	return mr, gen
}

func TestIDGenerator_RedisLocker_UniqueAndReleased(t *testing.T) {
	env := setupTestEnv()
	mr, gen := setupRedisGenerator(t, env)
	const n = 30

	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- gen.Generate(context.Background())
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, n)
	for id := range ids {
		if fallbackIDPattern.MatchString(id) {
			t.Errorf("不应降级: %s", id)
		}
		if seen[id] {
			t.Fatalf("编号重复: %s", id)
		}
		seen[id] = true
	}
	if mr.Exists("lock:handover:id") {
		t.Error("发号完成后锁应已释放")
	}
}

func TestIDGenerator_RedisLocker_FallbackWhenRedisDown(t *testing.T) {
	env := setupTestEnv()
	mr, gen := setupRedisGenerator(t, env)
	mr.Close()

	got := gen.Generate(context.Background())
	if !fallbackIDPattern.MatchString(got) {
		t.Errorf("Redis 不可用时期望降级编号，实际=%s", got)
	}
}

func TestNewIDLocker_RedisUnavailableFallsBackToPostgres(t *testing.T) {
	cfg := testConfig()
	cfg.IDGen.LockBackend = "redis"

	locker := newIDLocker(cfg, nil, zap.NewNop())
	if _, ok := locker.(*pgIDLocker); !ok {
		t.Errorf("期望回退到 pgIDLocker，实际=%T", locker)
	}
}
