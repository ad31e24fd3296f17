package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shift-handover/config"
	"shift-handover/internal/dto"
	"shift-handover/internal/model"
	"shift-handover/internal/repository"
	pkgerrors "shift-handover/pkg/errors"
	"shift-handover/pkg/retry"
)

// ── 内存存储 ──
//
// memStore 模拟 PostgreSQL 的事务语义：
//   - 事务内写入记录 undo，fn 返回错误时回滚
//   - GetByHandoverIDForUpdate 持有每行一把互斥锁，直到最外层事务结束
//   - IDSequence.Lock 持有全局发号锁，直到最外层事务结束
//   - handover_id 与 receives.handover_id 唯一；删除交接单级联删除接班记录

type memStore struct {
	mu        sync.Mutex
	handovers map[string]*model.Handover
	receives  map[string]*model.Receive
	sequences map[string]int
	rowLocks  map[string]*sync.Mutex
	idLock    sync.Mutex
	nextPK    int64

	// 故障注入（按调用顺序依次弹出）
	staleMaxIssued   int     // 前 N 次 MaxIssued 返回 0，模拟读到过期序号
	createErrs       []error // Handover.Create
	receiveErrs      []error // Receive.Create
	updateStatusErrs []error // Handover.UpdateReceiptStatus
	commitErrs       []error // 最外层事务提交
	lockErr          error   // IDSequence.Lock 始终失败
	afterRead        func()  // 无锁 GetByHandoverID 返回后调用，模拟读后被并发修改

	forUpdateCalls int
}

func newMemStore() *memStore {
	return &memStore{
		handovers: make(map[string]*model.Handover),
		receives:  make(map[string]*model.Receive),
		sequences: make(map[string]int),
		rowLocks:  make(map[string]*sync.Mutex),
	}
}

// repository 构造绑定到 tx 的 Repository；tx 为 nil 表示自动提交
func (s *memStore) repository(tx *memTx) *repository.Repository {
	return &repository.Repository{
		Handover:   &memHandoverRepo{s: s, tx: tx},
		Receive:    &memReceiveRepo{s: s, tx: tx},
		Dashboard:  &memDashboardRepo{s: s},
		IDSequence: &memIDSequenceRepo{s: s, tx: tx},
		Tx:         &memTxRunner{s: s, tx: tx},
	}
}

func popErr(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

// record 在持有 s.mu 时调用
func (s *memStore) record(tx *memTx, undo func()) {
	if tx != nil {
		tx.undo = append(tx.undo, undo)
	}
}

// seedHandover 直接写入（测试准备数据用）
func (s *memStore) seedHandover(h *model.Handover) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPK++
	cp := *h
	cp.ID = s.nextPK
	s.handovers[h.HandoverID] = &cp
}

func (s *memStore) seedReceive(r *model.Receive) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.receives[r.HandoverID] = &cp
}

func (s *memStore) handover(id string) *model.Handover {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.handovers[id]; ok {
		cp := *h
		return &cp
	}
	return nil
}

func (s *memStore) receive(id string) *model.Receive {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.receives[id]; ok {
		cp := *r
		return &cp
	}
	return nil
}

func (s *memStore) rowLock(id string) *sync.Mutex {
	l, ok := s.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.rowLocks[id] = l
	}
	return l
}

// ── 事务 ──

type memTx struct {
	parent   *memTx
	undo     []func()
	rowLocks []*sync.Mutex
	idLocked bool
}

func (t *memTx) top() *memTx {
	for t.parent != nil {
		t = t.parent
	}
	return t
}

type memTxRunner struct {
	s  *memStore
	tx *memTx
}

func (r *memTxRunner) InTx(_ context.Context, fn func(tx *repository.Repository) error) error {
	child := &memTx{parent: r.tx}
	err := fn(r.s.repository(child))

	r.s.mu.Lock()
	if err == nil && r.tx == nil {
		err = popErr(&r.s.commitErrs)
	}
	if err != nil {
		for i := len(child.undo) - 1; i >= 0; i-- {
			child.undo[i]()
		}
	} else if r.tx != nil {
		r.tx.undo = append(r.tx.undo, child.undo...)
	}
	r.s.mu.Unlock()

	if r.tx == nil {
		for _, l := range child.rowLocks {
			l.Unlock()
		}
		if child.idLocked {
			r.s.idLock.Unlock()
		}
	}
	return err
}

// ── HandoverRepository ──

type memHandoverRepo struct {
	s  *memStore
	tx *memTx
}

func (m *memHandoverRepo) Create(_ context.Context, h *model.Handover) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := popErr(&s.createErrs); err != nil {
		return err
	}
	if _, ok := s.handovers[h.HandoverID]; ok {
		return fmt.Errorf("%w: handovers_handover_id_key (%s)", pkgerrors.ErrDuplicateKey, h.HandoverID)
	}
	s.nextPK++
	h.ID = s.nextPK
	h.CreatedAt = time.Now()
	h.UpdatedAt = h.CreatedAt
	cp := *h
	s.handovers[h.HandoverID] = &cp
	s.record(m.tx, func() { delete(s.handovers, cp.HandoverID) })
	return nil
}

func (m *memHandoverRepo) GetByHandoverID(_ context.Context, id string) (*model.Handover, error) {
	if h := m.s.handover(id); h != nil {
		if m.s.afterRead != nil {
			m.s.afterRead()
		}
		return h, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memHandoverRepo) GetByHandoverIDForUpdate(_ context.Context, id string, wait time.Duration) (*model.Handover, error) {
	if m.tx == nil {
		return nil, errors.New("FOR UPDATE 必须在事务内调用")
	}
	s := m.s
	s.mu.Lock()
	s.forUpdateCalls++
	if _, ok := s.handovers[id]; !ok {
		s.mu.Unlock()
		return nil, gorm.ErrRecordNotFound
	}
	l := s.rowLock(id)
	s.mu.Unlock()

	if wait > 0 {
		deadline := time.Now().Add(wait)
		for !l.TryLock() {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("%w: lock timeout", pkgerrors.ErrTransient)
			}
			time.Sleep(time.Millisecond)
		}
	} else {
		l.Lock()
	}
	top := m.tx.top()
	top.rowLocks = append(top.rowLocks, l)

	// 拿到锁后重新读取，等价于 FOR UPDATE 返回最新提交版本
	if h := s.handover(id); h != nil {
		return h, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memHandoverRepo) UpdateReceiptStatus(_ context.Context, id, status string) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := popErr(&s.updateStatusErrs); err != nil {
		return err
	}
	h, ok := s.handovers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	prev := h.ReceiptStatus
	h.ReceiptStatus = status
	s.record(m.tx, func() {
		if cur, ok := s.handovers[id]; ok {
			cur.ReceiptStatus = prev
		}
	})
	return nil
}

func (m *memHandoverRepo) Delete(_ context.Context, id string) (int64, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handovers[id]
	if !ok {
		return 0, nil
	}
	rec := s.receives[id]
	delete(s.handovers, id)
	delete(s.receives, id)
	s.record(m.tx, func() {
		s.handovers[id] = h
		if rec != nil {
			s.receives[id] = rec
		}
	})
	return 1, nil
}

func (m *memHandoverRepo) GetLatestPending(_ context.Context, line, reportDate string) (*model.Handover, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *model.Handover
	for _, h := range s.handovers {
		if h.Line != line || h.ReportDate.Format("2006-01-02") != reportDate || h.ReceiptStatus != model.ReceiptPending {
			continue
		}
		if latest == nil || h.SubmittedAt.After(latest.SubmittedAt) {
			latest = h
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memHandoverRepo) ListRecent(_ context.Context, limit int) ([]model.Handover, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]model.Handover, 0, len(s.handovers))
	for _, h := range s.handovers {
		list = append(list, *h)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].SubmittedAt.After(list[j].SubmittedAt) })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// ── ReceiveRepository ──

type memReceiveRepo struct {
	s  *memStore
	tx *memTx
}

func (m *memReceiveRepo) Create(_ context.Context, rec *model.Receive) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := popErr(&s.receiveErrs); err != nil {
		return err
	}
	if _, ok := s.handovers[rec.HandoverID]; !ok {
		return errors.New("违反外键约束 receives_handover_id_fkey")
	}
	if _, ok := s.receives[rec.HandoverID]; ok {
		return fmt.Errorf("%w: uq_receives_handover_id", pkgerrors.ErrDuplicateKey)
	}
	cp := *rec
	s.receives[rec.HandoverID] = &cp
	s.record(m.tx, func() { delete(s.receives, cp.HandoverID) })
	return nil
}

func (m *memReceiveRepo) GetByHandoverID(_ context.Context, id string) (*model.Receive, error) {
	if r := m.s.receive(id); r != nil {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memReceiveRepo) DeleteByHandoverID(_ context.Context, id string) (int64, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.receives[id]
	if !ok {
		return 0, nil
	}
	delete(s.receives, id)
	s.record(m.tx, func() { s.receives[id] = rec })
	return 1, nil
}

// ── DashboardRepository ──

type memDashboardRepo struct {
	s *memStore
}

func (m *memDashboardRepo) joined(h *model.Handover) repository.HandoverReceiveRow {
	row := repository.HandoverReceiveRow{Handover: *h}
	if r, ok := m.s.receives[h.HandoverID]; ok {
		code, name, at := r.EmployeeCode, r.EmployeeName, r.ReceivedAt
		row.ReceiverCode, row.ReceiverName, row.ReceivedAt = &code, &name, &at
		acks := r.Acks()
		confirmed := make([]bool, len(acks))
		comments := make([]string, len(acks))
		for i, a := range acks {
			confirmed[i], comments[i] = a.Confirmed, a.Comment
		}
		row.Ack5S, row.AckComment5S = &confirmed[0], &comments[0]
		row.AckSafety, row.AckCommentSafety = &confirmed[1], &comments[1]
		row.AckQuality, row.AckCommentQuality = &confirmed[2], &comments[2]
		row.AckEquipment, row.AckCommentEquipment = &confirmed[3], &comments[3]
		row.AckPlan, row.AckCommentPlan = &confirmed[4], &comments[4]
		row.AckOther, row.AckCommentOther = &confirmed[5], &comments[5]
	}
	return row
}

func (m *memDashboardRepo) ListJoined(_ context.Context, f repository.JoinFilter) ([]repository.HandoverReceiveRow, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var rows []repository.HandoverReceiveRow
	for _, h := range m.s.handovers {
		d := h.ReportDate.Format("2006-01-02")
		if d < f.From || d > f.To {
			continue
		}
		if f.Line != "" && h.Line != f.Line {
			continue
		}
		if f.Status != "" && h.ReceiptStatus != f.Status {
			continue
		}
		rows = append(rows, m.joined(h))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].SubmittedAt.After(rows[j].SubmittedAt) })
	return rows, nil
}

func (m *memDashboardRepo) GetJoined(_ context.Context, id string) (*repository.HandoverReceiveRow, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	h, ok := m.s.handovers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	row := m.joined(h)
	return &row, nil
}

// ── IDSequenceRepository ──

type memIDSequenceRepo struct {
	s  *memStore
	tx *memTx
}

func (m *memIDSequenceRepo) Lock(_ context.Context, _ int64, _ time.Duration) error {
	if m.s.lockErr != nil {
		return m.s.lockErr
	}
	if m.tx == nil {
		return errors.New("pg_advisory_xact_lock 必须在事务内调用")
	}
	top := m.tx.top()
	if top.idLocked {
		return nil
	}
	m.s.idLock.Lock()
	top.idLocked = true
	return nil
}

func (m *memIDSequenceRepo) MaxIssued(_ context.Context, dayPrefix string) (int, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staleMaxIssued > 0 {
		s.staleMaxIssued--
		return 0, nil
	}
	maxSeq := 0
	for id := range s.handovers {
		rest, ok := strings.CutPrefix(id, dayPrefix)
		if !ok || rest == "" || len(rest) > 9 || strings.Trim(rest, "0123456789") != "" {
			continue
		}
		var n int
		fmt.Sscanf(rest, "%d", &n)
		if n > maxSeq {
			maxSeq = n
		}
	}
	return maxSeq, nil
}

func (m *memIDSequenceRepo) Reserve(_ context.Context, day string, floor int) (int, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, existed := s.sequences[day]
	next := prev
	if floor > next {
		next = floor
	}
	next++
	s.sequences[day] = next
	s.record(m.tx, func() {
		if existed {
			s.sequences[day] = prev
		} else {
			delete(s.sequences, day)
		}
	})
	return next, nil
}

func (m *memIDSequenceRepo) LastReserved(_ context.Context, day string) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.sequences[day], nil
}

// ── 测试辅助 ──

var testNow = time.Date(2026, 1, 15, 8, 30, 0, 123456000, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Handover: config.HandoverConfig{IDPrefix: "HO", Timezone: "UTC"},
		IDGen:    config.IDGenConfig{LockBackend: "postgres", LockKey: 724001},
		Claim:    config.ClaimConfig{LockTimeout: 2 * time.Second},
		Retry:    config.RetryConfig{MaxAttempts: 5},
	}
}

type testEnv struct {
	store    *memStore
	repo     *repository.Repository
	idGen    IDGenerator
	handover HandoverService
	claim    ClaimService
	admin    AdminService
	dash     DashboardService
}

// setupTestEnv 全部服务共享同一个内存存储；重试使用零等待策略
func setupTestEnv() *testEnv {
	cfg := testConfig()
	store := newMemStore()
	repo := store.repository(nil)
	logger := zap.NewNop()
	policy := retry.NoDelay(cfg.Retry.MaxAttempts)

	gen := NewIDGenerator(cfg, repo, NewPostgresIDLocker(&cfg.IDGen), logger)
	gen.(*idGenerator).now = func() time.Time { return testNow }

	hs := NewHandoverService(repo, gen, policy, logger)
	hs.(*handoverService).now = func() time.Time { return testNow }

	return &testEnv{
		store:    store,
		repo:     repo,
		idGen:    gen,
		handover: hs,
		claim:    NewClaimService(cfg, repo, policy, logger),
		admin:    NewAdminService(cfg, repo, policy, logger),
		dash:     NewDashboardService(cfg, repo, logger),
	}
}

func validSubmitRequest(line string) *dto.SubmitHandoverRequest {
	return &dto.SubmitHandoverRequest{
		EmployeeCode: "100001",
		EmployeeName: "Nguyen Van A",
		Line:         line,
		Shift:        "Morning",
		CrewGroup:    "A",
		ReportDate:   "2026-01-15",
		Categories: dto.HandoverCategories{
			FiveS:     dto.CategoryInput{Status: model.StatusOK},
			Safety:    dto.CategoryInput{Status: model.StatusOK},
			Quality:   dto.CategoryInput{Status: model.StatusOK},
			Equipment: dto.CategoryInput{Status: model.StatusOK},
			Plan:      dto.CategoryInput{Status: model.StatusOK},
		},
	}
}

func validClaimRequest(code, name string) *dto.ClaimRequest {
	return &dto.ClaimRequest{
		EmployeeCode: code,
		EmployeeName: name,
		Line:         "LINE-01",
		Shift:        "Afternoon",
		CrewGroup:    "B",
		Categories: dto.ReceiveCategories{
			FiveS:     dto.ConfirmInput{Confirmed: true},
			Safety:    dto.ConfirmInput{Confirmed: true},
			Quality:   dto.ConfirmInput{Confirmed: true},
			Equipment: dto.ConfirmInput{Confirmed: true},
			Plan:      dto.ConfirmInput{Confirmed: true},
		},
	}
}

// mustSubmit 提交一条交接单并返回编号
func (e *testEnv) mustSubmit(t *testing.T, req *dto.SubmitHandoverRequest) string {
	t.Helper()
	resp, err := e.handover.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit 应成功: %v", err)
	}
	return resp.HandoverID
}
