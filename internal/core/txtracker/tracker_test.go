package txtracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vietddude/flowpanel/internal/core/domain"
	"github.com/vietddude/flowpanel/internal/core/transfer"
	"github.com/vietddude/flowpanel/internal/infra/storage/memory"
)

const testDwell = 50 * time.Millisecond

// mockSubmitter returns queued ids in order.
type mockSubmitter struct {
	mu   sync.Mutex
	ids  []string
	err  error
	reqs []domain.TransferRequest
}

func (m *mockSubmitter) Submit(ctx context.Context, req domain.TransferRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, req)
	if m.err != nil {
		return "", m.err
	}
	id := m.ids[0]
	m.ids = m.ids[1:]
	return id, nil
}

type sealReply struct {
	res domain.SealResult
	err error
}

// mockWaiter resolves a transaction when the test sends on its channel.
// With ignoreCtx set it keeps waiting after cancellation, like a collaborator
// that delivers a late result.
type mockWaiter struct {
	mu        sync.Mutex
	chans     map[string]chan sealReply
	networks  map[string]domain.NetworkID
	ignoreCtx bool
}

func newMockWaiter() *mockWaiter {
	return &mockWaiter{
		chans:    make(map[string]chan sealReply),
		networks: make(map[string]domain.NetworkID),
	}
}

func (m *mockWaiter) network(id string) domain.NetworkID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.networks[id]
}

func (m *mockWaiter) ch(id string) chan sealReply {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chans[id]
	if !ok {
		c = make(chan sealReply, 1)
		m.chans[id] = c
	}
	return c
}

func (m *mockWaiter) AwaitSeal(ctx context.Context, network domain.NetworkID, txID string) (domain.SealResult, error) {
	m.mu.Lock()
	m.networks[txID] = network
	m.mu.Unlock()

	c := m.ch(txID)
	if m.ignoreCtx {
		r := <-c
		return r.res, r.err
	}
	select {
	case r := <-c:
		return r.res, r.err
	case <-ctx.Done():
		return domain.SealResult{}, ctx.Err()
	}
}

func (m *mockWaiter) resolve(id string, res domain.SealResult, err error) {
	m.ch(id) <- sealReply{res: res, err: err}
}

// recorder captures every state change.
type recorder struct {
	mu      sync.Mutex
	changes []domain.TransactionRecord
}

func (r *recorder) record(rec domain.TransactionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, rec)
}

func (r *recorder) all() []domain.TransactionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.TransactionRecord(nil), r.changes...)
}

func testBatch(t *testing.T) transfer.Batch {
	t.Helper()
	batch, errs := transfer.Validator{}.Validate([]domain.TransferRow{
		{Receiver: "0x01cf0e2f2f715450", Amount: "1"},
		{Receiver: "0x179b6b1cb6755e31", Amount: "2"},
	}, decimal.NewFromInt(5))
	if len(errs) != 0 {
		t.Fatalf("unexpected validation errors: %+v", errs)
	}
	return batch
}

func waitFor(t *testing.T, tr *Tracker, want State) domain.TransactionRecord {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rec := tr.Current(); rec.State == want {
			return rec
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, current %+v", want, tr.Current())
	return domain.TransactionRecord{}
}

func submit(t *testing.T, tr *Tracker) string {
	t.Helper()
	id, err := tr.Submit(context.Background(), "0xf8d6e0586b0a20c7", domain.NetworkEmulator,
		domain.TokenDescriptor{VaultType: "A.0ae53cb6e3f42a79.FlowToken.Vault", StoragePath: "/storage/flowTokenVault"},
		testBatch(t))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	return id
}

func TestTracker_SuccessThenIdle(t *testing.T) {
	waiter := newMockWaiter()
	rec := &recorder{}
	tr := New(Config{
		Submitter: &mockSubmitter{ids: []string{"X"}},
		Waiter:    waiter,
		Dwell:     testDwell,
	})
	tr.SetChangeCallback(rec.record)
	defer tr.Close()

	if tr.Current().State != StateIdle {
		t.Fatalf("expected idle initially")
	}

	if id := submit(t, tr); id != "X" {
		t.Fatalf("expected id X, got %s", id)
	}
	if got := tr.Current(); got.State != StatePending || got.ID != "X" {
		t.Fatalf("expected pending X, got %+v", got)
	}

	waiter.resolve("X", domain.SealSuccess(), nil)
	sealed := waitFor(t, tr, StateSealedSuccess)
	if sealed.ID != "X" || sealed.ErrorMessage != "" {
		t.Errorf("unexpected sealed record %+v", sealed)
	}

	idle := waitFor(t, tr, StateIdle)
	if idle.ID != "" {
		t.Errorf("idle record should clear the id, got %+v", idle)
	}

	changes := rec.all()
	wantStates := []State{StatePending, StateSealedSuccess, StateIdle}
	if len(changes) != len(wantStates) {
		t.Fatalf("expected %d transitions, got %+v", len(wantStates), changes)
	}
	for i, c := range changes {
		if c.State != wantStates[i] {
			t.Errorf("transition %d: got %s, want %s", i, c.State, wantStates[i])
		}
		if c.ErrorMessage != "" {
			t.Errorf("transition %d displayed an error: %q", i, c.ErrorMessage)
		}
	}
}

func TestTracker_DwellHoldsResult(t *testing.T) {
	waiter := newMockWaiter()
	tr := New(Config{
		Submitter: &mockSubmitter{ids: []string{"X"}},
		Waiter:    waiter,
		Dwell:     200 * time.Millisecond,
	})
	defer tr.Close()

	submit(t, tr)
	waiter.resolve("X", domain.SealSuccess(), nil)
	waitFor(t, tr, StateSealedSuccess)

	time.Sleep(50 * time.Millisecond)
	if tr.Current().State != StateSealedSuccess {
		t.Errorf("result dismissed before the dwell interval")
	}
	waitFor(t, tr, StateIdle)
}

func TestTracker_SealFailure(t *testing.T) {
	waiter := newMockWaiter()
	tr := New(Config{
		Submitter: &mockSubmitter{ids: []string{"X"}},
		Waiter:    waiter,
		Dwell:     testDwell,
	})
	defer tr.Close()

	submit(t, tr)
	waiter.resolve("X", domain.SealFailure("[Error Code: 1101] insufficient balance"), nil)

	rec := waitFor(t, tr, StateSealedError)
	if rec.ErrorMessage != "[Error Code: 1101] insufficient balance" {
		t.Errorf("unexpected error message %q", rec.ErrorMessage)
	}
	waitFor(t, tr, StateIdle)
}

func TestTracker_WaiterErrorBecomesSealedError(t *testing.T) {
	waiter := newMockWaiter()
	tr := New(Config{
		Submitter: &mockSubmitter{ids: []string{"X"}},
		Waiter:    waiter,
		Dwell:     testDwell,
	})
	defer tr.Close()

	submit(t, tr)
	waiter.resolve("X", domain.SealResult{}, errors.New("access node unreachable"))

	rec := waitFor(t, tr, StateSealedError)
	if rec.ErrorMessage != "access node unreachable" {
		t.Errorf("unexpected error message %q", rec.ErrorMessage)
	}
}

func TestTracker_SubmitFailureStaysIdle(t *testing.T) {
	boom := errors.New("wallet rejected")
	tr := New(Config{
		Submitter: &mockSubmitter{err: boom},
		Waiter:    newMockWaiter(),
		Dwell:     testDwell,
	})
	defer tr.Close()

	_, err := tr.Submit(context.Background(), "0xf8d6e0586b0a20c7", domain.NetworkEmulator,
		domain.TokenDescriptor{}, testBatch(t))
	if !errors.Is(err, boom) {
		t.Fatalf("expected submit error, got %v", err)
	}
	if rec := tr.Current(); rec.State != StateIdle || rec.ID != "" {
		t.Errorf("tracker must stay idle after a failed submission, got %+v", rec)
	}
}

func TestTracker_SupersedeIgnoresLateResult(t *testing.T) {
	waiter := newMockWaiter()
	waiter.ignoreCtx = true
	rec := &recorder{}
	tr := New(Config{
		Submitter: &mockSubmitter{ids: []string{"X", "Y"}},
		Waiter:    waiter,
		Dwell:     testDwell,
	})
	tr.SetChangeCallback(rec.record)
	defer tr.Close()

	submit(t, tr)
	submit(t, tr)
	if got := tr.Current(); got.ID != "Y" || got.State != StatePending {
		t.Fatalf("expected pending Y, got %+v", got)
	}

	// X resolves after being superseded.
	waiter.resolve("X", domain.SealFailure("X failed"), nil)
	time.Sleep(30 * time.Millisecond)

	if got := tr.Current(); got.ID != "Y" || got.State != StatePending {
		t.Fatalf("late X result changed state: %+v", got)
	}

	waiter.resolve("Y", domain.SealSuccess(), nil)
	waitFor(t, tr, StateSealedSuccess)
	waitFor(t, tr, StateIdle)

	for _, c := range rec.all() {
		if c.ID == "X" && c.State != StatePending {
			t.Errorf("superseded X produced a visible transition: %+v", c)
		}
	}
}

func TestTracker_SupersedeCancelsDwellTimer(t *testing.T) {
	waiter := newMockWaiter()
	tr := New(Config{
		Submitter: &mockSubmitter{ids: []string{"X", "Y"}},
		Waiter:    waiter,
		Dwell:     testDwell,
	})
	defer tr.Close()

	submit(t, tr)
	waiter.resolve("X", domain.SealSuccess(), nil)
	waitFor(t, tr, StateSealedSuccess)

	// Y adopted while X's result is on display.
	submit(t, tr)
	time.Sleep(2 * testDwell)

	if got := tr.Current(); got.ID != "Y" || got.State != StatePending {
		t.Errorf("X's dwell timer reset Y: %+v", got)
	}
}

func TestTracker_SupersedeCancelsSealWait(t *testing.T) {
	waiter := &ctxWaiter{started: make(chan context.Context, 2)}
	tr := New(Config{
		Submitter: &mockSubmitter{ids: []string{"X", "Y"}},
		Waiter:    waiter,
		Dwell:     testDwell,
	})
	defer tr.Close()

	submit(t, tr)
	xCtx := <-waiter.started
	submit(t, tr)

	select {
	case <-xCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("seal wait for X was not cancelled")
	}
}

type ctxWaiter struct {
	started chan context.Context
}

func (w *ctxWaiter) AwaitSeal(ctx context.Context, network domain.NetworkID, txID string) (domain.SealResult, error) {
	w.started <- ctx
	<-ctx.Done()
	return domain.SealResult{}, ctx.Err()
}

func TestTracker_Dismiss(t *testing.T) {
	waiter := newMockWaiter()
	waiter.ignoreCtx = true
	tr := New(Config{
		Submitter: &mockSubmitter{ids: []string{"X"}},
		Waiter:    waiter,
		Dwell:     testDwell,
	})
	defer tr.Close()

	submit(t, tr)
	tr.Dismiss()
	if got := tr.Current(); got.State != StateIdle {
		t.Fatalf("expected idle after dismiss, got %+v", got)
	}

	waiter.resolve("X", domain.SealSuccess(), nil)
	time.Sleep(30 * time.Millisecond)
	if got := tr.Current(); got.State != StateIdle {
		t.Errorf("late result applied after dismiss: %+v", got)
	}
}

func TestTracker_CloseRejectsSubmit(t *testing.T) {
	tr := New(Config{
		Submitter: &mockSubmitter{ids: []string{"X"}},
		Waiter:    newMockWaiter(),
	})
	tr.Close()

	_, err := tr.Submit(context.Background(), "0xf8d6e0586b0a20c7", domain.NetworkEmulator,
		domain.TokenDescriptor{}, testBatch(t))
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestTracker_RecordsHistory(t *testing.T) {
	store := memory.NewMemoryStorage()
	repo := memory.NewTransferRepo(store)
	waiter := newMockWaiter()
	tr := New(Config{
		Submitter: &mockSubmitter{ids: []string{"X"}},
		Waiter:    waiter,
		History:   repo,
		Dwell:     testDwell,
	})
	defer tr.Close()

	submit(t, tr)
	waiter.resolve("X", domain.SealFailure("boom"), nil)
	waitFor(t, tr, StateSealedError)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		rec, err := repo.GetByTransactionID(context.Background(), "X")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec != nil && rec.State == StateSealedError {
			if len(rec.Receivers) != 2 || rec.Amounts[1] != "2" {
				t.Errorf("unexpected history rows %+v", rec)
			}
			if rec.ErrorMessage != "boom" || rec.SealedAt == nil {
				t.Errorf("outcome not recorded: %+v", rec)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("history outcome never recorded")
}

func TestTracker_WaitsOnSubmissionNetwork(t *testing.T) {
	waiter := newMockWaiter()
	tr := New(Config{
		Submitter: &mockSubmitter{ids: []string{"X"}},
		Waiter:    waiter,
		Dwell:     testDwell,
	})
	defer tr.Close()

	_, err := tr.Submit(context.Background(), "0x40387cea622425a3", domain.NetworkTestnet,
		domain.TokenDescriptor{VaultType: "A.7e60df042a9c0868.FlowToken.Vault", StoragePath: "/storage/flowTokenVault"},
		testBatch(t))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	waiter.resolve("X", domain.SealSuccess(), nil)
	waitFor(t, tr, StateSealedSuccess)

	if got := waiter.network("X"); got != domain.NetworkTestnet {
		t.Errorf("seal wait used network %q, want testnet", got)
	}
}

func TestTracker_SealTimeout(t *testing.T) {
	tr := New(Config{
		Submitter:   &mockSubmitter{ids: []string{"X"}},
		Waiter:      newMockWaiter(),
		Dwell:       testDwell,
		SealTimeout: 30 * time.Millisecond,
	})
	defer tr.Close()

	submit(t, tr)
	rec := waitFor(t, tr, StateSealedError)
	if rec.ErrorMessage != ErrSealTimeout.Error() {
		t.Errorf("unexpected error message %q", rec.ErrorMessage)
	}
	waitFor(t, tr, StateIdle)
}

// waitForHistory polls the repository until id reaches state.
func waitForHistory(t *testing.T, repo *memory.TransferRepo, id string, want State) *domain.TransferRecord {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := repo.GetByTransactionID(context.Background(), id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec != nil && rec.State == want {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("history for %s never reached %s", id, want)
	return nil
}

func TestTracker_SupersededOutcomeRecorded(t *testing.T) {
	repo := memory.NewTransferRepo(memory.NewMemoryStorage())
	waiter := newMockWaiter()
	tr := New(Config{
		Submitter: &mockSubmitter{ids: []string{"X", "Y"}},
		Waiter:    waiter,
		History:   repo,
		Dwell:     testDwell,
	})
	defer tr.Close()

	submit(t, tr)
	submit(t, tr)
	waiter.resolve("X", domain.SealSuccess(), nil)
	waiter.resolve("Y", domain.SealSuccess(), nil)

	x := waitForHistory(t, repo, "X", StateSealedSuccess)
	if x.SealedAt == nil {
		t.Errorf("superseded X has no seal time: %+v", x)
	}
	waitForHistory(t, repo, "Y", StateSealedSuccess)

	if got := tr.Current(); got.ID == "X" {
		t.Errorf("superseded X displayed: %+v", got)
	}
}

func TestTracker_DismissedOutcomeRecorded(t *testing.T) {
	repo := memory.NewTransferRepo(memory.NewMemoryStorage())
	waiter := newMockWaiter()
	tr := New(Config{
		Submitter: &mockSubmitter{ids: []string{"X"}},
		Waiter:    waiter,
		History:   repo,
		Dwell:     testDwell,
	})
	defer tr.Close()

	submit(t, tr)
	tr.Dismiss()
	waiter.resolve("X", domain.SealFailure("boom"), nil)

	rec := waitForHistory(t, repo, "X", StateSealedError)
	if rec.ErrorMessage != "boom" {
		t.Errorf("unexpected error message %q", rec.ErrorMessage)
	}
	if got := tr.Current(); got.State != StateIdle {
		t.Errorf("dismissed result displayed: %+v", got)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StatePending, true},
		{StateIdle, StateSealedSuccess, false},
		{StatePending, StateSealedError, true},
		{StatePending, StatePending, true},
		{StateSealedSuccess, StateSealedError, false},
		{StateSealedError, StateIdle, true},
		{StateSealedSuccess, StatePending, true},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
