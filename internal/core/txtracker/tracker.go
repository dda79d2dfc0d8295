// Package txtracker follows one submitted transfer from submission to seal and
// clears the result after a short dwell.
//
// The tracker is single-flight: at most one transaction id is tracked. Adopting
// a new id first cancels the previous id's seal wait and dwell timer, and every
// asynchronous callback carries the generation it was started for, so results
// for a superseded id are dropped instead of applied.
//
//	Idle --Submit--> Pending --seal ok--> SealedSuccess --dwell--> Idle
//	                         --seal err-> SealedError   --dwell--> Idle
package txtracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/flowpanel/internal/core/domain"
	"github.com/vietddude/flowpanel/internal/core/transfer"
	"github.com/vietddude/flowpanel/internal/infra/storage"
	"github.com/vietddude/flowpanel/internal/metrics"
)

const (
	// DefaultDwell is how long a sealed result stays visible.
	DefaultDwell = 3 * time.Second

	// DefaultSealTimeout bounds one seal wait. Flow expires unsealed
	// transactions after 600 blocks, well within this.
	DefaultSealTimeout = 15 * time.Minute
)

var (
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("tracker closed")

	// ErrEmptyTransactionID is returned when the submitter answers without an id.
	ErrEmptyTransactionID = errors.New("submission returned empty transaction id")

	// ErrSealTimeout is the outcome of a wait that outlived the seal timeout.
	ErrSealTimeout = errors.New("timed out waiting for transaction to seal")
)

// Submitter sends a validated batch and returns the transaction id.
type Submitter interface {
	Submit(ctx context.Context, req domain.TransferRequest) (string, error)
}

// SealWaiter blocks until the transaction sent to network is sealed or ctx
// is done.
type SealWaiter interface {
	AwaitSeal(ctx context.Context, network domain.NetworkID, txID string) (domain.SealResult, error)
}

// Config holds tracker dependencies.
type Config struct {
	Submitter   Submitter
	Waiter      SealWaiter
	History     storage.TransferRepository // optional
	Dwell       time.Duration
	SealTimeout time.Duration
	Logger      *slog.Logger
}

// handle cancels everything associated with one tracked id.
type handle struct {
	network domain.NetworkID
	cancel  context.CancelFunc
	timer   *time.Timer
}

func (h *handle) release() {
	h.cancel()
	if h.timer != nil {
		h.timer.Stop()
	}
}

// Tracker is the single-flight transaction state machine.
type Tracker struct {
	submitter   Submitter
	waiter      SealWaiter
	history     storage.TransferRepository
	dwell       time.Duration
	sealTimeout time.Duration
	log         *slog.Logger

	// base outlives individual ids; Close cancels it.
	base context.Context
	stop context.CancelFunc

	mu        sync.Mutex
	record    domain.TransactionRecord
	gen       uint64
	handle    *handle
	adoptedAt time.Time
	closed    bool
	onChange  func(domain.TransactionRecord)
}

// New creates an idle tracker.
func New(cfg Config) *Tracker {
	if cfg.Dwell <= 0 {
		cfg.Dwell = DefaultDwell
	}
	if cfg.SealTimeout <= 0 {
		cfg.SealTimeout = DefaultSealTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	base, stop := context.WithCancel(context.Background())
	return &Tracker{
		submitter:   cfg.Submitter,
		waiter:      cfg.Waiter,
		history:     cfg.History,
		dwell:       cfg.Dwell,
		sealTimeout: cfg.SealTimeout,
		log:         cfg.Logger.With("component", "txtracker"),
		base:        base,
		stop:        stop,
		record:      domain.TransactionRecord{State: StateIdle},
	}
}

// SetChangeCallback registers fn to observe every state change. It runs with
// the tracker locked and must not call back into the Tracker.
func (t *Tracker) SetChangeCallback(fn func(domain.TransactionRecord)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// Current returns the tracked record. State is Idle when nothing is tracked.
func (t *Tracker) Current() domain.TransactionRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record
}

// Submit sends the batch and, on success, starts tracking the returned id,
// superseding whatever was tracked before. On failure nothing changes.
func (t *Tracker) Submit(
	ctx context.Context,
	sender string,
	network domain.NetworkID,
	token domain.TokenDescriptor,
	batch transfer.Batch,
) (string, error) {
	req := domain.TransferRequest{
		Sender:    sender,
		Network:   network,
		Token:     token,
		Transfers: batch.Transfers(),
	}

	id, err := t.submitter.Submit(ctx, req)
	if err == nil && id == "" {
		err = ErrEmptyTransactionID
	}
	if err != nil {
		metrics.TransfersSubmitted.WithLabelValues("error").Inc()
		t.log.Warn("Transfer submission failed", "sender", sender, "recipients", batch.Len(), "error", err)
		return "", fmt.Errorf("submit transfer: %w", err)
	}
	metrics.TransfersSubmitted.WithLabelValues("ok").Inc()
	metrics.TransferRecipients.Observe(float64(batch.Len()))
	t.recordSubmitted(id, req)

	sealCtx, cancel := context.WithTimeout(t.base, t.sealTimeout)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		cancel()
		return "", ErrClosed
	}
	if t.handle != nil {
		metrics.TransactionsSuperseded.Inc()
		t.log.Info("Superseding tracked transaction", "old", t.record.ID, "new", id)
		t.releaseLocked(true)
	}
	t.gen++
	gen := t.gen
	t.handle = &handle{network: network, cancel: cancel}
	t.adoptedAt = time.Now()
	t.setLocked(domain.TransactionRecord{ID: id, State: StatePending})
	t.mu.Unlock()

	t.log.Info("Tracking transaction", "tx", id, "recipients", batch.Len(), "total", batch.Total().String())

	go t.await(sealCtx, gen, network, id)
	return id, nil
}

// Dismiss stops tracking immediately, as when the user navigates away.
// A late seal result for the abandoned id is not displayed but still lands
// in history.
func (t *Tracker) Dismiss() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked(true)
}

// Close dismisses the tracked id and rejects further submissions.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked(false)
	t.closed = true
	t.stop()
}

func (t *Tracker) resetLocked(keepHistory bool) {
	if t.handle == nil {
		return
	}
	if t.record.State == StatePending {
		metrics.TransactionsSuperseded.Inc()
	}
	t.releaseLocked(keepHistory)
	t.gen++
	t.setLocked(domain.TransactionRecord{State: StateIdle})
}

// releaseLocked cancels the tracked id's wait and timer. An id still pending
// keeps a history-only wait so its row gets an outcome.
func (t *Tracker) releaseLocked(keepHistory bool) {
	h := t.handle
	h.release()
	t.handle = nil
	if keepHistory && t.history != nil && t.record.State == StatePending {
		go t.finishDetached(h.network, t.record.ID)
	}
}

// outcome turns a seal wait result into the record shown to the user.
func outcome(id string, res domain.SealResult, err error) domain.TransactionRecord {
	rec := domain.TransactionRecord{ID: id, State: StateSealedSuccess}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		rec.State = StateSealedError
		rec.ErrorMessage = ErrSealTimeout.Error()
	case err != nil:
		rec.State = StateSealedError
		rec.ErrorMessage = err.Error()
	case !res.Success:
		rec.State = StateSealedError
		rec.ErrorMessage = res.Message
		if rec.ErrorMessage == "" {
			rec.ErrorMessage = "transaction failed"
		}
	}
	return rec
}

func (t *Tracker) await(ctx context.Context, gen uint64, network domain.NetworkID, id string) {
	res, err := t.waiter.AwaitSeal(ctx, network, id)
	if errors.Is(err, context.Canceled) {
		t.log.Debug("Seal wait abandoned", "tx", id)
		return
	}
	rec := outcome(id, res, err)

	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		t.log.Debug("Dropping result for superseded transaction", "tx", id)
		t.recordOutcome(rec)
		return
	}
	t.setLocked(rec)
	t.handle.timer = time.AfterFunc(t.dwell, func() { t.expire(gen) })
	latency := time.Since(t.adoptedAt)
	t.mu.Unlock()

	metrics.TransactionsSealed.WithLabelValues(string(rec.State)).Inc()
	metrics.SealLatency.Observe(latency.Seconds())
	if rec.State == StateSealedError {
		t.log.Warn("Transaction sealed with error", "tx", id, "error", rec.ErrorMessage)
	} else {
		t.log.Info("Transaction sealed", "tx", id, "latency", latency)
	}
	t.recordOutcome(rec)
}

// finishDetached waits for a superseded id only to record its outcome.
func (t *Tracker) finishDetached(network domain.NetworkID, id string) {
	ctx, cancel := context.WithTimeout(t.base, t.sealTimeout)
	defer cancel()

	res, err := t.waiter.AwaitSeal(ctx, network, id)
	if errors.Is(err, context.Canceled) {
		return
	}
	t.recordOutcome(outcome(id, res, err))
}

func (t *Tracker) expire(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		return
	}
	t.handle.release()
	t.handle = nil
	t.setLocked(domain.TransactionRecord{State: StateIdle})
}

func (t *Tracker) setLocked(rec domain.TransactionRecord) {
	if !CanTransition(t.record.State, rec.State) {
		t.log.Error("Invalid transaction state transition",
			"from", t.record.State, "to", rec.State, "error", ErrInvalidTransition)
	}
	t.record = rec
	if t.onChange != nil {
		t.onChange(rec)
	}
}

func (t *Tracker) recordSubmitted(id string, req domain.TransferRequest) {
	if t.history == nil {
		return
	}
	rec := &domain.TransferRecord{
		ID:            uuid.NewString(),
		TransactionID: id,
		Network:       req.Network,
		Sender:        req.Sender,
		VaultType:     req.Token.VaultType,
		State:         StatePending,
		CreatedAt:     time.Now().UTC(),
	}
	for _, tr := range req.Transfers {
		rec.Receivers = append(rec.Receivers, tr.Receiver)
		rec.Amounts = append(rec.Amounts, tr.Amount.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.history.Create(ctx, rec); err != nil {
		metrics.HistoryWriteErrors.Inc()
		t.log.Warn("Failed to record transfer", "tx", id, "error", err)
	}
}

func (t *Tracker) recordOutcome(rec domain.TransactionRecord) {
	if t.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.history.UpdateOutcome(ctx, rec.ID, rec.State, rec.ErrorMessage, time.Now().UTC()); err != nil {
		metrics.HistoryWriteErrors.Inc()
		t.log.Warn("Failed to record transfer outcome", "tx", rec.ID, "error", err)
	}
}
