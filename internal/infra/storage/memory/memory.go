package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/flowpanel/internal/core/domain"
	"github.com/vietddude/flowpanel/internal/infra/storage"
)

type MemoryStorage struct {
	transfers map[string]*domain.TransferRecord // keyed by transaction id
	mu        sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		transfers: make(map[string]*domain.TransferRecord),
	}
}

// -----------------------------------------------------------------------------
// Transfer Repository
// -----------------------------------------------------------------------------

type TransferRepo struct {
	store *MemoryStorage
}

var _ storage.TransferRepository = (*TransferRepo)(nil)

func NewTransferRepo(store *MemoryStorage) *TransferRepo {
	return &TransferRepo{store: store}
}

func (r *TransferRepo) Create(ctx context.Context, rec *domain.TransferRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.transfers[rec.TransactionID]; ok {
		return fmt.Errorf("transfer %s already recorded", rec.TransactionID)
	}
	r.store.transfers[rec.TransactionID] = clone(rec)
	return nil
}

func (r *TransferRepo) UpdateOutcome(
	ctx context.Context,
	txID string,
	state domain.TxState,
	errorMessage string,
	sealedAt time.Time,
) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rec, ok := r.store.transfers[txID]
	if !ok {
		return fmt.Errorf("%w: %s", storage.ErrTransferNotFound, txID)
	}
	rec.State = state
	rec.ErrorMessage = errorMessage
	rec.SealedAt = &sealedAt
	return nil
}

func (r *TransferRepo) GetByTransactionID(ctx context.Context, txID string) (*domain.TransferRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	rec, ok := r.store.transfers[txID]
	if !ok {
		return nil, nil
	}
	return clone(rec), nil
}

func (r *TransferRepo) List(ctx context.Context, sender string, limit int) ([]*domain.TransferRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*domain.TransferRecord
	for _, rec := range r.store.transfers {
		if sender != "" && rec.Sender != sender {
			continue
		}
		out = append(out, clone(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clone(rec *domain.TransferRecord) *domain.TransferRecord {
	c := *rec
	c.Receivers = append([]string(nil), rec.Receivers...)
	c.Amounts = append([]string(nil), rec.Amounts...)
	if rec.SealedAt != nil {
		t := *rec.SealedAt
		c.SealedAt = &t
	}
	return &c
}

func (r *TransferRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for id, rec := range r.store.transfers {
		if rec.CreatedAt.Before(cutoff) {
			delete(r.store.transfers, id)
			n++
		}
	}
	return n, nil
}
