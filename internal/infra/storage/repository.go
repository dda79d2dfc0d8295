package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/flowpanel/internal/core/domain"
)

var (
	// ErrTransferNotFound is returned when no history row matches a transaction id
	ErrTransferNotFound = errors.New("transfer not found")
)

// TransferRepository records submitted batches and their outcomes
type TransferRepository interface {
	// Create saves a newly submitted batch
	Create(ctx context.Context, rec *domain.TransferRecord) error

	// UpdateOutcome stores the sealed state of a transaction
	UpdateOutcome(
		ctx context.Context,
		txID string,
		state domain.TxState,
		errorMessage string,
		sealedAt time.Time,
	) error

	// GetByTransactionID retrieves a batch by its transaction id, nil if absent
	GetByTransactionID(ctx context.Context, txID string) (*domain.TransferRecord, error)

	// List returns the most recent batches, newest first, optionally filtered by sender
	List(ctx context.Context, sender string, limit int) ([]*domain.TransferRecord, error)

	// DeleteOlderThan removes batches created before the cutoff and returns how many
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
