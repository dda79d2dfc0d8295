package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/vietddude/flowpanel/internal/core/domain"
	"github.com/vietddude/flowpanel/internal/infra/storage"
)

// TransferRepo implements storage.TransferRepository using PostgreSQL.
type TransferRepo struct {
	db *DB
}

var _ storage.TransferRepository = (*TransferRepo)(nil)

// NewTransferRepo creates a new PostgreSQL transfer repository.
func NewTransferRepo(db *DB) *TransferRepo {
	return &TransferRepo{db: db}
}

type transferRow struct {
	ID           string         `db:"id"`
	TxID         string         `db:"tx_id"`
	Network      string         `db:"network"`
	Sender       string         `db:"sender"`
	VaultType    string         `db:"vault_type"`
	Receivers    pq.StringArray `db:"receivers"`
	Amounts      pq.StringArray `db:"amounts"`
	State        string         `db:"state"`
	ErrorMessage string         `db:"error_message"`
	CreatedAt    time.Time      `db:"created_at"`
	SealedAt     sql.NullTime   `db:"sealed_at"`
}

func (t *transferRow) toDomain() *domain.TransferRecord {
	rec := &domain.TransferRecord{
		ID:            t.ID,
		TransactionID: t.TxID,
		Network:       domain.NetworkID(t.Network),
		Sender:        t.Sender,
		VaultType:     t.VaultType,
		Receivers:     []string(t.Receivers),
		Amounts:       []string(t.Amounts),
		State:         domain.TxState(t.State),
		ErrorMessage:  t.ErrorMessage,
		CreatedAt:     t.CreatedAt,
	}
	if t.SealedAt.Valid {
		sealed := t.SealedAt.Time
		rec.SealedAt = &sealed
	}
	return rec
}

const selectTransfers = `
	SELECT id, tx_id, network, sender, vault_type, receivers, amounts, state, error_message, created_at, sealed_at
	FROM transfers
`

// Create saves a newly submitted batch.
func (r *TransferRepo) Create(ctx context.Context, rec *domain.TransferRecord) error {
	query := `
		INSERT INTO transfers (
			id, tx_id, network, sender, vault_type, receivers, amounts, state, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.TransactionID, string(rec.Network), rec.Sender, rec.VaultType,
		pq.Array(rec.Receivers), pq.Array(rec.Amounts),
		string(rec.State), rec.ErrorMessage, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save transfer: %w", err)
	}
	return nil
}

// UpdateOutcome stores the sealed state of a transaction.
func (r *TransferRepo) UpdateOutcome(
	ctx context.Context,
	txID string,
	state domain.TxState,
	errorMessage string,
	sealedAt time.Time,
) error {
	query := `UPDATE transfers SET state = $1, error_message = $2, sealed_at = $3 WHERE tx_id = $4`
	res, err := r.db.ExecContext(ctx, query, string(state), errorMessage, sealedAt, txID)
	if err != nil {
		return fmt.Errorf("failed to update transfer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update transfer: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrTransferNotFound, txID)
	}
	return nil
}

// GetByTransactionID retrieves a batch by its transaction id.
func (r *TransferRepo) GetByTransactionID(
	ctx context.Context,
	txID string,
) (*domain.TransferRecord, error) {
	var row transferRow
	err := r.db.GetContext(ctx, &row, selectTransfers+` WHERE tx_id = $1`, txID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	return row.toDomain(), nil
}

// List returns the most recent batches, newest first.
func (r *TransferRepo) List(ctx context.Context, sender string, limit int) ([]*domain.TransferRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []transferRow
	var err error
	if sender != "" {
		err = r.db.SelectContext(ctx, &rows,
			selectTransfers+` WHERE sender = $1 ORDER BY created_at DESC LIMIT $2`, sender, limit)
	} else {
		err = r.db.SelectContext(ctx, &rows,
			selectTransfers+` ORDER BY created_at DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}

	out := make([]*domain.TransferRecord, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// DeleteOlderThan removes batches created before the cutoff.
func (r *TransferRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transfers WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune transfers: %w", err)
	}
	return res.RowsAffected()
}
