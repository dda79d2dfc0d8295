package domain

import "time"

// TxState is the lifecycle state of a tracked transaction.
type TxState string

const (
	TxStateIdle          TxState = "idle"
	TxStatePending       TxState = "pending"
	TxStateSealedSuccess TxState = "sealed_success"
	TxStateSealedError   TxState = "sealed_error"
)

// TransactionRecord is the transaction currently shown to the user.
type TransactionRecord struct {
	ID           string  `json:"id,omitempty"`
	State        TxState `json:"state"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// SealResult is the outcome of a sealed transaction.
type SealResult struct {
	Success bool
	Message string
}

// SealSuccess returns a successful result.
func SealSuccess() SealResult {
	return SealResult{Success: true}
}

// SealFailure returns a failed result carrying the network's error message.
func SealFailure(msg string) SealResult {
	return SealResult{Message: msg}
}

// TransferRecord is a persisted history entry for a submitted batch.
type TransferRecord struct {
	ID            string     `json:"id"`
	TransactionID string     `json:"transaction_id"`
	Network       NetworkID  `json:"network"`
	Sender        string     `json:"sender"`
	VaultType     string     `json:"vault_type"`
	Receivers     []string   `json:"receivers"`
	Amounts       []string   `json:"amounts"`
	State         TxState    `json:"state"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	SealedAt      *time.Time `json:"sealed_at,omitempty"`
}
