package domain

import "github.com/shopspring/decimal"

// TransferRow is one recipient line of a batch, as entered.
type TransferRow struct {
	Receiver string `json:"receiver"`
	Amount   string `json:"amount"`
}

// Transfer is a validated row.
type Transfer struct {
	Receiver string
	Amount   decimal.Decimal
}

// TokenDescriptor identifies the vault a batch withdraws from.
type TokenDescriptor struct {
	VaultType   string `json:"vault_type"`
	StoragePath string `json:"storage_path"`
}

// TokenFromBalance builds the descriptor for a balance entry.
func TokenFromBalance(b Balance) TokenDescriptor {
	return TokenDescriptor{VaultType: b.VaultType, StoragePath: b.StoragePath}
}

// TransferRequest is a validated batch ready for the submission service.
type TransferRequest struct {
	Sender    string          `json:"sender"`
	Network   NetworkID       `json:"network"`
	Token     TokenDescriptor `json:"token"`
	Transfers []Transfer      `json:"transfers"`
}
