// Package transfer validates batches of token transfers before submission.
package transfer

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vietddude/flowpanel/internal/core/address"
	"github.com/vietddude/flowpanel/internal/core/domain"
)

// Validation messages, shown next to the offending field.
const (
	MsgInvalidAddress  = "Must be a valid address"
	MsgWrongNetwork    = "Address belongs to a different network"
	MsgNotANumber      = "Amount must be a number"
	MsgNotPositive     = "Amount must be greater than 0"
	MsgExceedsBalance  = "Amount cannot exceed your balance"
	MsgTooPrecise      = "Amount cannot have more than 8 decimal places"
	MsgEmptyBatch      = "At least one transfer is required"
	FieldReceiver      = "receiver"
	FieldAmount        = "amount"
	FieldBatch         = "batch"
	batchLevelRowIndex = -1

	// AmountDecimals is the precision of Cadence UFix64 amounts.
	AmountDecimals = 8
)

// RowError describes one failed check. Row is -1 for batch-level errors.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Batch is a validated, immutable list of transfers.
type Batch struct {
	transfers []domain.Transfer
}

// Transfers returns a copy of the validated transfers.
func (b Batch) Transfers() []domain.Transfer {
	return append([]domain.Transfer(nil), b.transfers...)
}

// Len returns the number of transfers.
func (b Batch) Len() int {
	return len(b.transfers)
}

// Total returns the sum of all amounts.
func (b Batch) Total() decimal.Decimal {
	total := decimal.Zero
	for _, t := range b.transfers {
		total = total.Add(t.Amount)
	}
	return total
}

// Receivers returns the receiver addresses in order.
func (b Batch) Receivers() []string {
	out := make([]string, len(b.transfers))
	for i, t := range b.transfers {
		out[i] = t.Receiver
	}
	return out
}

// Amounts returns the amounts in order.
func (b Batch) Amounts() []decimal.Decimal {
	out := make([]decimal.Decimal, len(b.transfers))
	for i, t := range b.transfers {
		out[i] = t.Amount
	}
	return out
}

// Validator checks rows against the sender's available balance.
type Validator struct {
	// Network, when set, requires every receiver to classify into it.
	Network domain.NetworkID
}

// ValidateRow returns the errors for a single row.
func (v Validator) ValidateRow(i int, row domain.TransferRow, available decimal.Decimal) []RowError {
	var errs []RowError
	if msg := v.checkReceiver(row.Receiver); msg != "" {
		errs = append(errs, RowError{Row: i, Field: FieldReceiver, Message: msg})
	}
	if _, msg := checkAmount(row.Amount, available); msg != "" {
		errs = append(errs, RowError{Row: i, Field: FieldAmount, Message: msg})
	}
	return errs
}

// Validate checks every row. The batch is usable only when no errors are returned.
// The balance is checked per row, as the sender sees it now; it is not
// re-checked at submission.
func (v Validator) Validate(rows []domain.TransferRow, available decimal.Decimal) (Batch, []RowError) {
	if len(rows) == 0 {
		return Batch{}, []RowError{{Row: batchLevelRowIndex, Field: FieldBatch, Message: MsgEmptyBatch}}
	}

	var errs []RowError
	transfers := make([]domain.Transfer, 0, len(rows))
	for i, row := range rows {
		rowErrs := v.ValidateRow(i, row, available)
		if len(rowErrs) > 0 {
			errs = append(errs, rowErrs...)
			continue
		}
		amount, _ := checkAmount(row.Amount, available)
		transfers = append(transfers, domain.Transfer{Receiver: row.Receiver, Amount: amount})
	}

	if len(errs) > 0 {
		return Batch{}, errs
	}
	return Batch{transfers: transfers}, nil
}

func (v Validator) checkReceiver(receiver string) string {
	if receiver == "" || !strings.HasPrefix(receiver, "0x") {
		return MsgInvalidAddress
	}
	if v.Network != "" && v.Network != domain.NetworkUnknown {
		if address.Classify(receiver) != v.Network {
			return MsgWrongNetwork
		}
	}
	return ""
}

func checkAmount(raw string, available decimal.Decimal) (decimal.Decimal, string) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, MsgNotANumber
	}
	if !amount.IsPositive() {
		return decimal.Zero, MsgNotPositive
	}
	if !amount.Equal(amount.Truncate(AmountDecimals)) {
		return decimal.Zero, MsgTooPrecise
	}
	if amount.GreaterThan(available) {
		return decimal.Zero, MsgExceedsBalance
	}
	return amount, ""
}
