package transfer

import (
	"strings"
	"sync"

	"github.com/vietddude/flowpanel/internal/core/domain"
)

// ParseBulk parses "receiver,amount" lines. Each line is split on its first
// comma and both fields are trimmed; lines leaving either field empty are
// dropped. Line length is not limited.
func ParseBulk(text string) []domain.TransferRow {
	var rows []domain.TransferRow
	for _, line := range strings.Split(text, "\n") {
		receiver, amount, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		receiver = strings.TrimSpace(receiver)
		amount = strings.TrimSpace(amount)
		if receiver == "" || amount == "" {
			continue
		}
		rows = append(rows, domain.TransferRow{Receiver: receiver, Amount: amount})
	}
	return rows
}

// Draft is the editable batch a sender builds before submitting.
type Draft struct {
	mu   sync.Mutex
	rows []domain.TransferRow
}

// NewDraft creates a draft with one empty row.
func NewDraft() *Draft {
	return &Draft{rows: []domain.TransferRow{{}}}
}

// Rows returns a copy of the current rows.
func (d *Draft) Rows() []domain.TransferRow {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.TransferRow(nil), d.rows...)
}

// Add appends a row.
func (d *Draft) Add(row domain.TransferRow) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rows = append(d.rows, row)
}

// Set replaces row i. Out-of-range indexes are ignored.
func (d *Draft) Set(i int, row domain.TransferRow) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= 0 && i < len(d.rows) {
		d.rows[i] = row
	}
}

// Remove deletes row i. Out-of-range indexes are ignored.
func (d *Draft) Remove(i int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= 0 && i < len(d.rows) {
		d.rows = append(d.rows[:i:i], d.rows[i+1:]...)
	}
}

// Replace swaps in a new set of rows.
func (d *Draft) Replace(rows []domain.TransferRow) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rows = append([]domain.TransferRow(nil), rows...)
}

// Import parses bulk text and replaces the draft with the result. It returns
// the number of rows imported.
func (d *Draft) Import(text string) int {
	rows := ParseBulk(text)
	d.Replace(rows)
	return len(rows)
}
