package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/vietddude/flowpanel/internal/core/address"
	"github.com/vietddude/flowpanel/internal/core/domain"
	"github.com/vietddude/flowpanel/internal/core/transfer"
	"github.com/vietddude/flowpanel/internal/metrics"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

type classifyResponse struct {
	Address string           `json:"address"`
	Valid   bool             `json:"valid"`
	Network domain.NetworkID `json:"network"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("address")
	resp := classifyResponse{Address: raw, Network: domain.NetworkUnknown}

	if a, err := address.Parse(raw); err == nil {
		resp.Address = a.String()
		resp.Valid = true
		resp.Network = address.ClassifyAddress(a)
	}
	metrics.AddressClassifications.WithLabelValues(string(resp.Network)).Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Accounts.GetSummary(r.Context(), r.PathValue("address"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withResolvedImages(summary))
}

type transferRequest struct {
	Sender    string               `json:"sender"`
	VaultType string               `json:"vault_type"`
	Transfers []domain.TransferRow `json:"transfers"`
}

type validateResponse struct {
	Valid     bool                `json:"valid"`
	Network   domain.NetworkID    `json:"network"`
	Available decimal.Decimal     `json:"available"`
	Total     *decimal.Decimal    `json:"total,omitempty"`
	Errors    []transfer.RowError `json:"errors,omitempty"`
}

type submitResponse struct {
	TransactionID string `json:"transaction_id"`
}

// checked is a transfer request validated against the sender's balance.
type checked struct {
	network domain.NetworkID
	balance domain.Balance
	batch   transfer.Batch
	errs    []transfer.RowError
}

func (s *Server) check(r *http.Request, req transferRequest) (checked, error) {
	balance, net, err := s.deps.Accounts.Balance(r.Context(), req.Sender, req.VaultType)
	if err != nil {
		return checked{}, err
	}

	v := transfer.Validator{}
	if s.deps.StrictReceiver {
		v.Network = net
	}
	batch, errs := v.Validate(req.Transfers, balance.VaultBalance)
	return checked{network: net, balance: balance, batch: batch, errs: errs}, nil
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !s.decode(w, r, &req) {
		return
	}

	c, err := s.check(r, req)
	if err != nil {
		s.fail(w, err)
		return
	}

	resp := validateResponse{
		Valid:     len(c.errs) == 0,
		Network:   c.network,
		Available: c.balance.VaultBalance,
		Errors:    c.errs,
	}
	if resp.Valid {
		total := c.batch.Total()
		resp.Total = &total
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "import too large")
		return
	}
	rows := transfer.ParseBulk(string(body))
	if rows == nil {
		rows = []domain.TransferRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": rows})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !s.decode(w, r, &req) {
		return
	}

	c, err := s.check(r, req)
	if err != nil {
		s.fail(w, err)
		return
	}
	if len(c.errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, validateResponse{
			Network:   c.network,
			Available: c.balance.VaultBalance,
			Errors:    c.errs,
		})
		return
	}

	sender, _ := address.Parse(req.Sender)
	id, err := s.deps.Tracker.Submit(r.Context(), sender.String(), c.network, domain.TokenFromBalance(c.balance), c.batch)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{TransactionID: id})
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Tracker.Current())
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.deps.Tracker.Dismiss()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusNotFound, "history disabled")
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	sender := r.URL.Query().Get("sender")
	if sender != "" {
		a, err := address.Parse(sender)
		if err != nil {
			s.fail(w, err)
			return
		}
		sender = a.String()
	}

	records, err := s.deps.History.List(r.Context(), sender, limit)
	if err != nil {
		s.log.Error("Failed to list transfers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transfers")
		return
	}
	if records == nil {
		records = []*domain.TransferRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": records})
}

func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusNotFound, "history disabled")
		return
	}
	rec, err := s.deps.History.GetByTransactionID(r.Context(), r.PathValue("txID"))
	if err != nil {
		s.log.Error("Failed to load transfer", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load transfer")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "transfer not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// decode reads a JSON body, answering 400 itself on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
