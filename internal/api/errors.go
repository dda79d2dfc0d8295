package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/vietddude/flowpanel/internal/core/account"
	"github.com/vietddude/flowpanel/internal/core/address"
	"github.com/vietddude/flowpanel/internal/core/network"
	"github.com/vietddude/flowpanel/internal/core/txtracker"
	"github.com/vietddude/flowpanel/internal/infra/flow"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, address.ErrInvalidFormat):
		return http.StatusBadRequest
	case errors.Is(err, network.ErrUnknownNetwork):
		return http.StatusUnprocessableEntity
	case errors.Is(err, account.ErrVaultNotFound):
		return http.StatusNotFound
	case errors.Is(err, network.ErrNetworkNotConfigured),
		errors.Is(err, flow.ErrSubmissionDisabled),
		errors.Is(err, flow.ErrContractNotConfigured),
		errors.Is(err, flow.ErrCircuitOpen),
		errors.Is(err, txtracker.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// Client went away; the status is never seen.
		return 499
	default:
		// Access node, chain id mismatch and gateway failures.
		return http.StatusBadGateway
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.log.Warn("Request failed", "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}
