package flow

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/vietddude/flowpanel/internal/core/domain"
)

// ErrSubmissionDisabled is returned when no submission gateway is configured.
var ErrSubmissionDisabled = errors.New("submission gateway not configured")

// submitRequest is the body posted to the gateway. The gateway signs with
// the authorizer's key, sends, and answers with the transaction id.
type submitRequest struct {
	Network    domain.NetworkID `json:"network"`
	Authorizer string           `json:"authorizer"`
	Cadence    string           `json:"cadence"`
	Arguments  []Value          `json:"arguments"`
}

type submitResponse struct {
	TransactionID string `json:"transactionId"`
}

// Submitter forwards batch transfer transactions to the submission gateway.
type Submitter struct {
	client  *Client
	url     string
	configs map[domain.NetworkID]domain.NetworkConfig
}

// NewSubmitter creates a submitter posting to gatewayURL. Submissions are
// never retried since the gateway may already have sent the transaction.
func NewSubmitter(client *Client, gatewayURL string, configs map[domain.NetworkID]domain.NetworkConfig) *Submitter {
	return &Submitter{
		client:  client.WithRetry(RetryConfig{MaxAttempts: 1}),
		url:     gatewayURL,
		configs: configs,
	}
}

// Submit implements txtracker.Submitter.
func (s *Submitter) Submit(ctx context.Context, req domain.TransferRequest) (string, error) {
	if s.url == "" {
		return "", ErrSubmissionDisabled
	}
	cfg, ok := s.configs[req.Network]
	if !ok {
		return "", fmt.Errorf("no configuration for network %s", req.Network)
	}

	body, err := BuildBatchTransfer(req, cfg)
	if err != nil {
		return "", err
	}

	var resp submitResponse
	if err := s.client.call(ctx, req.Network, "submit", http.MethodPost, s.url, body, &resp); err != nil {
		return "", fmt.Errorf("submit batch: %w", err)
	}
	return resp.TransactionID, nil
}

// BuildBatchTransfer renders the batch transaction and its arguments.
func BuildBatchTransfer(req domain.TransferRequest, cfg domain.NetworkConfig) (*submitRequest, error) {
	code, err := resolveImports(batchTransferTransaction, cfg)
	if err != nil {
		return nil, err
	}

	path, err := ParsePath(req.Token.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("token storage path: %w", err)
	}

	recipients := make([]Value, 0, len(req.Transfers))
	amounts := make([]Value, 0, len(req.Transfers))
	for i, t := range req.Transfers {
		amount, err := UFix64Value(t.Amount)
		if err != nil {
			return nil, fmt.Errorf("transfer %d: %w", i, err)
		}
		recipients = append(recipients, AddressValue(t.Receiver))
		amounts = append(amounts, amount)
	}

	return &submitRequest{
		Network:    req.Network,
		Authorizer: req.Sender,
		Cadence:    code,
		Arguments: []Value{
			ArrayValue(recipients),
			ArrayValue(amounts),
			StringValue(req.Token.VaultType),
			PathValue(path),
		},
	}, nil
}
