package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/vietddude/flowpanel/internal/core/domain"
)

// DefaultPollInterval paces transaction result polling.
const DefaultPollInterval = time.Second

// Transaction statuses reported by the Access API.
const (
	StatusPending   = "Pending"
	StatusFinalized = "Finalized"
	StatusExecuted  = "Executed"
	StatusSealed    = "Sealed"
	StatusExpired   = "Expired"
)

// MsgExpired is the failure message of an expired transaction.
const MsgExpired = "transaction expired"

type transactionResult struct {
	BlockID      string `json:"block_id"`
	Status       string `json:"status"`
	StatusCode   int    `json:"status_code"`
	Execution    string `json:"execution"`
	ErrorMessage string `json:"error_message"`
}

// SealPoller waits for seals by polling transaction results.
type SealPoller struct {
	client   *Client
	configs  map[domain.NetworkID]domain.NetworkConfig
	interval time.Duration
	log      *slog.Logger
}

// NewSealPoller creates a poller that asks each network's own access node.
func NewSealPoller(
	client *Client,
	configs map[domain.NetworkID]domain.NetworkConfig,
	interval time.Duration,
) *SealPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &SealPoller{
		client:   client,
		configs:  configs,
		interval: interval,
		log:      client.log.With("component", "seal"),
	}
}

// AwaitSeal polls the access node of the network txID was sent to until the
// transaction is sealed or expired, or ctx is done.
func (p *SealPoller) AwaitSeal(ctx context.Context, network domain.NetworkID, txID string) (domain.SealResult, error) {
	cfg, ok := p.configs[network]
	if !ok {
		return domain.SealResult{}, fmt.Errorf("no configuration for network %s", network)
	}
	u := endpoint(cfg.AccessNode, "/v1/transaction_results/"+url.PathEscape(txID))
	limiter := rate.NewLimiter(rate.Every(p.interval), 1)

	for {
		r := limiter.Reserve()
		select {
		case <-ctx.Done():
			r.Cancel()
			return domain.SealResult{}, ctx.Err()
		case <-time.After(r.Delay()):
		}

		var res transactionResult
		err := p.client.call(ctx, cfg.Network, "transaction_result", http.MethodGet, u, nil, &res)
		if err != nil {
			if ctx.Err() != nil {
				return domain.SealResult{}, ctx.Err()
			}
			var se *StatusError
			if errors.As(err, &se) && se.Code == http.StatusNotFound {
				// Not yet known to this node.
				continue
			}
			return domain.SealResult{}, fmt.Errorf("poll transaction %s: %w", txID, err)
		}

		if result, done := sealOutcome(res); done {
			p.log.Debug("Transaction finished", "tx", txID, "status", res.Status, "success", result.Success)
			return result, nil
		}
	}
}

func sealOutcome(res transactionResult) (domain.SealResult, bool) {
	switch res.Status {
	case StatusSealed:
		if res.ErrorMessage != "" {
			return domain.SealFailure(res.ErrorMessage), true
		}
		if res.Execution == "Failure" {
			return domain.SealFailure("transaction failed"), true
		}
		return domain.SealSuccess(), true
	case StatusExpired:
		return domain.SealFailure(MsgExpired), true
	default:
		return domain.SealResult{}, false
	}
}
