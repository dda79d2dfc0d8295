package flow

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vietddude/flowpanel/internal/core/domain"
	"github.com/vietddude/flowpanel/internal/core/network"
)

// ChainProbe verifies that an access node serves the expected chain. It is
// the reconfiguration step of a network switch.
type ChainProbe struct {
	client *Client
}

// NewChainProbe creates a probe.
func NewChainProbe(client *Client) *ChainProbe {
	return &ChainProbe{client: client}
}

// ChainID returns the chain id reported by the access node.
func (p *ChainProbe) ChainID(ctx context.Context, cfg domain.NetworkConfig) (string, error) {
	var params struct {
		ChainID string `json:"chain_id"`
	}
	u := endpoint(cfg.AccessNode, "/v1/network/parameters")
	if err := p.client.call(ctx, cfg.Network, "network_parameters", http.MethodGet, u, nil, &params); err != nil {
		return "", fmt.Errorf("get network parameters: %w", err)
	}
	return params.ChainID, nil
}

// Reconfigure implements network.Reconfigurer.
func (p *ChainProbe) Reconfigure(ctx context.Context, cfg domain.NetworkConfig) error {
	got, err := p.ChainID(ctx, cfg)
	if err != nil {
		return err
	}
	if cfg.ChainID != "" && got != cfg.ChainID {
		return fmt.Errorf("%w: %s reports %q, expected %q", network.ErrChainMismatch, cfg.AccessNode, got, cfg.ChainID)
	}
	p.client.log.Debug("Access node verified", "network", cfg.Network, "chain_id", got)
	return nil
}
