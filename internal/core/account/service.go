// Package account serves account summaries for any Flow address, switching
// the active network to the address's own network first.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vietddude/flowpanel/internal/core/address"
	"github.com/vietddude/flowpanel/internal/core/domain"
	"github.com/vietddude/flowpanel/internal/core/network"
	"github.com/vietddude/flowpanel/internal/metrics"
)

// DefaultQueryTimeout bounds a shared summary query.
const DefaultQueryTimeout = 15 * time.Second

// ErrVaultNotFound is returned when the account holds no vault of the type.
var ErrVaultNotFound = errors.New("vault not found")

// Querier fetches summaries from the network described by cfg.
type Querier interface {
	GetSummary(ctx context.Context, address string, cfg domain.NetworkConfig) (*domain.AccountSummary, error)
}

// Cache stores summaries between queries.
type Cache interface {
	Get(ctx context.Context, network domain.NetworkID, address string) (*domain.AccountSummary, error)
	Set(ctx context.Context, summary *domain.AccountSummary) error
	Invalidate(ctx context.Context, network domain.NetworkID, address string) error
}

// Service resolves account summaries.
type Service struct {
	coord   *network.Coordinator
	query   Querier
	cache   Cache // optional
	timeout time.Duration
	log     *slog.Logger

	group singleflight.Group
}

// NewService creates a service. cache may be nil.
func NewService(coord *network.Coordinator, query Querier, cache Cache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		coord:   coord,
		query:   query,
		cache:   cache,
		timeout: DefaultQueryTimeout,
		log:     log.With("component", "account"),
	}
}

// GetSummary returns the balances of addr. Concurrent lookups of the same
// account share one query.
func (s *Service) GetSummary(ctx context.Context, addr string) (*domain.AccountSummary, error) {
	parsed, err := address.Parse(addr)
	if err != nil {
		return nil, err
	}
	canonical := parsed.String()

	snap, err := s.coord.Acquire(ctx, canonical)
	if err != nil {
		return nil, err
	}
	net := snap.Network()

	if cached := s.cached(ctx, net, canonical); cached != nil {
		return cached, nil
	}

	key := string(net) + ":" + canonical
	ch := s.group.DoChan(key, func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		summary, err := s.query.GetSummary(qctx, canonical, snap.Config)
		if err != nil {
			return nil, fmt.Errorf("query %s on %s: %w", canonical, net, err)
		}
		if s.cache != nil {
			if err := s.cache.Set(qctx, summary); err != nil {
				s.log.Warn("Failed to cache account summary", "address", canonical, "error", err)
			}
		}
		return summary, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.AccountSummary), nil
	}
}

// Balance returns addr's vault of the given type together with its network.
func (s *Service) Balance(ctx context.Context, addr, vaultType string) (domain.Balance, domain.NetworkID, error) {
	summary, err := s.GetSummary(ctx, addr)
	if err != nil {
		return domain.Balance{}, "", err
	}
	for _, b := range summary.Balances {
		if b.VaultType == vaultType {
			return b, summary.Network, nil
		}
	}
	return domain.Balance{}, summary.Network, fmt.Errorf("%w: %s holds no %s", ErrVaultNotFound, summary.Address, vaultType)
}

// Invalidate drops any cached summary of addr, e.g. after it sent tokens.
func (s *Service) Invalidate(ctx context.Context, addr string) {
	if s.cache == nil {
		return
	}
	parsed, err := address.Parse(addr)
	if err != nil {
		return
	}
	net := address.ClassifyAddress(parsed)
	if net == domain.NetworkUnknown {
		return
	}
	if err := s.cache.Invalidate(ctx, net, parsed.String()); err != nil {
		s.log.Warn("Failed to invalidate account summary", "address", addr, "error", err)
	}
}

func (s *Service) cached(ctx context.Context, net domain.NetworkID, addr string) *domain.AccountSummary {
	if s.cache == nil {
		return nil
	}
	summary, err := s.cache.Get(ctx, net, addr)
	if err != nil {
		metrics.SummaryCacheTotal.WithLabelValues("error").Inc()
		s.log.Warn("Summary cache read failed", "address", addr, "error", err)
		return nil
	}
	if summary == nil {
		metrics.SummaryCacheTotal.WithLabelValues("miss").Inc()
		return nil
	}
	metrics.SummaryCacheTotal.WithLabelValues("hit").Inc()
	return summary
}
