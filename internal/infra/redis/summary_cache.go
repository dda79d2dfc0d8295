package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/flowpanel/internal/core/domain"
)

// DefaultSummaryTTL bounds how stale a cached balance can be.
const DefaultSummaryTTL = 15 * time.Second

// SummaryCache caches account summaries per network and address.
type SummaryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSummaryCache creates a cache on top of the shared client.
func NewSummaryCache(client *Client, ttl time.Duration) *SummaryCache {
	if ttl <= 0 {
		ttl = DefaultSummaryTTL
	}
	return &SummaryCache{rdb: client.rdb, ttl: ttl}
}

// Key helpers
func summaryKey(network domain.NetworkID, address string) string {
	return fmt.Sprintf("account_summary:%s:%s", network, address)
}

// Get returns the cached summary, or nil on a miss.
func (c *SummaryCache) Get(
	ctx context.Context,
	network domain.NetworkID,
	address string,
) (*domain.AccountSummary, error) {
	data, err := c.rdb.Get(ctx, summaryKey(network, address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}

	var summary domain.AccountSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return &summary, nil
}

// Set stores a summary with the cache TTL.
func (c *SummaryCache) Set(ctx context.Context, summary *domain.AccountSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	key := summaryKey(summary.Network, summary.Address)
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// Invalidate drops the cached summary, e.g. after the account sent a transfer.
func (c *SummaryCache) Invalidate(ctx context.Context, network domain.NetworkID, address string) error {
	return c.rdb.Del(ctx, summaryKey(network, address)).Err()
}
