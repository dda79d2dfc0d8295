package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/vietddude/flowpanel/internal/core/domain"
)

func newTestCache(t *testing.T, ttl time.Duration) (*SummaryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := &Client{rdb: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = client.Close() })
	return NewSummaryCache(client, ttl), mr
}

func TestSummaryCache_RoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	summary := &domain.AccountSummary{
		Address:              "0xf8d6e0586b0a20c7",
		Network:              domain.NetworkEmulator,
		FlowBalance:          decimal.RequireFromString("999999999.99900000"),
		FlowAvailableBalance: decimal.RequireFromString("999999999.99800000"),
		Balances: []domain.Balance{{
			VaultBalance: decimal.RequireFromString("10.5"),
			VaultType:    "A.0ae53cb6e3f42a79.FlowToken.Vault",
			StoragePath:  "/storage/flowTokenVault",
			Display:      &domain.FTDisplay{Name: "FLOW Network Token", Symbol: "FLOW"},
		}},
	}

	if err := cache.Set(ctx, summary); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := cache.Get(ctx, domain.NetworkEmulator, "0xf8d6e0586b0a20c7")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected cache hit")
	}
	if !got.FlowBalance.Equal(summary.FlowBalance) {
		t.Errorf("expected flow balance %s, got %s", summary.FlowBalance, got.FlowBalance)
	}
	if len(got.Balances) != 1 || got.Balances[0].Display.Symbol != "FLOW" {
		t.Errorf("balances not preserved: %+v", got.Balances)
	}

	// Same address on another network is a different key.
	other, err := cache.Get(ctx, domain.NetworkTestnet, "0xf8d6e0586b0a20c7")
	if err != nil || other != nil {
		t.Errorf("expected miss for other network, got %+v, %v", other, err)
	}
}

func TestSummaryCache_Expiry(t *testing.T) {
	cache, mr := newTestCache(t, 10*time.Second)
	ctx := context.Background()

	summary := &domain.AccountSummary{Address: "0x01cf0e2f2f715450", Network: domain.NetworkEmulator}
	if err := cache.Set(ctx, summary); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	mr.FastForward(11 * time.Second)

	got, err := cache.Get(ctx, domain.NetworkEmulator, "0x01cf0e2f2f715450")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Error("expected entry to expire")
	}
}

func TestSummaryCache_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	summary := &domain.AccountSummary{Address: "0x01cf0e2f2f715450", Network: domain.NetworkEmulator}
	_ = cache.Set(ctx, summary)

	if err := cache.Invalidate(ctx, domain.NetworkEmulator, "0x01cf0e2f2f715450"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if got, _ := cache.Get(ctx, domain.NetworkEmulator, "0x01cf0e2f2f715450"); got != nil {
		t.Error("expected miss after invalidate")
	}
}
