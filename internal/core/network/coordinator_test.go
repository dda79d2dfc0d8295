package network

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/flowpanel/internal/core/domain"
)

const (
	emulatorAddr = "0xf8d6e0586b0a20c7"
	testnetAddr  = "0x40387cea622425a3"
	mainnetAddr  = "0x455eb332c23a23e8"
)

type recordingReconfigurer struct {
	mu    sync.Mutex
	calls []domain.NetworkID
	delay time.Duration
	fail  map[domain.NetworkID]error
}

func (r *recordingReconfigurer) Reconfigure(ctx context.Context, cfg domain.NetworkConfig) error {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, cfg.Network)
	return r.fail[cfg.Network]
}

func (r *recordingReconfigurer) Calls() []domain.NetworkID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.NetworkID(nil), r.calls...)
}

func TestCoordinator_SwitchesToAddressNetwork(t *testing.T) {
	rec := &recordingReconfigurer{}
	c := NewCoordinator(domain.DefaultNetworkConfigs(), rec, nil)
	ctx := context.Background()

	snap, err := c.Acquire(ctx, testnetAddr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Network() != domain.NetworkTestnet {
		t.Errorf("expected testnet snapshot, got %s", snap.Network())
	}
	if snap.Config.AccessNode != "https://rest-testnet.onflow.org" {
		t.Errorf("unexpected access node %s", snap.Config.AccessNode)
	}

	// Same network again must not reconfigure.
	if _, err := c.Acquire(ctx, testnetAddr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Acquire(ctx, mainnetAddr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := rec.Calls()
	if len(calls) != 2 || calls[0] != domain.NetworkTestnet || calls[1] != domain.NetworkMainnet {
		t.Errorf("expected [testnet mainnet] reconfigurations, got %v", calls)
	}

	active, ok := c.Active()
	if !ok || active.Network() != domain.NetworkMainnet {
		t.Errorf("expected mainnet active, got %v (ready=%v)", active.Network(), ok)
	}
	if active.Generation != 2 {
		t.Errorf("expected generation 2, got %d", active.Generation)
	}
}

func TestCoordinator_UnknownAddressIsHardError(t *testing.T) {
	rec := &recordingReconfigurer{}
	c := NewCoordinator(domain.DefaultNetworkConfigs(), rec, nil)

	_, err := c.Acquire(context.Background(), "0x0000000000000001")
	if !errors.Is(err, ErrUnknownNetwork) {
		t.Fatalf("expected ErrUnknownNetwork, got %v", err)
	}
	_, err = c.Acquire(context.Background(), "not-an-address")
	if !errors.Is(err, ErrUnknownNetwork) {
		t.Fatalf("expected ErrUnknownNetwork for malformed input, got %v", err)
	}
	if len(rec.Calls()) != 0 {
		t.Errorf("unknown address must not trigger reconfiguration")
	}
	if _, ok := c.Active(); ok {
		t.Errorf("no network should be active")
	}
}

func TestCoordinator_FailedSwitchKeepsPreviousConfig(t *testing.T) {
	rec := &recordingReconfigurer{
		fail: map[domain.NetworkID]error{domain.NetworkMainnet: errors.New("chain id mismatch")},
	}
	c := NewCoordinator(domain.DefaultNetworkConfigs(), rec, nil)
	ctx := context.Background()

	if _, err := c.Acquire(ctx, emulatorAddr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Acquire(ctx, mainnetAddr); err == nil {
		t.Fatal("expected reconfiguration error")
	}

	active, _ := c.Active()
	if active.Network() != domain.NetworkEmulator {
		t.Errorf("expected emulator to remain active, got %s", active.Network())
	}
}

func TestCoordinator_NotConfigured(t *testing.T) {
	configs := domain.DefaultNetworkConfigs()
	delete(configs, domain.NetworkTestnet)
	c := NewCoordinator(configs, nil, nil)

	_, err := c.Acquire(context.Background(), testnetAddr)
	if !errors.Is(err, ErrNetworkNotConfigured) {
		t.Fatalf("expected ErrNetworkNotConfigured, got %v", err)
	}
}

func TestCoordinator_ConcurrentAcquireSwitchesOnce(t *testing.T) {
	rec := &recordingReconfigurer{delay: 20 * time.Millisecond}
	c := NewCoordinator(domain.DefaultNetworkConfigs(), rec, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := c.Acquire(ctx, testnetAddr)
			if err != nil || snap.Network() != domain.NetworkTestnet {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	if failures.Load() != 0 {
		t.Errorf("%d callers did not observe the testnet snapshot", failures.Load())
	}
	if calls := rec.Calls(); len(calls) != 1 {
		t.Errorf("expected exactly one reconfiguration, got %d", len(calls))
	}
}

func TestCoordinator_SnapshotMatchesAddressUnderContention(t *testing.T) {
	rec := &recordingReconfigurer{delay: 2 * time.Millisecond}
	c := NewCoordinator(domain.DefaultNetworkConfigs(), rec, nil)
	ctx := context.Background()

	addrs := map[string]domain.NetworkID{
		emulatorAddr: domain.NetworkEmulator,
		testnetAddr:  domain.NetworkTestnet,
		mainnetAddr:  domain.NetworkMainnet,
	}

	var wg sync.WaitGroup
	var mismatches atomic.Int32
	for i := 0; i < 10; i++ {
		for addr, want := range addrs {
			wg.Add(1)
			go func(addr string, want domain.NetworkID) {
				defer wg.Done()
				snap, err := c.Acquire(ctx, addr)
				if err != nil || snap.Network() != want {
					mismatches.Add(1)
				}
			}(addr, want)
		}
	}
	wg.Wait()

	if mismatches.Load() != 0 {
		t.Errorf("%d snapshots did not match their address network", mismatches.Load())
	}
}

func TestCoordinator_WaitHonoursContext(t *testing.T) {
	block := make(chan struct{})
	c := NewCoordinator(domain.DefaultNetworkConfigs(), ReconfigurerFunc(
		func(ctx context.Context, cfg domain.NetworkConfig) error {
			<-block
			return nil
		}), nil)

	go func() { _, _ = c.Acquire(context.Background(), testnetAddr) }()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Acquire(ctx, mainnetAddr)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded while waiting for switch, got %v", err)
	}
	close(block)
}

func TestCoordinator_SwitchCallback(t *testing.T) {
	c := NewCoordinator(domain.DefaultNetworkConfigs(), nil, nil)

	var from, to domain.NetworkID
	c.SetSwitchCallback(func(f, n domain.NetworkID) {
		from, to = f, n
	})

	if _, err := c.Activate(context.Background(), domain.NetworkEmulator); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if from != domain.NetworkUnknown || to != domain.NetworkEmulator {
		t.Errorf("expected unknown -> emulator, got %s -> %s", from, to)
	}
}
