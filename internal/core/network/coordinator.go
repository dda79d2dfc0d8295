// Package network owns the active Flow network configuration.
//
// Every account query goes through Coordinator.Acquire, which resolves the
// address's network and, if it differs from the active one, reconfigures before
// returning. Callers receive an immutable Snapshot and must pass it to the
// dependent query instead of reading any shared state.
package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vietddude/flowpanel/internal/core/address"
	"github.com/vietddude/flowpanel/internal/core/domain"
	"github.com/vietddude/flowpanel/internal/metrics"
)

var (
	// ErrUnknownNetwork is returned for addresses that belong to no known network.
	ErrUnknownNetwork = errors.New("address belongs to no known network")

	// ErrNetworkNotConfigured is returned when no endpoints exist for a network.
	ErrNetworkNotConfigured = errors.New("network not configured")

	// ErrChainMismatch is returned by reconfigurers when the endpoint serves a
	// different chain than the one configured.
	ErrChainMismatch = errors.New("access node chain id mismatch")
)

// Reconfigurer prepares the outbound clients for a new network. An error
// aborts the switch and leaves the previous configuration active.
type Reconfigurer interface {
	Reconfigure(ctx context.Context, cfg domain.NetworkConfig) error
}

// ReconfigurerFunc adapts a function to Reconfigurer.
type ReconfigurerFunc func(ctx context.Context, cfg domain.NetworkConfig) error

// Reconfigure calls f.
func (f ReconfigurerFunc) Reconfigure(ctx context.Context, cfg domain.NetworkConfig) error {
	return f(ctx, cfg)
}

// Snapshot is an immutable view of the active configuration.
type Snapshot struct {
	Config     domain.NetworkConfig
	Generation uint64 // bumped on every switch
}

// Network is shorthand for s.Config.Network.
func (s Snapshot) Network() domain.NetworkID {
	return s.Config.Network
}

// Coordinator serializes network switches and hands out snapshots.
type Coordinator struct {
	configs      map[domain.NetworkID]domain.NetworkConfig
	reconfigurer Reconfigurer
	log          *slog.Logger

	// sem is a single-slot semaphore held while reading or switching.
	sem chan struct{}

	mu     sync.RWMutex
	active Snapshot
	ready  bool

	onSwitch func(from, to domain.NetworkID)
}

// NewCoordinator creates a coordinator. The initial network is activated lazily
// on first use so that its reconfiguration runs with a caller context.
func NewCoordinator(
	configs map[domain.NetworkID]domain.NetworkConfig,
	reconfigurer Reconfigurer,
	log *slog.Logger,
) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	if reconfigurer == nil {
		reconfigurer = ReconfigurerFunc(func(context.Context, domain.NetworkConfig) error { return nil })
	}
	copied := make(map[domain.NetworkID]domain.NetworkConfig, len(configs))
	for k, v := range configs {
		copied[k] = v
	}
	return &Coordinator{
		configs:      copied,
		reconfigurer: reconfigurer,
		log:          log.With("component", "network"),
		sem:          make(chan struct{}, 1),
	}
}

// SetSwitchCallback registers a function called after every successful switch.
func (c *Coordinator) SetSwitchCallback(fn func(from, to domain.NetworkID)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSwitch = fn
}

// Active returns the current snapshot and whether any network is active yet.
func (c *Coordinator) Active() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active, c.ready
}

// Acquire resolves the network of addr and returns a snapshot configured for
// it, switching first if needed. Unknown addresses are a hard error.
func (c *Coordinator) Acquire(ctx context.Context, addr string) (Snapshot, error) {
	net := address.Classify(addr)
	if net == domain.NetworkUnknown {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownNetwork, addr)
	}
	return c.Activate(ctx, net)
}

// Activate makes net the active network and returns its snapshot.
func (c *Coordinator) Activate(ctx context.Context, net domain.NetworkID) (Snapshot, error) {
	if snap, ok := c.Active(); ok && snap.Network() == net {
		return snap, nil
	}

	cfg, ok := c.configs[net]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNetworkNotConfigured, net)
	}

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	defer func() { <-c.sem }()

	// A switch that completed while we waited may already satisfy us.
	c.mu.RLock()
	current, ready := c.active, c.ready
	c.mu.RUnlock()
	if ready && current.Network() == net {
		return current, nil
	}

	from := current.Network()
	if !ready {
		from = domain.NetworkUnknown
	}
	c.log.Info("Switching network", "from", from, "to", net, "access_node", cfg.AccessNode)

	if err := c.reconfigurer.Reconfigure(ctx, cfg); err != nil {
		metrics.NetworkSwitchesTotal.WithLabelValues(string(net), "error").Inc()
		c.log.Error("Network switch failed", "to", net, "error", err)
		return Snapshot{}, fmt.Errorf("reconfigure %s: %w", net, err)
	}

	c.mu.Lock()
	c.active = Snapshot{Config: cfg, Generation: current.Generation + 1}
	c.ready = true
	snap := c.active
	onSwitch := c.onSwitch
	c.mu.Unlock()

	metrics.NetworkSwitchesTotal.WithLabelValues(string(net), "ok").Inc()
	metrics.ActiveNetwork.Reset()
	metrics.ActiveNetwork.WithLabelValues(string(net)).Set(1)

	if onSwitch != nil {
		onSwitch(from, net)
	}
	return snap, nil
}
