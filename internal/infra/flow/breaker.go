package flow

import (
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig controls the per access node circuit breaker.
type BreakerConfig struct {
	ConsecutiveFailures uint32
	Interval            time.Duration // counter reset while closed
	Timeout             time.Duration // open -> half-open
}

// DefaultBreakerConfig trips after five consecutive transient failures.
var DefaultBreakerConfig = BreakerConfig{
	ConsecutiveFailures: 5,
	Interval:            time.Minute,
	Timeout:             30 * time.Second,
}

// ErrCircuitOpen is returned while an access node is considered down.
var ErrCircuitOpen = gobreaker.ErrOpenState

type breakers struct {
	cfg BreakerConfig
	mu  sync.Mutex
	m   map[string]*gobreaker.CircuitBreaker
	on  func(name string, from, to gobreaker.State)
}

func newBreakers(cfg BreakerConfig, on func(name string, from, to gobreaker.State)) *breakers {
	return &breakers{cfg: cfg, m: make(map[string]*gobreaker.CircuitBreaker), on: on}
}

// get returns the breaker guarding the host of rawURL.
func (b *breakers) get(rawURL string) *gobreaker.CircuitBreaker {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := b.m[host]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Interval:    b.cfg.Interval,
		Timeout:     b.cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.cfg.ConsecutiveFailures
		},
		// Request errors say nothing about the node's health.
		IsSuccessful: func(err error) bool {
			return err == nil || ClassifyError(err) == ActionFatal
		},
		OnStateChange: b.on,
	})
	b.m[host] = cb
	return cb
}

func isBreakerError(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
