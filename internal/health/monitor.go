package health

import (
	"context"
	"sync"
	"time"
)

// DefaultCacheFor limits how often dependencies are actually probed.
const DefaultCacheFor = 10 * time.Second

// Check probes one dependency. A failing critical check makes the whole
// system critical; any other failure only degrades it.
type Check struct {
	Name     string
	Critical bool
	Fn       func(ctx context.Context) error
}

// Monitor aggregates health status from various system components.
type Monitor struct {
	checks   []Check
	network  func() string
	cacheFor time.Duration

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport *HealthReport
}

// NewMonitor creates a new health monitor. network reports the active network
// and may be nil.
func NewMonitor(network func() string, checks ...Check) *Monitor {
	return &Monitor{
		checks:   checks,
		network:  network,
		cacheFor: DefaultCacheFor,
	}
}

// CheckHealth runs every check, reusing a recent report.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit checks to avoid spamming the access node
	if m.lastReport != nil && time.Since(m.lastCheck) < m.cacheFor {
		return *m.lastReport
	}

	report := HealthReport{
		SystemStatus: StatusHealthy,
		Components:   make(map[string]ComponentHealth, len(m.checks)),
	}
	if m.network != nil {
		report.Network = m.network()
	}

	for _, c := range m.checks {
		ch := ComponentHealth{Name: c.Name, Status: StatusHealthy}
		if err := c.Fn(ctx); err != nil {
			ch.Error = err.Error()
			ch.Status = StatusDegraded
			if c.Critical {
				ch.Status = StatusCritical
			}
		}
		report.Components[c.Name] = ch

		// Worst case wins
		if ch.Status == StatusCritical {
			report.SystemStatus = StatusCritical
		} else if ch.Status == StatusDegraded && report.SystemStatus == StatusHealthy {
			report.SystemStatus = StatusDegraded
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = &report
	return report
}
