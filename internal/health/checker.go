// Package health tracks the reachability of the service's backing stores
// and brokers for the readiness endpoint.
package health

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds health check configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int // consecutive failures before a dependency is degraded
}

// PingFunc checks one dependency.
type PingFunc func(ctx context.Context) error

// Probe is a named dependency check.
type Probe struct {
	Name     string
	Ping     PingFunc
	Optional bool // a degraded optional dependency does not fail readiness
}

// Status values.
const (
	StatusUnknown  = "unknown"
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// DependencyStatus is the last known state of one dependency.
type DependencyStatus struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Optional  bool      `json:"optional,omitempty"`
	Failures  int       `json:"consecutiveFailures"`
	LastError string    `json:"lastError,omitempty"`
	CheckedAt time.Time `json:"checkedAt,omitempty"`
}

// TransitionFunc is called when a dependency becomes degraded or recovers.
type TransitionFunc func(name, status string)

// MetricsRecordFunc is an optional callback for recording probe results.
type MetricsRecordFunc func(name string, success bool)

// Checker probes dependencies periodically and on demand.
type Checker struct {
	probes       []Probe
	mu           sync.Mutex
	state        map[string]*DependencyStatus
	cfg          Config
	onTransition TransitionFunc
	onMetrics    MetricsRecordFunc
	logger       *zap.Logger
}

// New creates a Checker for probes.
func New(probes []Probe, cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 3 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}

	state := make(map[string]*DependencyStatus, len(probes))
	for _, p := range probes {
		state[p.Name] = &DependencyStatus{Name: p.Name, Status: StatusUnknown, Optional: p.Optional}
	}
	return &Checker{probes: probes, state: state, cfg: cfg, logger: logger}
}

// SetTransition configures the degraded/recovered callback.
func (c *Checker) SetTransition(fn TransitionFunc) {
	c.onTransition = fn
}

// SetMetricsRecord configures the metrics recording callback.
func (c *Checker) SetMetricsRecord(fn MetricsRecordFunc) {
	c.onMetrics = fn
}

// Start runs the check loop until quit is signalled.
func (c *Checker) Start(quit <-chan os.Signal) {
	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CheckAll(context.Background())
		case <-quit:
			return
		}
	}
}

// CheckAll probes every dependency concurrently, each under ProbeTimeout.
func (c *Checker) CheckAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, p := range c.probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
			defer cancel()
			c.record(p, p.Ping(pctx))
		}(p)
	}
	wg.Wait()
}

func (c *Checker) record(p Probe, err error) {
	if c.onMetrics != nil {
		c.onMetrics(p.Name, err == nil)
	}

	c.mu.Lock()
	st := c.state[p.Name]
	prev := st.Status
	st.CheckedAt = time.Now().UTC()
	if err == nil {
		st.Failures = 0
		st.LastError = ""
		st.Status = StatusHealthy
	} else {
		st.Failures++
		st.LastError = err.Error()
		// A dependency that has never answered is degraded at once.
		if st.Failures >= c.cfg.FailThreshold || st.Status == StatusUnknown {
			st.Status = StatusDegraded
		}
	}
	next := st.Status
	failures := st.Failures
	c.mu.Unlock()

	switch {
	case prev != StatusDegraded && next == StatusDegraded:
		c.logger.Warn("health: degraded", zap.String("dependency", p.Name), zap.Int("fail_count", failures), zap.Error(err))
	case prev == StatusDegraded && next == StatusHealthy:
		c.logger.Info("health: recovered", zap.String("dependency", p.Name))
	default:
		return
	}
	if c.onTransition != nil {
		c.onTransition(p.Name, next)
	}
}

// Snapshot returns the status of every dependency, sorted by name.
func (c *Checker) Snapshot() []DependencyStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]DependencyStatus, 0, len(c.state))
	for _, st := range c.state {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Ready reports whether every required dependency answered its last probe.
// An unchecked dependency is not ready.
func (c *Checker) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, st := range c.state {
		if !st.Optional && st.Status != StatusHealthy {
			return false
		}
	}
	return true
}
