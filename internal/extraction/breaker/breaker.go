// Package breaker implements a per-provider circuit breaker registry.
//
// Request-handling code only reads breaker state through Available; the
// open -> half_open transition is performed exclusively by the background
// recovery monitor so no request ever blocks on a health check.
package breaker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joblens/extractor/internal/extraction/metrics"
)

// State is the circuit state of a single provider.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Config defines the breaker thresholds for one provider.
type Config struct {
	// FailureThreshold is the consecutive failure count that opens the circuit
	FailureThreshold int

	// SuccessThreshold is the half_open success count that closes it again
	SuccessThreshold int

	// Timeout is how long the circuit stays open before a recovery probe
	Timeout time.Duration
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	FailureThreshold: 5,
	SuccessThreshold: 2,
	Timeout:          60 * time.Second,
}

// HealthCheck probes a provider during recovery.
type HealthCheck func(ctx context.Context) error

// Snapshot is a read-only view of one provider's breaker state.
type Snapshot struct {
	Provider         string        `json:"provider"`
	State            State         `json:"state"`
	Failures         int           `json:"failures"`
	Successes        int           `json:"successes"`
	FailureThreshold int           `json:"failure_threshold"`
	SuccessThreshold int           `json:"success_threshold"`
	Timeout          time.Duration `json:"timeout"`
	LastFailureAt    time.Time     `json:"last_failure_at"`
	OpenedAt         time.Time     `json:"opened_at"`
}

type providerState struct {
	config        Config
	check         HealthCheck
	state         State
	failures      int
	successes     int
	lastFailureAt time.Time
	openedAt      time.Time
}

// Registry owns all per-provider breaker state. Every operation is atomic
// with respect to concurrent callers acting on the same provider.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*providerState

	checkInterval time.Duration
	checkTimeout  time.Duration

	running atomic.Bool
	stop    chan struct{}
}

// NewRegistry creates an empty registry. checkInterval is the recovery
// monitor cadence, checkTimeout bounds a single health check; zero values
// pick defaults (5s and 10s).
func NewRegistry(checkInterval, checkTimeout time.Duration) *Registry {
	if checkInterval <= 0 {
		checkInterval = 5 * time.Second
	}
	if checkTimeout <= 0 {
		checkTimeout = 10 * time.Second
	}
	return &Registry{
		providers:     make(map[string]*providerState),
		checkInterval: checkInterval,
		checkTimeout:  checkTimeout,
		stop:          make(chan struct{}),
	}
}

// Register adds a provider with its health check and thresholds. Registering
// an existing id is a no-op. Zero config fields fall back to DefaultConfig.
func (r *Registry) Register(id string, check HealthCheck, cfg Config) {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = DefaultConfig.SuccessThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig.Timeout
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[id]; exists {
		return
	}
	r.providers[id] = &providerState{
		config: cfg,
		check:  check,
		state:  StateClosed,
	}
	metrics.BreakerState.WithLabelValues(id).Set(stateValue(StateClosed))
}

// RecordSuccess feeds one successful call into the breaker. In half_open,
// reaching the success threshold closes the circuit.
func (r *Registry) RecordSuccess(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[id]
	if !ok {
		return
	}

	p.successes++
	switch p.state {
	case StateHalfOpen:
		if p.successes >= p.config.SuccessThreshold {
			r.transition(id, p, StateClosed)
			p.failures = 0
			p.successes = 0
		}
	case StateClosed:
		// Keep the failure count consecutive
		p.failures = 0
	}
}

// RecordFailure feeds one failed call into the breaker. In closed, reaching
// the failure threshold opens the circuit. In half_open, a single failure
// reopens it immediately.
func (r *Registry) RecordFailure(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[id]
	if !ok {
		return
	}

	p.failures++
	p.lastFailureAt = time.Now()

	switch p.state {
	case StateClosed:
		if p.failures >= p.config.FailureThreshold {
			r.transition(id, p, StateOpen)
			p.openedAt = time.Now()
		}
	case StateHalfOpen:
		r.transition(id, p, StateOpen)
		p.successes = 0
		p.openedAt = time.Now()
	}
}

// Available reports whether calls to the provider may proceed. Open circuits
// reject regardless of elapsed time; recovery is the monitor's job.
// Unregistered providers are available.
func (r *Registry) Available(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]
	if !ok {
		return true
	}
	return p.state != StateOpen
}

// State returns a snapshot of one provider's breaker.
func (r *Registry) State(id string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]
	if !ok {
		return Snapshot{}, false
	}
	return snapshot(id, p), true
}

// Snapshots returns the breaker state of every registered provider.
func (r *Registry) Snapshots() map[string]Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Snapshot, len(r.providers))
	for id, p := range r.providers {
		out[id] = snapshot(id, p)
	}
	return out
}

// Reset forces a provider back to closed with zeroed counters.
func (r *Registry) Reset(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[id]
	if !ok {
		return
	}
	if p.state != StateClosed {
		r.transition(id, p, StateClosed)
	}
	p.failures = 0
	p.successes = 0
	p.lastFailureAt = time.Time{}
	p.openedAt = time.Time{}
}

// Start launches the background recovery monitor.
func (r *Registry) Start(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		return
	}
	go r.monitorLoop(ctx)
	slog.Info("circuit breaker monitor started", "interval", r.checkInterval)
}

// Stop terminates the recovery monitor.
func (r *Registry) Stop() {
	if !r.running.CompareAndSwap(true, false) {
		return
	}
	close(r.stop)
}

func (r *Registry) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(r.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			r.checkRecovery(ctx)
		}
	}
}

// checkRecovery flips timed-out open circuits to half_open and fires their
// health checks. Checks run in their own goroutines so a slow provider never
// delays the scan.
func (r *Registry) checkRecovery(ctx context.Context) {
	type probe struct {
		id    string
		check HealthCheck
	}
	var probes []probe

	now := time.Now()
	r.mu.Lock()
	for id, p := range r.providers {
		if p.state != StateOpen || p.openedAt.IsZero() {
			continue
		}
		if now.Sub(p.openedAt) < p.config.Timeout {
			continue
		}
		r.transition(id, p, StateHalfOpen)
		p.failures = 0
		p.successes = 0
		if p.check != nil {
			probes = append(probes, probe{id: id, check: p.check})
		}
	}
	r.mu.Unlock()

	for _, pr := range probes {
		go r.runCheck(ctx, pr.id, pr.check)
	}
}

func (r *Registry) runCheck(ctx context.Context, id string, check HealthCheck) {
	checkCtx, cancel := context.WithTimeout(ctx, r.checkTimeout)
	defer cancel()

	if err := check(checkCtx); err != nil {
		slog.Warn("recovery health check failed", "provider", id, "error", err)
		r.RecordFailure(id)
		return
	}
	slog.Info("recovery health check passed", "provider", id)
	r.RecordSuccess(id)
}

// transition must be called with the write lock held.
func (r *Registry) transition(id string, p *providerState, to State) {
	from := p.state
	p.state = to
	metrics.BreakerState.WithLabelValues(id).Set(stateValue(to))
	metrics.BreakerTransitions.WithLabelValues(id, string(to)).Inc()
	slog.Info("circuit breaker state change", "provider", id, "from", from, "to", to)
}

func stateValue(s State) float64 {
	switch s {
	case StateOpen:
		return 1
	case StateHalfOpen:
		return 2
	default:
		return 0
	}
}

func snapshot(id string, p *providerState) Snapshot {
	return Snapshot{
		Provider:         id,
		State:            p.state,
		Failures:         p.failures,
		Successes:        p.successes,
		FailureThreshold: p.config.FailureThreshold,
		SuccessThreshold: p.config.SuccessThreshold,
		Timeout:          p.config.Timeout,
		LastFailureAt:    p.lastFailureAt,
		OpenedAt:         p.openedAt,
	}
}
