package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/sessionkeeper/pkg/logging"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("session")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize session logger, using stderr fallback: %v", err)
	}
}

// MonitorConfig is fixed at construction.
type MonitorConfig struct {
	PollInterval     time.Duration
	MaxLoginAttempts int
}

// Validate checks the configuration.
func (c MonitorConfig) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}
	if c.MaxLoginAttempts < 1 {
		return fmt.Errorf("max login attempts must be at least 1, got %d", c.MaxLoginAttempts)
	}
	return nil
}

// DefaultMonitorConfig returns the built-in poll interval and login cap.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		PollInterval:     2 * time.Second,
		MaxLoginAttempts: 3,
	}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithCredentials sets the login used by the remediator. Without it only the
// retry-button path is available.
func WithCredentials(creds *Credentials) Option {
	return func(m *Monitor) {
		if creds != nil {
			c := *creds
			m.creds = &c
		}
	}
}

// WithRules replaces the default rule set.
func WithRules(rules Rules) Option {
	return func(m *Monitor) {
		m.rules = rules
	}
}

// WithTimings replaces the default settle delays.
func WithTimings(t Timings) Option {
	return func(m *Monitor) {
		m.timings = t
	}
}

// WithClock replaces the real clock, mostly for tests.
func WithClock(c Clock) Option {
	return func(m *Monitor) {
		m.clock = c
	}
}

// WithLogger replaces the package logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Monitor) {
		m.log = l
	}
}

// WithMetrics records activity on metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Monitor) {
		m.metrics = metrics
	}
}

// WithGate shares an existing gate instead of creating one.
func WithGate(g *Gate) Option {
	return func(m *Monitor) {
		m.gate = g
	}
}

// TickHook observes every completed tick. It runs on the monitor goroutine.
type TickHook func(v Verdict, outcome *Outcome)

// WithTickHook registers fn to be called after each tick.
func WithTickHook(fn TickHook) Option {
	return func(m *Monitor) {
		m.onTick = fn
	}
}

// Monitor polls a page for session expiry in the background and repairs it.
// It moves between Stopped and Running; Start and Stop are idempotent.
type Monitor struct {
	page       Page
	cfg        MonitorConfig
	creds      *Credentials
	rules      Rules
	timings    Timings
	clock      Clock
	log        *logging.Logger
	metrics    *Metrics
	gate       *Gate
	onTick     TickHook
	detector   *Detector
	remediator *Remediator

	mu     sync.Mutex
	handle *handle
}

// handle is the runtime state of one Running period.
type handle struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a stopped monitor for page.
func NewMonitor(page Page, cfg MonitorConfig, opts ...Option) (*Monitor, error) {
	if page == nil {
		return nil, fmt.Errorf("page is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid monitor config: %w", err)
	}

	m := &Monitor{
		page:    page,
		cfg:     cfg,
		rules:   DefaultRules(),
		timings: DefaultTimings(),
		clock:   RealClock(),
		log:     debugLog,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.gate == nil {
		m.gate = NewGate()
	}
	m.gate.onChange(m.metrics.paused)

	remediator, err := NewRemediator(m.rules, m.timings, m.clock, m.log)
	if err != nil {
		return nil, err
	}
	m.remediator = remediator
	m.detector = remediator.Detector()
	return m, nil
}

// Gate returns the pause gate the monitor checks before every tick.
func (m *Monitor) Gate() *Gate {
	return m.gate
}

// Guard returns an action guard sharing this monitor's page, rules,
// credentials and metrics.
func (m *Monitor) Guard() *Guard {
	return &Guard{
		page:        m.page,
		detector:    m.detector,
		remediator:  m.remediator,
		creds:       m.creds,
		maxAttempts: m.cfg.MaxLoginAttempts,
		log:         m.log,
		metrics:     m.metrics,
	}
}

// Running reports whether the poll loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle != nil
}

// Start launches the poll loop. It is a no-op while already running. The
// loop ends on Stop or when ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	h := &handle{
		id:     uuid.New().String(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.handle = h

	go m.loop(loopCtx, h)
	m.log.Infof("Session monitoring started (run %s, every %v)", h.id, m.cfg.PollInterval)
}

// Stop cancels the poll loop and waits for it to exit. A remediation already
// in flight finishes its current login iteration first. Stop is a no-op
// while stopped.
func (m *Monitor) Stop() {
	m.mu.Lock()
	h := m.handle
	m.handle = nil
	m.mu.Unlock()

	if h == nil {
		return
	}

	h.cancel()
	<-h.done
	m.log.Infof("Session monitoring stopped (run %s)", h.id)
}

// Done returns a channel closed when the current run ends, or nil when
// stopped.
func (m *Monitor) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		return nil
	}
	return m.handle.done
}

func (m *Monitor) loop(ctx context.Context, h *handle) {
	defer func() {
		// a loop ended by its parent context leaves the monitor Stopped
		m.mu.Lock()
		if m.handle == h {
			m.handle = nil
		}
		m.mu.Unlock()
		close(h.done)
	}()

	for {
		if err := m.gate.Wait(ctx); err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		m.tick(ctx)

		select {
		case <-ctx.Done():
			return
		case <-m.clock.After(m.cfg.PollInterval):
		}
	}
}

// tick runs one inspection and, if needed, one remediation. Nothing escapes
// it: errors are logged and panics recovered so the loop keeps going.
func (m *Monitor) tick(ctx context.Context) {
	var (
		verdict Verdict
		outcome *Outcome
	)
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorf("Error during session monitoring: %v", r)
		}
		if m.onTick != nil {
			m.onTick(verdict, outcome)
		}
	}()

	m.metrics.poll()
	verdict = m.detector.Inspect(m.page)
	m.metrics.verdict("monitor", verdict)

	if verdict.Inconclusive() {
		m.log.Debugf("Session check inconclusive, assuming healthy: %v", verdict.ProbeErr)
		return
	}
	if verdict.State != Expired {
		return
	}
	if ctx.Err() != nil {
		return
	}

	m.log.Infof("Session problem detected (%q), trying to resolve", verdict.Match)
	o := m.remediator.AttemptRecovery(ctx, m.page, m.creds, m.cfg.MaxLoginAttempts)
	outcome = &o
	m.metrics.remediation(o)

	if o.Resolved {
		m.log.Infof("Session problem resolved (%s, %d login attempts)", o.Label(), o.Attempts)
	} else {
		m.log.Warnf("Could not resolve session problem: %v", o.Err)
	}
}
