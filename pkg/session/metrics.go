package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for one monitor. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Polls            prometheus.Counter
	ProbeFailures    prometheus.Counter
	ExpiriesDetected *prometheus.CounterVec
	Remediations     *prometheus.CounterVec
	LoginAttempts    prometheus.Counter
	GuardedRetries   prometheus.Counter
	Paused           prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Polls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sessionkeeper_polls_total",
			Help: "Total number of monitor poll ticks",
		}),
		ProbeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sessionkeeper_probe_failures_total",
			Help: "Inspections that could not read the page and were assumed healthy",
		}),
		ExpiriesDetected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessionkeeper_expiries_detected_total",
				Help: "Expired sessions detected",
			},
			[]string{"source"},
		),
		Remediations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessionkeeper_remediations_total",
				Help: "Remediation runs by outcome",
			},
			[]string{"outcome"},
		),
		LoginAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sessionkeeper_login_attempts_total",
			Help: "Credential login iterations performed",
		}),
		GuardedRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sessionkeeper_guarded_retries_total",
			Help: "Guarded actions re-executed after a recovered session",
		}),
		Paused: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sessionkeeper_paused",
			Help: "1 while the pause gate is engaged",
		}),
	}

	if reg != nil {
		collectors := []prometheus.Collector{
			m.Polls, m.ProbeFailures, m.ExpiriesDetected, m.Remediations,
			m.LoginAttempts, m.GuardedRetries, m.Paused,
		}
		for _, c := range collectors {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) poll() {
	if m == nil {
		return
	}
	m.Polls.Inc()
}

func (m *Metrics) verdict(source string, v Verdict) {
	if m == nil {
		return
	}
	if v.Inconclusive() {
		m.ProbeFailures.Inc()
	}
	if v.State == Expired {
		m.ExpiriesDetected.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) remediation(o Outcome) {
	if m == nil {
		return
	}
	m.Remediations.WithLabelValues(o.Label()).Inc()
	m.LoginAttempts.Add(float64(o.Attempts))
}

func (m *Metrics) guardedRetry() {
	if m == nil {
		return
	}
	m.GuardedRetries.Inc()
}

func (m *Metrics) paused(on bool) {
	if m == nil {
		return
	}
	if on {
		m.Paused.Set(1)
	} else {
		m.Paused.Set(0)
	}
}
