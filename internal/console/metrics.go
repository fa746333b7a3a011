package console

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Command outcomes reported by Metrics.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics exposes Prometheus collectors for console commands and storage
// flushes. A nil *Metrics records nothing.
type Metrics struct {
	commands   *prometheus.CounterVec
	saves      *prometheus.HistogramVec
	saveErrors *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hbnb_commands_total",
			Help: "Console commands executed, by action and outcome.",
		}, []string{"action", "outcome"}),
		saves: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hbnb_storage_save_duration_seconds",
			Help:    "Time spent flushing the cache to the storage medium.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"backend"}),
		saveErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hbnb_storage_save_errors_total",
			Help: "Failed storage flushes.",
		}, []string{"backend"}),
	}
	for _, c := range []prometheus.Collector{m.commands, m.saves, m.saveErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeCommand(action, outcome string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(action, outcome).Inc()
}

// ObserveSave records one storage flush.
func (m *Metrics) ObserveSave(backend string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(backend).Observe(d.Seconds())
	if err != nil {
		m.saveErrors.WithLabelValues(backend).Inc()
	}
}
