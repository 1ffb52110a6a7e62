package hxembed

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects composition and block outcomes. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	mu         sync.Mutex
	registered bool

	compositions *prometheus.CounterVec
	blocks       *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// NewMetrics creates unregistered collectors in the hxembed namespace.
func NewMetrics() *Metrics {
	return &Metrics{
		compositions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hxembed",
			Name:      "compositions_total",
			Help:      "Embed compositions by mode and final state",
		}, []string{"mode", "state"}),
		blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hxembed",
			Name:      "blocks_total",
			Help:      "Block enhancements by block identifier and outcome",
		}, []string{"block", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hxembed",
			Name:      "composition_seconds",
			Help:      "Time from attach to ready or failed",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"mode"}),
	}
}

// Collectors returns the underlying collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.compositions, m.blocks, m.duration}
}

// Register registers the collectors. Safe to call multiple times.
func (m *Metrics) Register(registerer prometheus.Registerer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	for _, c := range m.Collectors() {
		if err := registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

func (m *Metrics) composition(mode Mode, state State, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.compositions.WithLabelValues(mode.String(), state.String()).Inc()
	m.duration.WithLabelValues(mode.String()).Observe(elapsed.Seconds())
}

func (m *Metrics) block(identifier string, status RegionStatus) {
	if m == nil {
		return
	}
	m.blocks.WithLabelValues(identifier, status.String()).Inc()
}
