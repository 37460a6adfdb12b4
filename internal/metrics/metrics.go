package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrSnakeDoc/checkvpn/internal/engine"
	"github.com/MrSnakeDoc/checkvpn/internal/identity"
)

const namespace = "check_vpn"

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	up               prometheus.Gauge
	cycles           *prometheus.CounterVec
	cycleDuration    prometheus.Histogram
	probeDuration    prometheus.Histogram
	providerFailures *prometheus.CounterVec
	lastCycle        prometheus.Gauge
	manualTriggers   prometheus.Counter
	reloads          *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,

		up: factory.NewGauge(prometheus.GaugeOpts{
			Name: "check_vpn_up",
			Help: "1 while the checker is running",
		}),
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Finished check cycles by outcome",
		}, []string{"outcome"}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a full check cycle",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		probeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Time spent deciding whether the network is up",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		providerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_failures_total",
			Help:      "Identity provider failures by provider and failure class",
		}, []string{"provider", "reason"}),
		lastCycle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time of the last finished cycle",
		}),
		manualTriggers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manual_triggers_total",
			Help:      "Cycles requested through POST /check",
		}),
		reloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Configuration reload attempts by result",
		}, []string{"result"}),
	}

	for _, o := range engine.Outcomes {
		m.cycles.WithLabelValues(o.String())
	}
	return m
}

func (m *Metrics) SetUp(up bool) {
	if up {
		m.up.Set(1)
		return
	}
	m.up.Set(0)
}

func (m *Metrics) ObserveCycle(res engine.Result, finished time.Time) {
	m.cycles.WithLabelValues(res.Outcome.String()).Inc()
	m.cycleDuration.Observe(res.Duration.Seconds())
	m.probeDuration.Observe(res.ProbeDuration.Seconds())
	m.lastCycle.Set(float64(finished.Unix()))
}

// ProviderFailed matches the identity chain failure hook.
func (m *Metrics) ProviderFailed(provider string, err error) {
	m.providerFailures.WithLabelValues(provider, identity.Classify(err)).Inc()
}

func (m *Metrics) ManualTrigger() { m.manualTriggers.Inc() }

func (m *Metrics) Reload(ok bool) {
	if ok {
		m.reloads.WithLabelValues("success").Inc()
		return
	}
	m.reloads.WithLabelValues("failure").Inc()
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
