package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hwbot"

// Metrics holds the bot's collectors on a private registry so tests and
// multiple instances never collide on the default one.
type Metrics struct {
	reg *prometheus.Registry

	Cycles          prometheus.Counter
	CycleFailures   *prometheus.CounterVec
	CycleDuration   prometheus.Histogram
	MessagesSent    *prometheus.CounterVec
	Suppressed      prometheus.Counter
	SendFailures    prometheus.Counter
	ConfigReloads   *prometheus.CounterVec
	LastSuccessUnix prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		Cycles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Total number of polling cycles run",
		}),
		CycleFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_failures_total",
			Help:      "Total number of failed polling cycles by stage",
		}, []string{"stage"}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_cycle_duration_seconds",
			Help:      "Polling cycle duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		MessagesSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Total number of chat messages delivered by kind",
		}, []string{"kind"}),
		Suppressed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_suppressed_total",
			Help:      "Total number of failure reports not sent because they repeated the last message",
		}),
		SendFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_send_failures_total",
			Help:      "Total number of failed Telegram sends",
		}),
		ConfigReloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Total number of config reloads by result",
		}, []string{"result"}),
		LastSuccessUnix: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poll_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful polling cycle",
		}),
	}
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// GaugeFunc registers a gauge whose value is read at scrape time.
func (m *Metrics) GaugeFunc(name, help string, fn func() float64) {
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn)
}

func (m *Metrics) CycleFinished(failedStage string, took time.Duration) {
	m.Cycles.Inc()
	m.CycleDuration.Observe(took.Seconds())
	if failedStage != "" {
		m.CycleFailures.WithLabelValues(failedStage).Inc()
		return
	}
	m.LastSuccessUnix.SetToCurrentTime()
}

func (m *Metrics) MessageSent(kind string) { m.MessagesSent.WithLabelValues(kind).Inc() }

func (m *Metrics) ErrorSuppressed() { m.Suppressed.Inc() }
