package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	RequestDuration *prometheus.HistogramVec

	// API ingestion
	IngestTotal       *prometheus.CounterVec
	StateChangesTotal *prometheus.CounterVec
	SamplesTotal      prometheus.Counter
	SLAQueryDuration  prometheus.Histogram
	WebsocketClients  prometheus.Gauge

	// Monitor
	ProbeRTT          *prometheus.HistogramVec
	ProbeFailures     *prometheus.CounterVec
	OfficeState       *prometheus.GaugeVec
	IngestAttempts    *prometheus.CounterVec
	MonitoredOffices  prometheus.Gauge
	ConfigReloadTotal *prometheus.CounterVec

	// Dashboard
	DashboardFetches  *prometheus.CounterVec
	DashboardSessions prometheus.Gauge
}

// New registers every collector on a fresh registry together with the Go
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := NewWithRegisterer(reg)
	m.registry = reg
	return m
}

// NewWithRegisterer registers on reg. A nil reg gets a private registry that
// nothing scrapes, which keeps tests independent.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "office_sla_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"route", "method", "status"}),

		IngestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "office_sla_ingest_total",
			Help: "Ingest requests by kind, transport and result.",
		}, []string{"kind", "transport", "result"}),

		StateChangesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "office_sla_state_changes_total",
			Help: "Stored state changes by target state.",
		}, []string{"to_state"}),

		SamplesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "office_sla_samples_total",
			Help: "Stored tick samples.",
		}),

		SLAQueryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "office_sla_query_duration_seconds",
			Help:    "Time spent computing SLA responses.",
			Buckets: prometheus.DefBuckets,
		}),

		WebsocketClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "office_sla_websocket_clients",
			Help: "Connected websocket clients.",
		}),

		ProbeRTT: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "office_sla_probe_rtt_seconds",
			Help:    "Round trip time of successful pings.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"office", "target"}),

		ProbeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "office_sla_probe_failures_total",
			Help: "Pings that got no reply.",
		}, []string{"office", "target"}),

		OfficeState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "office_sla_office_state",
			Help: "Debounced office state (0=down, 1=degraded, 2=up, 3=unknown).",
		}, []string{"office"}),

		IngestAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "office_sla_monitor_ingest_attempts_total",
			Help: "Ingest attempts made by the monitor by path and result.",
		}, []string{"path", "result"}),

		MonitoredOffices: f.NewGauge(prometheus.GaugeOpts{
			Name: "office_sla_monitored_offices",
			Help: "Offices with a running probe loop.",
		}),

		ConfigReloadTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "office_sla_config_reload_total",
			Help: "Office config reloads by result.",
		}, []string{"result"}),

		DashboardFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "office_sla_dashboard_fetches_total",
			Help: "SLA fetches issued by dashboard sessions.",
		}, []string{"result"}),

		DashboardSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "office_sla_dashboard_sessions",
			Help: "Open dashboard sessions.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
