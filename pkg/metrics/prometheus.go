package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "signalcrawler"

// Recorder holds the pipeline's Prometheus collectors on its own registry.
type Recorder struct {
	registry        *prometheus.Registry
	candlesIngested *prometheus.CounterVec
	candlesRejected *prometheus.CounterVec
	verdicts        *prometheus.CounterVec
	recommendations *prometheus.CounterVec
	outcomes        *prometheus.CounterVec
	riskAlerts      *prometheus.CounterVec
	logAlerts       *prometheus.CounterVec
	priceLookups    *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates a recorder with Go runtime and process collectors registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		candlesIngested: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candles_ingested_total",
				Help:      "Total number of 1m candles accepted",
			},
			[]string{"instrument"},
		),
		candlesRejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candles_rejected_total",
				Help:      "Total number of candles rejected",
			},
			[]string{"reason"},
		),
		verdicts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verdicts_total",
				Help:      "Scorer verdicts by instrument",
			},
			[]string{"instrument", "verdict"},
		),
		recommendations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recommendations_total",
				Help:      "Recommendations handed to outcome tracking",
			},
			[]string{"instrument", "direction", "tier"},
		),
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outcomes_total",
				Help:      "Resolved recommendations by status",
			},
			[]string{"instrument", "status"},
		),
		riskAlerts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "risk_alerts_total",
				Help:      "Risk guardian alerts emitted",
			},
			[]string{"type", "severity"},
		),
		logAlerts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "log_alerts_total",
				Help:      "Log entries flagged for alerting",
			},
			[]string{"level"},
		),
		priceLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "price_lookups_total",
				Help:      "Live price lookups by source and result",
			},
			[]string{"source", "result"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_price",
				Help:      "Last close seen for an instrument",
			},
			[]string{"instrument"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of pipeline operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"route", "method"},
		),
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) RecordCandleIngested(instrument string, closePrice float64) {
	r.candlesIngested.WithLabelValues(instrument).Inc()
	r.lastPrice.WithLabelValues(instrument).Set(closePrice)
}

func (r *Recorder) RecordCandleRejected(reason string) {
	r.candlesRejected.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordVerdict(instrument, verdict string) {
	r.verdicts.WithLabelValues(instrument, verdict).Inc()
}

func (r *Recorder) RecordRecommendation(instrument, direction, tier string) {
	r.recommendations.WithLabelValues(instrument, direction, tier).Inc()
}

func (r *Recorder) RecordOutcome(instrument, status string) {
	r.outcomes.WithLabelValues(instrument, status).Inc()
}

func (r *Recorder) RecordRiskAlert(alertType, severity string) {
	r.riskAlerts.WithLabelValues(alertType, severity).Inc()
}

func (r *Recorder) RecordLogAlert(level string) {
	r.logAlerts.WithLabelValues(level).Inc()
}

func (r *Recorder) RecordPriceLookup(source string, found bool) {
	result := "miss"
	if found {
		result = "hit"
	}
	r.priceLookups.WithLabelValues(source, result).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordHTTPRequest(route, method, status string, seconds float64) {
	r.httpRequests.WithLabelValues(route, method, status).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(seconds)
}
