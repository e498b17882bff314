// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the shopsnap bot.
package observability

import "github.com/prometheus/client_golang/prometheus"

// PipelineBuckets defines histogram buckets suited for vision pipeline
// latencies, ranging from 100ms to 120s.
var PipelineBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RecognitionsTotal counts finished recognition pipelines by outcome
	// (success, exhausted, no_image, error).
	RecognitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsnap_recognitions_total",
			Help: "Finished recognitions",
		},
		[]string{"outcome"},
	)

	// RecognitionDuration records end-to-end pipeline duration in seconds.
	RecognitionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopsnap_recognition_duration_seconds",
			Help:    "Recognition duration",
			Buckets: PipelineBuckets,
		},
		[]string{"outcome"},
	)

	// ProviderCallsTotal counts vision backend calls by provider, model,
	// and outcome.
	ProviderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsnap_provider_calls_total",
			Help: "Provider calls",
		},
		[]string{"provider", "model", "outcome"},
	)

	// ProviderCallDuration records vision backend call latency in seconds.
	ProviderCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopsnap_provider_call_duration_seconds",
			Help:    "Provider call latency",
			Buckets: PipelineBuckets,
		},
		[]string{"provider", "model"},
	)

	// ProviderCallsInFlight tracks concurrently running vision backend calls.
	ProviderCallsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shopsnap_provider_calls_in_flight",
			Help: "Active provider calls",
		},
	)

	// UploadsTotal counts image hosting uploads by backend and outcome.
	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsnap_image_uploads_total",
			Help: "Image hosting uploads",
		},
		[]string{"backend", "outcome"},
	)

	// UpdatesTotal counts processed Telegram updates by kind
	// (photo, command, callback, other).
	UpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsnap_telegram_updates_total",
			Help: "Telegram updates",
		},
		[]string{"kind"},
	)

	// HTTPRequestsTotal counts admin server requests by route and status class.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsnap_http_requests_total",
			Help: "Admin server requests",
		},
		[]string{"route", "status"},
	)

	// HTTPRequestDuration records admin server request duration in seconds.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopsnap_http_request_duration_seconds",
			Help:    "Admin server request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(
		RecognitionsTotal,
		RecognitionDuration,
		ProviderCallsTotal,
		ProviderCallDuration,
		ProviderCallsInFlight,
		UploadsTotal,
		UpdatesTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}
