// Package metrics holds the Prometheus collectors shared by the reader.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reader"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// OCRRequests counts pdf_to_markdown calls by outcome (ok, parse_failed, error).
	OCRRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ocr_requests_total",
		Help:      "OCR extraction calls by outcome.",
	}, []string{"outcome"})

	OCRDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ocr_request_duration_seconds",
		Help:      "OCR extraction latency.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
	})

	// LLMStreams counts completion streams by outcome (ok, error).
	LLMStreams = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_streams_total",
		Help:      "Streaming chat completions by outcome.",
	}, []string{"outcome"})

	LLMFirstFragment = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "llm_first_fragment_seconds",
		Help:      "Time until the first content fragment of a completion stream.",
		Buckets:   prometheus.DefBuckets,
	})

	SummariesSaved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "summaries_saved_total",
		Help:      "Auto-summaries written to disk.",
	})
)
