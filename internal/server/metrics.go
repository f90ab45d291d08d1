package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the collectors exported on /metrics.
type Metrics struct {
	renders    *prometheus.HistogramVec
	clicks     *prometheus.CounterVec
	requests   *prometheus.CounterVec
	entities   prometheus.Gauge
	shortlists prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		renders: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "where2work",
			Name:      "render_duration_seconds",
			Help:      "Duration of render cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"kind"}),
		clicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "where2work",
			Name:      "clicks_total",
			Help:      "Marker clicks by chart and outcome.",
		}, []string{"chart", "outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "where2work",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "where2work",
			Name:      "dataset_entities",
			Help:      "Entities in the loaded dataset.",
		}),
		shortlists: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "where2work",
			Name:      "last_shortlist_size",
			Help:      "Shortlist size after the most recent cycle.",
		}),
	}

	reg.MustRegister(m.renders, m.clicks, m.requests, m.entities, m.shortlists)

	return m
}
