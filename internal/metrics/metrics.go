// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package metrics holds the prometheus collectors for polling and sinks.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics owns a private registry so tests and multiple listeners don't
// collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	polls         *prometheus.CounterVec
	pollDuration  prometheus.Histogram
	sinkPublishes *prometheus.CounterVec
	fieldsDecoded prometheus.Gauge
}

// New registers all wxlistener collectors plus the Go and process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wxlistener_polls_total",
			Help: "Live data polls by result.",
		}, []string{"result"}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wxlistener_poll_duration_seconds",
			Help:    "Time taken by a live data poll.",
			Buckets: prometheus.DefBuckets,
		}),
		sinkPublishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wxlistener_sink_publish_total",
			Help: "Readings delivered to sinks by sink and result.",
		}, []string{"sink", "result"}),
		fieldsDecoded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wxlistener_fields_decoded",
			Help: "Number of fields in the most recent reading.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.polls,
		m.pollDuration,
		m.sinkPublishes,
		m.fieldsDecoded,
	)
	return m
}

// ObservePoll records one poll attempt
func (m *Metrics) ObservePoll(d time.Duration, fields int, err error) {
	m.pollDuration.Observe(d.Seconds())
	if err != nil {
		m.polls.WithLabelValues(ResultError).Inc()
		return
	}
	m.polls.WithLabelValues(ResultOK).Inc()
	m.fieldsDecoded.Set(float64(fields))
}

// ObservePublish records one sink delivery
func (m *Metrics) ObservePublish(sink string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.sinkPublishes.WithLabelValues(sink, result).Inc()
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
