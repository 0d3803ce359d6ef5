// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package metrics exposes the Prometheus collectors shared by the Pull
// Server's operator-facing REST API and the LCM's enforcement loop.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector this module registers.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	LCMCyclesTotal              *prometheus.CounterVec
	LCMLastExitCode             prometheus.Gauge
	LCMBundleChecksumMismatches prometheus.Counter
}

// New creates a Metrics instance registered against the default
// registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against reg,
// so tests may use a throwaway registry instead of the global default.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opendsc_pullserver_http_requests_total",
				Help: "Total number of operator-facing HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opendsc_pullserver_http_request_duration_seconds",
				Help:    "Operator-facing HTTP request duration in seconds.",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		LCMCyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opendsc_lcm_cycles_total",
				Help: "Total number of enforcement cycles run, by operation.",
			},
			[]string{"operation"},
		),
		LCMLastExitCode: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "opendsc_lcm_last_exit_code",
				Help: "Exit code reported by the most recent DSC Executor invocation.",
			},
		),
		LCMBundleChecksumMismatches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "opendsc_lcm_bundle_checksum_mismatches_total",
				Help: "Total number of Pull Client bundle downloads rejected for a checksum mismatch.",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.HTTPRequestsTotal,
			m.HTTPRequestDuration,
			m.LCMCyclesTotal,
			m.LCMLastExitCode,
			m.LCMBundleChecksumMismatches,
		)
	}
	return m
}

// RecordHTTPRequest records one completed operator-facing HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordLCMCycle records one completed enforcement cycle of operation
// (Test or Set).
func (m *Metrics) RecordLCMCycle(operation string) {
	m.LCMCyclesTotal.WithLabelValues(operation).Inc()
}

// SetLCMLastExitCode records the exit code of the most recent DSC
// Executor invocation.
func (m *Metrics) SetLCMLastExitCode(code int) {
	m.LCMLastExitCode.Set(float64(code))
}

// IncBundleChecksumMismatch records one Pull Client bundle download
// rejected for a checksum mismatch.
func (m *Metrics) IncBundleChecksumMismatch() {
	m.LCMBundleChecksumMismatches.Inc()
}
