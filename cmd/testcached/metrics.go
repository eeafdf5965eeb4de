// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/diffeo/go-testcache/eventlog"
	"github.com/diffeo/go-testcache/service"
	"github.com/diffeo/go-testcache/testcache"
)

type metrics struct {
	Entries      *prometheus.GaugeVec
	InFlight     prometheus.Gauge
	StorageBytes prometheus.Gauge
	Events       *prometheus.CounterVec
}

func newMetrics() *metrics {
	return &metrics{
		Entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "diffeo",
				Subsystem: "testcache",
				Name:      "cache_entries",
				Help:      "Number of entries in each cache namespace",
			},
			[]string{"namespace"},
		),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "diffeo",
			Subsystem: "testcache",
			Name:      "fetches_in_flight",
			Help:      "Number of remote fetches under way",
		}),
		StorageBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "diffeo",
			Subsystem: "testcache",
			Name:      "storage_bytes",
			Help:      "Approximate bytes used by the persisted caches",
		}),
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "diffeo",
				Subsystem: "testcache",
				Name:      "events_total",
				Help:      "Cache events by action",
			},
			[]string{"action"},
		),
	}
}

// MustRegister adds every metric to r, or to the default registry if
// r is nil.
func (m *metrics) MustRegister(r prometheus.Registerer) {
	if r == nil {
		r = prometheus.DefaultRegisterer
	}
	r.MustRegister(m.Entries, m.InFlight, m.StorageBytes, m.Events)
}

// Watch counts every event appended to log.
func (m *metrics) Watch(log *eventlog.Log) {
	log.OnAppend(func(rec testcache.EventRecord) {
		m.Events.WithLabelValues(rec.Action).Inc()
	})
}

// Update sets the gauges from a status snapshot.
func (m *metrics) Update(status testcache.CacheStatus) {
	m.Entries.WithLabelValues("testRuns").Set(float64(status.TestRunCacheSize))
	m.Entries.WithLabelValues("attachments").Set(float64(status.AttachmentsCacheSize))
	m.InFlight.Set(float64(status.InFlightCount))
	m.StorageBytes.Set(float64(status.StorageBytesUsed))
}

// Observe refreshes the gauges every interval until ctx is done.
func (m *metrics) Observe(ctx context.Context, svc *service.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		m.Update(svc.CacheStatus(ctx))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
