/*
 * Copyright 2025 The Notepair Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package prometheus provides a Prometheus metrics exporter.
package prometheus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace      = "notepair"
	eventTypeLabel = "event_type"
)

// Metrics manages the metric information that Notepair is trying to measure.
type Metrics struct {
	registry *prometheus.Registry

	connectionsTotal prometheus.Gauge

	eventsHandledTotal *prometheus.CounterVec
	editsAppliedTotal  prometheus.Counter
	editsRejectedTotal prometheus.Counter

	replicaFlushesTotal     prometheus.Counter
	replicaFlushErrorsTotal prometheus.Counter
}

// NewMetrics creates a new instance of Metrics.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	metrics := &Metrics{
		registry: reg,
		connectionsTotal: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "connections_total",
			Help:      "The current number of open websocket connections.",
		}),
		eventsHandledTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "events_handled_total",
			Help:      "Total number of client events handled, by event type.",
		}, []string{eventTypeLabel}),
		editsAppliedTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "edits_applied_total",
			Help:      "Total number of edit operations merged into replicas.",
		}),
		editsRejectedTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "edits_rejected_total",
			Help:      "Total number of edit operations rejected.",
		}),
		replicaFlushesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "replica_flushes_total",
			Help:      "Total number of replica flushes to the blob store.",
		}),
		replicaFlushErrorsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "replica_flush_errors_total",
			Help:      "Total number of failed replica flushes.",
		}),
	}

	return metrics, nil
}

// Registry returns the registry of this metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// AddConnection increments the open connection gauge.
func (m *Metrics) AddConnection() {
	m.connectionsTotal.Inc()
}

// RemoveConnection decrements the open connection gauge.
func (m *Metrics) RemoveConnection() {
	m.connectionsTotal.Dec()
}

// AddEventHandled counts one handled client event.
func (m *Metrics) AddEventHandled(eventType string) {
	m.eventsHandledTotal.With(prometheus.Labels{eventTypeLabel: eventType}).Inc()
}

// AddEditApplied counts one merged edit operation.
func (m *Metrics) AddEditApplied() {
	m.editsAppliedTotal.Inc()
}

// AddEditRejected counts one rejected edit operation.
func (m *Metrics) AddEditRejected() {
	m.editsRejectedTotal.Inc()
}

// AddReplicaFlush counts one replica flush.
func (m *Metrics) AddReplicaFlush() {
	m.replicaFlushesTotal.Inc()
}

// AddReplicaFlushError counts one failed replica flush.
func (m *Metrics) AddReplicaFlushError() {
	m.replicaFlushErrorsTotal.Inc()
}
