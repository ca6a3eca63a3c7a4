/*
 *
 * Copyright 2026 The shmrt Authors.
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
 *
 */

package pool

import (
	"github.com/prometheus/client_golang/prometheus"
)

// prometheusRegisterer keeps the prometheus dependency out of the package's
// main API surface.
type prometheusRegisterer = prometheus.Registerer

// metrics holds the pool's Prometheus collectors. Collection is optional;
// a nil *metrics disables it.
type metrics struct {
	busy        prometheus.Gauge
	submitted   prometheus.Counter
	completed   prometheus.Counter
	rejected    prometheus.Counter
	taskSeconds prometheus.Histogram
}

func newMetrics(reg prometheusRegisterer) *metrics {
	m := &metrics{
		busy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shmrt",
			Subsystem: "pool",
			Name:      "busy_workers",
			Help:      "Number of workers currently executing a task.",
		}),
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shmrt",
			Subsystem: "pool",
			Name:      "tasks_submitted_total",
			Help:      "Tasks dispatched to workers.",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shmrt",
			Subsystem: "pool",
			Name:      "tasks_completed_total",
			Help:      "Tasks that ran to completion.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shmrt",
			Subsystem: "pool",
			Name:      "tasks_rejected_total",
			Help:      "Submissions abandoned before a worker became available.",
		}),
		taskSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shmrt",
			Subsystem: "pool",
			Name:      "task_duration_seconds",
			Help:      "Wall time from dispatch to completion.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.busy, m.submitted, m.completed, m.rejected, m.taskSeconds)
	}
	return m
}
