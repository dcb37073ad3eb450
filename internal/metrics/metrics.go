/*
 * MIT License
 *
 * Copyright (c) 2023 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package metrics registers the manager's Prometheus collectors. Kept as a
// single small registry rather than scattering MustRegister calls across
// packages, since the set of gauges/counters is tiny and stable.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry groups every collector the manager exposes at /metrics.
type Registry struct {
	CreatedApps     prometheus.Gauge
	WorkerRPCs      *prometheus.CounterVec
	FramesDropped   prometheus.Counter
	SpawnFailures   prometheus.Counter
	ConnectionsOpen prometheus.Gauge
}

// New builds and registers a fresh Registry against reg.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		CreatedApps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "msapi",
			Subsystem: "manager",
			Name:      "created_apps",
			Help:      "Number of worker instances currently tracked by the manager.",
		}),
		WorkerRPCs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msapi",
			Subsystem: "manager",
			Name:      "worker_rpcs_total",
			Help:      "Worker RPCs sent, labeled by action.",
		}, []string{"action"}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "msapi",
			Subsystem: "manager",
			Name:      "frames_dropped_total",
			Help:      "Frames dropped for declaring a length over the receive buffer ceiling.",
		}),
		SpawnFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "msapi",
			Subsystem: "manager",
			Name:      "spawn_failures_total",
			Help:      "Worker process spawn failures.",
		}),
		ConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "msapi",
			Subsystem: "manager",
			Name:      "connections_open",
			Help:      "Currently open inbound and outbound connections.",
		}),
	}

	reg.MustRegister(r.CreatedApps, r.WorkerRPCs, r.FramesDropped, r.SpawnFailures, r.ConnectionsOpen)
	return r
}
