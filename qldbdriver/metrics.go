// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"). You may not
// use this file except in compliance with the License. A copy of the License
// is located at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// or in the "license" file accompanying this file. This file is distributed
// on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either
// express or implied. See the License for the specific language governing
// permissions and limitations under the License.

package qldbdriver

import "github.com/prometheus/client_golang/prometheus"

// driverMetrics is the set of collectors one Driver registers, if a
// registerer was supplied via WithMetricsRegisterer. All collectors are
// labeled by ledger name so multiple drivers can share a registry.
type driverMetrics struct {
	leasedSessions prometheus.Gauge
	idleSessions   prometheus.Gauge
	retries        *prometheus.CounterVec
	commitLatency  prometheus.Histogram
}

func newDriverMetrics(reg prometheus.Registerer, ledgerName string) *driverMetrics {
	if reg == nil {
		return nil
	}
	labels := prometheus.Labels{"ledger": ledgerName}
	m := &driverMetrics{
		leasedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "qldbdriver",
			Name:        "leased_sessions",
			Help:        "Number of sessions currently leased from the pool.",
			ConstLabels: labels,
		}),
		idleSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "qldbdriver",
			Name:        "idle_sessions",
			Help:        "Number of sessions currently idle in the pool.",
			ConstLabels: labels,
		}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "qldbdriver",
			Name:        "retries_total",
			Help:        "Count of retried executeLambda attempts, by classified error code.",
			ConstLabels: labels,
		}, []string{"code"}),
		commitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "qldbdriver",
			Name:        "commit_latency_seconds",
			Help:        "Duration of successful transaction attempts, from StartTransaction through commit; commit time alone is not measured.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.leasedSessions, m.idleSessions, m.retries, m.commitLatency)
	return m
}

func (m *driverMetrics) observeRetry(code Code) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(string(code)).Inc()
}

func (m *driverMetrics) observeCommitSeconds(seconds float64) {
	if m == nil {
		return
	}
	m.commitLatency.Observe(seconds)
}

func (m *driverMetrics) setLeased(n int) {
	if m == nil {
		return
	}
	m.leasedSessions.Set(float64(n))
}

func (m *driverMetrics) setIdle(n int) {
	if m == nil {
		return
	}
	m.idleSessions.Set(float64(n))
}
