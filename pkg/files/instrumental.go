/*
 Copyright 2023 NanaFS Authors.

 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package files

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/basenana/nanafiles/pkg/types"
)

var (
	liveFileGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "files_live_records",
			Help: "The number of file records held in memory.",
		},
	)
	eventCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "files_events_total",
			Help: "The number of file events published, by action.",
		},
		[]string{"action"},
	)
	invalidateCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "files_invalidated_groups_total",
			Help: "The number of attribute groups invalidated.",
		},
	)
	fetchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "files_fetch_latency_seconds",
			Help:    "The latency of backend attribute fetches.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 18),
		},
		[]string{"group"},
	)
	fetchErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "files_fetch_errors_total",
			Help: "The number of failed backend attribute fetches.",
		},
		[]string{"group"},
	)
	fetchDedupCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "files_fetch_dedup_total",
			Help: "The number of fetch requests joined to one in flight.",
		},
		[]string{"group"},
	)
	fetchDiscardCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "files_fetch_discarded_total",
			Help: "The number of fetch results dropped as stale.",
		},
		[]string{"group"},
	)
	operationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "files_operation_latency_seconds",
			Help:    "The latency of file operations.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 18),
		},
		[]string{"operation"},
	)
	operationErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "files_operation_errors_total",
			Help: "The number of failed file operations.",
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(
		liveFileGauge,
		eventCounter,
		invalidateCounter,
		fetchLatency,
		fetchErrorCounter,
		fetchDedupCounter,
		fetchDiscardCounter,
		operationLatency,
		operationErrorCounter,
	)
}

func logFetchLatency(group types.Attributes, startAt time.Time) {
	fetchLatency.WithLabelValues(group.String()).Observe(time.Since(startAt).Seconds())
}

func logOperationLatency(op string, startAt time.Time, err error) {
	operationLatency.WithLabelValues(op).Observe(time.Since(startAt).Seconds())
	if err != nil {
		operationErrorCounter.WithLabelValues(op).Inc()
	}
}
