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

package changes

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	changeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_queue_pushed_total",
			Help: "The number of change events pushed, by kind.",
		},
		[]string{"kind"},
	)
	queueLengthGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "change_queue_length",
			Help: "The number of change events waiting for the consumer.",
		},
	)
	batchFlushCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "change_queue_flushes_total",
			Help: "The number of batch flushes performed by the consumer.",
		},
	)
	consumeLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "change_queue_consume_latency_seconds",
			Help:    "The latency of one queue drain.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		},
	)
)

func init() {
	prometheus.MustRegister(
		changeCounter,
		queueLengthGauge,
		batchFlushCounter,
		consumeLatency,
	)
}

func logConsumeLatency(startAt time.Time) {
	consumeLatency.Observe(time.Since(startAt).Seconds())
}
