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

package readiness

import "github.com/prometheus/client_golang/prometheus"

var (
	pendingGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "readiness_pending_callbacks",
			Help: "The number of callbacks waiting for attributes.",
		},
	)
	callbackCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readiness_callbacks_total",
			Help: "The number of readiness callbacks by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		pendingGauge,
		callbackCounter,
	)
}
