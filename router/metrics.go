// Copyright 2025 Future Networks Research Group
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fnrg-nfv/click/pkg/private/prom"
)

// Metrics defines the data-plane metrics of the pipeline. Ports cache their
// counters at wiring time, so per-packet updates never touch a label lookup.
type Metrics struct {
	PushedPackets *prometheus.CounterVec
	PulledPackets *prometheus.CounterVec
	PacketSize    *prometheus.HistogramVec
	QueueDrops    *prometheus.CounterVec
	QueueLength   *prometheus.GaugeVec
	AQMDrops      *prometheus.CounterVec
	AQMMarks      *prometheus.CounterVec
	AQMMaxP       *prometheus.GaugeVec
	ConfigApplies *prometheus.CounterVec
	Elements      prometheus.Gauge
}

// NewMetrics initializes the metrics and registers them with the given
// registerer. A nil registerer leaves the metrics unregistered, which the
// tests use to build graphs side by side.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PushedPackets: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "click_pushed_pkts_total",
				Help: "Total number of packets pushed into an element class.",
			},
			[]string{"class"},
		),
		PulledPackets: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "click_pulled_pkts_total",
				Help: "Total number of packets pulled from an element class.",
			},
			[]string{"class"},
		),
		PacketSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "click_packet_size_bytes",
				Help:    "Size of the packets handed between elements.",
				Buckets: prom.DefaultSizeBuckets,
			},
			[]string{"class"},
		),
		QueueDrops: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "click_queue_drops_total",
				Help: "Total number of packets dropped by full queues.",
			},
			[]string{"element"},
		),
		QueueLength: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "click_queue_length",
				Help: "Current number of packets stored in a queue.",
			},
			[]string{"element"},
		),
		AQMDrops: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "click_aqm_drops_total",
				Help: "Total number of packets dropped by queue management.",
			},
			[]string{"element", "kind"},
		),
		AQMMarks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "click_aqm_marks_total",
				Help: "Total number of packets diverted to the mark output.",
			},
			[]string{"element"},
		),
		AQMMaxP: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "click_aqm_max_p",
				Help: "Current maximum drop probability of an adaptive AQM element.",
			},
			[]string{"element"},
		),
		ConfigApplies: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "click_config_applies_total",
				Help: "Total number of pipeline configurations applied.",
			},
			[]string{prom.LabelResult},
		),
		Elements: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "click_elements",
				Help: "Number of elements in the running pipeline.",
			},
		),
	}
}
