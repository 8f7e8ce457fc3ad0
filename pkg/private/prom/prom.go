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

// Package prom contains some utility functions for dealing with prometheus
// metrics.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Common label values.
const (
	// LabelResult is the label for result classifications.
	LabelResult = "result"
	// LabelElement is the label for the name of a pipeline element.
	LabelElement = "element"
	// LabelClass is the label for the class of a pipeline element.
	LabelClass = "class"
	// LabelOperation is the label for the name of an executed operation.
	LabelOperation = "op"
)

// Common result values.
const (
	// Success is no error.
	Success = "ok_success"
	// ErrInternal is an internal error.
	ErrInternal = "err_internal"
	// ErrInvalidReq is an invalid request.
	ErrInvalidReq = "err_invalid_request"
	// ErrParse failed to parse request.
	ErrParse = "err_parse"
	// ErrNotFound is used for errors where a resource is not found.
	ErrNotFound = "err_not_found"
)

var (
	// DefaultLatencyBuckets 10ms, 20ms, 40ms, ... 5.12s, 10.24s.
	DefaultLatencyBuckets = []float64{0.01, 0.02, 0.04, 0.08, 0.16, 0.32, 0.64,
		1.28, 2.56, 5.12, 10.24}
	// DefaultSizeBuckets 32, 64, 128, 256, 512, 1024, 2048, 4096, 8192, 16384.
	DefaultSizeBuckets = []float64{32, 64, 128, 256, 512, 1024, 2048, 4096, 8192, 16384}
)

// ExportElementID exports the element ID as configured in the config file.
func ExportElementID(id string) {
	promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "click",
			Subsystem: "",
			Name:      "elem_id",
			Help:      "The element ID from the config file",
		},
		[]string{"cfg"},
	).WithLabelValues(id).Set(1)
}

// SafeRegister registers c and returns the registered collector. If c was
// already registered the already registered collector is returned. In case of
// any other error this method panics (as MustRegister).
func SafeRegister(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		are := prometheus.AlreadyRegisteredError{}
		if ok := AsAlreadyRegistered(err, &are); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

// AsAlreadyRegistered reports whether err is an AlreadyRegisteredError and
// fills are if so.
func AsAlreadyRegistered(err error, are *prometheus.AlreadyRegisteredError) bool {
	if e, ok := err.(prometheus.AlreadyRegisteredError); ok {
		*are = e
		return true
	}
	return false
}
