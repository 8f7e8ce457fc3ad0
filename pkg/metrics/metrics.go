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

// Package metrics defines simple interfaces for generic metrics primitives,
// decoupling packages from the concrete metrics implementation. The
// interfaces are satisfied by wrapped prometheus collectors and by in-memory
// fakes for use in tests.
//
// All helper functions in this package treat nil metrics as valid and turn
// operations on them into no-ops. This allows code to be instrumented
// unconditionally, with the caller deciding which metrics to collect.
package metrics

// Counter describes a metric that accumulates values monotonically.
type Counter interface {
	// With returns a counter with the given label values attached.
	With(labelValues ...string) Counter
	// Add increments the counter by the given delta. The delta must be
	// non-negative.
	Add(delta float64)
}

// Gauge describes a metric that takes specific values over time.
type Gauge interface {
	// With returns a gauge with the given label values attached.
	With(labelValues ...string) Gauge
	// Set sets the gauge to the given value.
	Set(value float64)
	// Add increments the gauge by the given delta. The delta can be
	// negative.
	Add(delta float64)
}

// CounterInc increases the passed counter by one, if it is non-nil.
func CounterInc(c Counter) {
	CounterAdd(c, 1)
}

// CounterAdd increases the passed counter by delta, if it is non-nil.
func CounterAdd(c Counter, delta float64) {
	if c != nil {
		c.Add(delta)
	}
}

// CounterWith returns the counter with the label values attached, if it is
// non-nil.
func CounterWith(c Counter, labelValues ...string) Counter {
	if c != nil {
		return c.With(labelValues...)
	}
	return nil
}

// GaugeSet sets the passed gauge to value, if it is non-nil.
func GaugeSet(g Gauge, value float64) {
	if g != nil {
		g.Set(value)
	}
}

// GaugeAdd increases the passed gauge by delta, if it is non-nil.
func GaugeAdd(g Gauge, delta float64) {
	if g != nil {
		g.Add(delta)
	}
}

// GaugeWith returns the gauge with the label values attached, if it is
// non-nil.
func GaugeWith(g Gauge, labelValues ...string) Gauge {
	if g != nil {
		return g.With(labelValues...)
	}
	return nil
}
