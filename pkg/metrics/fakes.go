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

package metrics

import (
	"sort"
	"strings"
	"sync"
)

// store keeps one value per canonical label set. All metrics derived from
// the same fake share a store.
type store struct {
	mtx    sync.Mutex
	values map[string]float64
}

func newStore() *store {
	return &store{values: make(map[string]float64)}
}

func (s *store) add(key string, delta float64, canBeNegative bool) {
	if !canBeNegative && delta < 0 {
		panic("counter increment value is < 0")
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.values[key] += delta
}

func (s *store) set(key string, v float64) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.values[key] = v
}

func (s *store) value(key string) float64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.values[key]
}

// labelKey computes the canonical key for a label value list. Order of the
// pairs does not matter.
func labelKey(lvs labelValuesSlice) string {
	pairs := make([]string, 0, len(lvs)/2)
	for i := 0; i+1 < len(lvs); i += 2 {
		pairs = append(pairs, lvs[i]+"\x00"+lvs[i+1])
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "\x01")
}

// TestCounter implements a counter for use in tests. Counters derived via
// With share the same storage, with one value per label set.
type TestCounter struct {
	store *store
	lvs   labelValuesSlice
}

// NewTestCounter creates a new counter for use in tests.
func NewTestCounter() *TestCounter {
	return &TestCounter{store: newStore()}
}

// With implements Counter.
func (c *TestCounter) With(labelValues ...string) Counter {
	return &TestCounter{
		store: c.store,
		lvs:   c.lvs.With(labelValues...),
	}
}

// Add increases the value of the counter by the specified delta. The delta
// must be non-negative.
func (c *TestCounter) Add(delta float64) {
	c.store.add(labelKey(c.lvs), delta, false)
}

// CounterValue extracts the value out of a TestCounter. If the argument is
// not a *TestCounter, CounterValue will panic.
func CounterValue(c Counter) float64 {
	tc := c.(*TestCounter)
	return tc.store.value(labelKey(tc.lvs))
}

// TestGauge implements a gauge for use in tests. Gauges derived via With
// share the same storage, with one value per label set.
type TestGauge struct {
	store *store
	lvs   labelValuesSlice
}

// NewTestGauge creates a new gauge for use in tests.
func NewTestGauge() *TestGauge {
	return &TestGauge{store: newStore()}
}

// With implements Gauge.
func (g *TestGauge) With(labelValues ...string) Gauge {
	return &TestGauge{
		store: g.store,
		lvs:   g.lvs.With(labelValues...),
	}
}

// Set sets the value of the gauge to the specified value.
func (g *TestGauge) Set(v float64) {
	g.store.set(labelKey(g.lvs), v)
}

// Add increases the value of the gauge by the specified delta. The delta
// can be negative.
func (g *TestGauge) Add(delta float64) {
	g.store.add(labelKey(g.lvs), delta, true)
}

// GaugeValue extracts the value out of a TestGauge. If the argument is not a
// *TestGauge, GaugeValue will panic.
func GaugeValue(g Gauge) float64 {
	tg := g.(*TestGauge)
	return tg.store.value(labelKey(tg.lvs))
}
