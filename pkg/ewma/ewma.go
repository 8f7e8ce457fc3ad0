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

// Package ewma implements the fixed-point decayed occupancy average used by
// the queue management elements.
//
// Samples are scaled by Scale fractional bits before entering the average,
// giving sub-packet precision without floating point. Each non-zero sample
// moves the average toward the sample by 1/16 of the distance. A zero sample
// decays the average once per estimator tick elapsed since the previous
// sample, compensating for idle periods in which no samples arrived.
package ewma

import (
	"sync/atomic"
	"time"
)

const (
	// Scale is the number of fractional bits added to samples.
	Scale = 10
	// DefaultTickInterval is the length of one estimator tick. Idle decay
	// is applied once per elapsed tick.
	DefaultTickInterval = 20 * time.Millisecond

	stabilityShift = 4
	compensation   = 1 << (stabilityShift - 1)
)

// Boundaries of the idle decay computation. Gaps of up to exactTicks ticks
// are decayed iteratively. Longer gaps use two linear segments fitted
// against the iterative reference, meeting at kneeTicks and reaching zero
// within horizonTicks.
const (
	exactTicks   = 16
	kneeTicks    = 40
	horizonTicks = 88

	one = 1 << 16
)

var idleCoeff = calibrateIdleDecay()

// idleSegments holds the four coefficients of the piecewise-linear idle
// decay approximation, in 1/65536 units.
type idleSegments struct {
	midBase   int64
	midSlope  int64
	tailBase  int64
	tailSlope int64
}

func calibrateIdleDecay() idleSegments {
	f := iterativeDecay(horizonTicks)
	midBase, midSlope := chord(f, exactTicks, kneeTicks)
	tailBase, tailSlope := chord(f, kneeTicks, horizonTicks)
	return idleSegments{
		midBase:   midBase,
		midSlope:  midSlope,
		tailBase:  tailBase,
		tailSlope: tailSlope,
	}
}

// iterativeDecay returns the factor remaining after n per-tick decay steps,
// in 1/65536 units, for every n in [0, max].
func iterativeDecay(max int) []int64 {
	f := make([]int64, max+1)
	f[0] = one
	for i := 1; i <= max; i++ {
		f[i] = f[i-1] - f[i-1]>>stabilityShift
	}
	return f
}

// chord fits a line through (lo, f[lo]) and (hi, f[hi]) and lowers it by
// half the maximum deviation from the reference, halving the worst-case
// error of the segment.
func chord(f []int64, lo, hi int) (base, slope int64) {
	n := int64(hi - lo)
	slope = (f[lo] - f[hi] + n/2) / n
	var maxErr int64
	for i := lo + 1; i <= hi; i++ {
		if e := f[lo] - slope*int64(i-lo) - f[i]; e > maxErr {
			maxErr = e
		}
	}
	return f[lo] - maxErr/2, slope
}

// decayFactor returns the multiplier, in 1/65536 units, equivalent to
// applying ticks per-tick decay steps at once.
func decayFactor(ticks int64) int64 {
	switch {
	case ticks <= 0:
		return one
	case ticks <= exactTicks:
		f := int64(one)
		for i := int64(0); i < ticks; i++ {
			f -= f >> stabilityShift
		}
		return f
	case ticks <= kneeTicks:
		return idleCoeff.midBase - idleCoeff.midSlope*(ticks-exactTicks)
	case ticks <= horizonTicks:
		f := idleCoeff.tailBase - idleCoeff.tailSlope*(ticks-kneeTicks)
		if f < 0 {
			f = 0
		}
		return f
	default:
		return 0
	}
}

// Estimator keeps the decayed occupancy average. The packet path is the
// single writer; introspection handlers may read concurrently.
type Estimator struct {
	tick     time.Duration
	avg      atomic.Int64
	lastTick atomic.Int64
}

// New returns an estimator with the given tick interval. A non-positive
// interval selects DefaultTickInterval.
func New(tick time.Duration) *Estimator {
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	return &Estimator{tick: tick}
}

// Update feeds an occupancy sample observed at the given time and returns
// the new average in scaled units. Non-monotonic or identical timestamps
// count as zero elapsed ticks and never fail.
func (e *Estimator) Update(occupancy int, now time.Time) int64 {
	tick := now.UnixNano() / int64(e.tick)
	elapsed := tick - e.lastTick.Load()
	if elapsed < 0 {
		// Clock went backwards. Keep the newer tick so the next sample does
		// not observe an inflated gap.
		elapsed = 0
		tick = e.lastTick.Load()
	}
	e.lastTick.Store(tick)

	avg := e.avg.Load()
	if occupancy == 0 {
		avg = (avg * decayFactor(elapsed)) >> 16
	} else {
		avg += (int64(occupancy)<<Scale - avg + compensation) >> stabilityShift
	}
	e.avg.Store(avg)
	return avg
}

// Average returns the current average in scaled units.
func (e *Estimator) Average() int64 {
	return e.avg.Load()
}

// Unscaled returns the current average rounded to whole packets.
func (e *Estimator) Unscaled() int64 {
	return (e.avg.Load() + 1<<(Scale-1)) >> Scale
}

// State is a snapshot of the estimator, used to hand the average off to a
// replacement instance.
type State struct {
	Average  int64
	LastTick int64
}

// State snapshots the estimator.
func (e *Estimator) State() State {
	return State{Average: e.avg.Load(), LastTick: e.lastTick.Load()}
}

// SetState overwrites the estimator from a snapshot.
func (e *Estimator) SetState(s State) {
	e.avg.Store(s.Average)
	e.lastTick.Store(s.LastTick)
}

// Simple is a plain exponentially weighted moving average over scaled
// samples, without idle compensation. The first sample initializes the
// average directly. The zero value is ready to use. Simple is not safe for
// concurrent use.
type Simple struct {
	avg int64
	set bool
}

// Update feeds a sample in scaled units and returns the new average.
func (s *Simple) Update(sample int64) int64 {
	if !s.set {
		s.avg = sample
		s.set = true
		return s.avg
	}
	s.avg += (sample - s.avg + compensation) >> stabilityShift
	return s.avg
}

// Average returns the current average in scaled units.
func (s *Simple) Average() int64 {
	return s.avg
}
