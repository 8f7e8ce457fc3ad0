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

package aqm

import (
	"context"
	"time"

	"github.com/fnrg-nfv/click/pkg/ewma"
	"github.com/fnrg-nfv/click/private/periodic"
	"github.com/fnrg-nfv/click/router"
)

const (
	// AdaptiveInterval is the period of the ceiling controller.
	AdaptiveInterval = 500 * time.Millisecond

	// DefaultAdaptiveMaxP is the initial probability ceiling when MAX_P is
	// omitted: 0.02 in 1/router.ProbabilityDenom units, rounded the same
	// way a configured "0.02" parses.
	DefaultAdaptiveMaxP = 1311

	// The controller keeps the ceiling in [maxPFloor, maxPCeiling]. It
	// moves upward by maxPStep (about 0.01) while the ceiling is at most
	// maxPCeiling and downward by the factor maxPDecay/2^16 (about 0.9)
	// while the ceiling is at least maxPFloor; the clamp runs after the
	// move.
	maxPStep    = router.ProbabilityDenom / 100
	maxPFloor   = maxPStep
	maxPCeiling = router.ProbabilityDenom / 2
	maxPDecay   = 58982
)

// AdaptiveRED is a RED element whose probability ceiling is retuned every
// AdaptiveInterval: the ceiling grows additively while the average
// occupancy sits above the threshold midpoint and shrinks multiplicatively
// while it sits below. MAX_P is optional and defaults to 0.02.
type AdaptiveRED struct {
	RED

	runner *periodic.Runner
}

func (a *AdaptiveRED) Class() string { return "AdaptiveRED" }

func (a *AdaptiveRED) Configure(args *router.Args) error {
	return a.configure(args, DefaultAdaptiveMaxP)
}

// Start arms the controller. A fire that overlaps a live reconfiguration
// simply observes the new parameter set.
func (a *AdaptiveRED) Start() {
	if a.runner != nil {
		return
	}
	a.runner = periodic.Start(adaptTask{a}, AdaptiveInterval, AdaptiveInterval)
}

// Stop disarms the controller and waits for an in-flight fire to finish.
// Stop is idempotent.
func (a *AdaptiveRED) Stop() {
	if a.runner == nil {
		return
	}
	a.runner.Stop()
	a.runner = nil
}

// adapt runs one controller step. Comparisons use whole packets; a whole
// packet average exactly at the midpoint leaves the ceiling alone.
func (a *AdaptiveRED) adapt() {
	a.writeMtx.Lock()
	defer a.writeMtx.Unlock()
	p := a.params.Load()
	target := (p.minThresh + p.maxThresh) >> (ewma.Scale + 1)
	avg := a.est.Unscaled()

	maxP := p.maxP
	switch {
	case avg > target && maxP <= maxPCeiling:
		maxP += maxPStep
	case avg < target && maxP >= maxPFloor:
		maxP = maxP * maxPDecay >> 16
	default:
		return
	}
	if maxP < maxPFloor {
		maxP = maxPFloor
	}
	if maxP > maxPCeiling {
		maxP = maxPCeiling
	}
	if maxP == p.maxP {
		return
	}
	np := *p
	np.maxP = maxP
	a.params.Store(&np)
	if a.maxPGauge != nil {
		a.maxPGauge.Set(probabilityValue(maxP))
	}
}

type adaptTask struct {
	red *AdaptiveRED
}

func (t adaptTask) Run(context.Context) { t.red.adapt() }
func (t adaptTask) Name() string        { return "aqm_adaptive_red" }
