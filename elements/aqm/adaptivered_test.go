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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fnrg-nfv/click/pkg/ewma"
	"github.com/fnrg-nfv/click/router"
)

const adaptivePipeline = `
src :: AQMTestSource;
red :: AdaptiveRED(5, 50);
q :: AQMTestQueue;
ps :: AQMTestPullSink;

src -> red -> q -> ps;
`

func TestAdaptiveREDConfigure(t *testing.T) {
	t.Run("default max_p", func(t *testing.T) {
		g := buildGraph(t, adaptivePipeline)
		red := element[*AdaptiveRED](t, g, "red")
		assert.EqualValues(t, DefaultAdaptiveMaxP, red.params.Load().maxP)
		assert.EqualValues(t, 5<<ewma.Scale, red.params.Load().minThresh)
		assert.EqualValues(t, 50<<ewma.Scale, red.params.Load().maxThresh)
	})
	t.Run("explicit max_p", func(t *testing.T) {
		g := buildGraph(t, `
src :: AQMTestSource;
red :: AdaptiveRED(5, 50, MAX_P 0.5, QUEUES q);
q :: AQMTestQueue;
ps :: AQMTestPullSink;

src -> red -> q -> ps;
`)
		red := element[*AdaptiveRED](t, g, "red")
		assert.EqualValues(t, 32768, red.params.Load().maxP)
		assert.Equal(t, []string{"q"}, red.queueNames)
	})
	t.Run("errors", func(t *testing.T) {
		testCases := map[string]struct {
			config string
			errMsg string
		}{
			"missing min_thresh":  {"", "missing parameter"},
			"missing max_thresh":  {"(5)", "missing parameter"},
			"inverted thresholds": {"(50, 5)", "thresholds out of order"},
		}
		for name, tc := range testCases {
			t.Run(name, func(t *testing.T) {
				def, err := router.ParseDefinition(
					"src :: AQMTestSource; red :: AdaptiveRED" + tc.config + "; src -> red;")
				require.NoError(t, err)
				_, err = router.NewGraph(def, nil)
				assert.ErrorContains(t, err, tc.errMsg)
			})
		}
	})
}

func TestAdaptiveControllerRaisesCeiling(t *testing.T) {
	g := buildGraph(t, adaptivePipeline)
	red := element[*AdaptiveRED](t, g, "red")

	// Average pinned above the threshold midpoint: the ceiling grows by
	// one step per firing until it saturates at half the range.
	setAverage(&red.RED, 40)
	red.adapt()
	assert.EqualValues(t, DefaultAdaptiveMaxP+maxPStep, red.params.Load().maxP)

	for i := 0; i < 60; i++ {
		red.adapt()
	}
	assert.EqualValues(t, maxPCeiling, red.params.Load().maxP)
	red.adapt()
	assert.EqualValues(t, maxPCeiling, red.params.Load().maxP)
}

func TestAdaptiveControllerLowersCeiling(t *testing.T) {
	g := buildGraph(t, `
src :: AQMTestSource;
red :: AdaptiveRED(5, 50, 0.5);
q :: AQMTestQueue;
ps :: AQMTestPullSink;

src -> red -> q -> ps;
`)
	red := element[*AdaptiveRED](t, g, "red")

	// Average pinned below the midpoint: the ceiling decays by the fixed
	// factor per firing until it saturates at the floor.
	setAverage(&red.RED, 10)
	red.adapt()
	assert.EqualValues(t, 29491, red.params.Load().maxP)

	for i := 0; i < 60; i++ {
		red.adapt()
	}
	assert.EqualValues(t, maxPFloor, red.params.Load().maxP)
	red.adapt()
	assert.EqualValues(t, maxPFloor, red.params.Load().maxP)
}

func TestAdaptiveControllerStableAtMidpoint(t *testing.T) {
	g := buildGraph(t, adaptivePipeline)
	red := element[*AdaptiveRED](t, g, "red")

	setAverage(&red.RED, 27)
	for i := 0; i < 20; i++ {
		red.adapt()
	}
	assert.EqualValues(t, DefaultAdaptiveMaxP, red.params.Load().maxP)

	setAverage(&red.RED, 28)
	red.adapt()
	assert.EqualValues(t, DefaultAdaptiveMaxP+maxPStep, red.params.Load().maxP)

	setAverage(&red.RED, 26)
	red.adapt()
	assert.Less(t, red.params.Load().maxP, int64(DefaultAdaptiveMaxP+maxPStep))
}

func TestAdaptiveREDTimerLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	require.Equal(t, 500*time.Millisecond, AdaptiveInterval)

	g := buildGraph(t, adaptivePipeline)
	red := element[*AdaptiveRED](t, g, "red")
	g.Start()
	require.NotNil(t, red.runner)

	runner := red.runner
	red.Start()
	assert.Same(t, runner, red.runner, "second Start must not rearm")

	setAverage(&red.RED, 40)
	red.runner.TriggerRun()
	assert.Eventually(t, func() bool {
		return red.params.Load().maxP > DefaultAdaptiveMaxP
	}, time.Second, 2*time.Millisecond)

	g.Stop()
	assert.Nil(t, red.runner)
	red.Stop()
}

func TestAdaptiveREDHotSwap(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := router.New(nil)
	require.NoError(t, r.ApplyConfig(adaptivePipeline))
	old := element[*AdaptiveRED](t, r.Graph(), "red")
	old.drops.Store(42)
	old.count.Store(3)
	// Both configurations share the midpoint 27, so a controller firing
	// during the swap leaves the ceiling alone.
	setAverage(&old.RED, 27)
	require.NoError(t, r.WriteHandler("red.max_p", "0.25"))

	require.NoError(t, r.ApplyConfig(`
src :: AQMTestSource;
red :: AdaptiveRED(10, 44);
q :: AQMTestQueue;
ps :: AQMTestPullSink;

src -> red -> q -> ps;
`))
	red := element[*AdaptiveRED](t, r.Graph(), "red")
	require.NotSame(t, old, red)
	assert.Nil(t, old.runner, "swapped-out controller must be stopped")

	assert.EqualValues(t, 42, red.drops.Load())
	assert.EqualValues(t, 3, red.count.Load())
	assert.EqualValues(t, 27<<ewma.Scale, red.est.Average())
	p := red.params.Load()
	assert.EqualValues(t, 16384, p.maxP)
	assert.EqualValues(t, 10<<ewma.Scale, p.minThresh)

	drops, err := r.ReadHandler("red.drops")
	require.NoError(t, err)
	assert.Equal(t, "42", drops)

	r.Stop()
}

func TestAdaptiveREDTakeStateCrossKind(t *testing.T) {
	oldGraph := buildGraph(t, redPipeline)
	plain := element[*RED](t, oldGraph, "red")
	plain.drops.Store(7)
	require.NoError(t, oldGraph.WriteHandler("red", "max_p", "0.25"))

	t.Run("plain to adaptive", func(t *testing.T) {
		g := buildGraph(t, adaptivePipeline)
		red := element[*AdaptiveRED](t, g, "red")
		red.TakeState(plain)
		assert.EqualValues(t, 7, red.drops.Load())
		assert.EqualValues(t, 16384, red.params.Load().maxP)
	})

	t.Run("adaptive to plain", func(t *testing.T) {
		ag := buildGraph(t, adaptivePipeline)
		adaptive := element[*AdaptiveRED](t, ag, "red")
		adaptive.drops.Store(9)

		g := buildGraph(t, redPipeline)
		red := element[*RED](t, g, "red")
		red.TakeState(adaptive)
		assert.EqualValues(t, 9, red.drops.Load())
		assert.EqualValues(t, DefaultAdaptiveMaxP, red.params.Load().maxP)
	})
}
