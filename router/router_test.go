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

package router_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fnrg-nfv/click/router"
)

const basePipeline = `
	src :: TestSource;
	cnt :: TestCounter;
	snk :: TestSink;
	src -> cnt -> snk;
`

func emit(t *testing.T, r *router.Router, name string, n int) {
	t.Helper()
	g := r.Graph()
	require.NotNil(t, g)
	src := element[*testSource](t, g, name)
	for i := 0; i < n; i++ {
		src.Emit(router.NewPacket(make([]byte, 32)))
	}
}

func readCount(t *testing.T, r *router.Router) string {
	t.Helper()
	v, err := r.ReadHandler("cnt.count")
	require.NoError(t, err)
	return v
}

func TestRouterApplyConfig(t *testing.T) {
	r := router.New(nil)
	require.NoError(t, r.ApplyConfig(basePipeline))
	assert.Equal(t, basePipeline, r.Config())

	emit(t, r, "src", 3)
	assert.Equal(t, "3", readCount(t, r))

	require.NoError(t, r.WriteHandler("cnt.reset", ""))
	assert.Equal(t, "0", readCount(t, r))
}

func TestRouterHotSwap(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := router.New(nil)
	require.NoError(t, r.ApplyConfig(basePipeline))
	emit(t, r, "src", 3)
	oldGraph := r.Graph()
	oldSink := element[*testSink](t, oldGraph, "snk")

	swapped := `
		src :: TestSource;
		cnt :: TestCounter;
		snk :: TestSink;
		act :: TestActive;
		src -> cnt -> snk;
	`
	require.NoError(t, r.ApplyConfig(swapped))
	assert.Equal(t, swapped, r.Config())
	assert.NotSame(t, oldGraph, r.Graph())

	// Counter state survived the swap, the sink did not.
	assert.Equal(t, "3", readCount(t, r))
	emit(t, r, "src", 1)
	assert.Equal(t, "4", readCount(t, r))
	assert.Equal(t, 1, element[*testSink](t, r.Graph(), "snk").Count())
	assert.Equal(t, 3, oldSink.Count())

	r.Stop()
	assert.Nil(t, r.Graph())
	_, err := r.ReadHandler("cnt.count")
	assert.ErrorContains(t, err, "no pipeline is running")
}

func TestRouterSwapStopsOldActivity(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := router.New(nil)
	require.NoError(t, r.ApplyConfig(`act :: TestActive;`))
	first := element[*testActive](t, r.Graph(), "act")

	require.NoError(t, r.ApplyConfig(`act :: TestActive;`))
	second := element[*testActive](t, r.Graph(), "act")
	require.NotSame(t, first, second)

	ticked := first.ticks.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, ticked, first.ticks.Load(), "old element still running")

	r.Stop()
}

func TestRouterApplyConfigErrors(t *testing.T) {
	r := router.New(nil)
	require.NoError(t, r.ApplyConfig(basePipeline))
	emit(t, r, "src", 2)
	oldGraph := r.Graph()

	testCases := map[string]struct {
		text   string
		errMsg string
	}{
		"parse error": {
			text:   `src -> ;`,
			errMsg: "parsing pipeline definition",
		},
		"build error": {
			text:   `x :: NoSuchClass;`,
			errMsg: "building pipeline",
		},
		"initialize error": {
			text: `
				src :: TestSource;
				bad :: TestBadInit;
				src -> bad;
			`,
			errMsg: "initializing pipeline",
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			err := r.ApplyConfig(tc.text)
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.errMsg)
			assert.Same(t, oldGraph, r.Graph(), "running pipeline must survive")
			assert.Equal(t, "2", readCount(t, r))
		})
	}
	r.Stop()
}

func TestRouterWithoutPipeline(t *testing.T) {
	r := router.New(nil)
	assert.Nil(t, r.Graph())
	assert.Empty(t, r.Config())
	_, err := r.ReadHandler("cnt.count")
	assert.ErrorContains(t, err, "no pipeline is running")
	r.Stop()
}

func TestRouterHandlerReference(t *testing.T) {
	r := router.New(nil)
	require.NoError(t, r.ApplyConfig(basePipeline))
	defer r.Stop()

	for _, spec := range []string{"nodot", ".count", "cnt."} {
		_, err := r.ReadHandler(spec)
		assert.ErrorContains(t, err, "invalid handler reference", spec)
	}
}
