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

package standard_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fnrg-nfv/click/elements/standard"
	"github.com/fnrg-nfv/click/router"
)

func TestInfiniteSourceEmits(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := buildGraph(t, `
isrc :: InfiniteSource(DATA hello, INTERVAL 1ms);
snk :: StdTestSink;

isrc -> snk;
`)
	snk := element[*stdSink](t, g, "snk")

	g.Start()
	assert.Eventually(t, func() bool { return snk.count() >= 5 },
		time.Second, time.Millisecond)
	g.Stop()

	assert.Equal(t, []byte("hello"), snk.packet(0).Data)
	// Payloads are independent copies.
	snk.packet(0).Data[0] = 'x'
	assert.Equal(t, []byte("hello"), snk.packet(1).Data)

	stopped := snk.count()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, stopped, snk.count())
}

func TestInfiniteSourceDefaultPayload(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := buildGraph(t, `
isrc :: InfiniteSource(INTERVAL 1ms);
snk :: StdTestSink;

isrc -> snk;
`)
	snk := element[*stdSink](t, g, "snk")
	g.Start()
	defer g.Stop()

	assert.Eventually(t, func() bool { return snk.count() >= 1 },
		time.Second, time.Millisecond)
	assert.Len(t, snk.packet(0).Data, 64)
}

func TestInfiniteSourceLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := buildGraph(t, `
isrc :: InfiniteSource(LIMIT 5, BURST 3, INTERVAL 1ms);
snk :: StdTestSink;

isrc -> snk;
`)
	snk := element[*stdSink](t, g, "snk")
	g.Start()
	defer g.Stop()

	assert.Eventually(t, func() bool { return snk.count() == 5 },
		time.Second, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 5, snk.count(), "limit must hold")
	assert.Equal(t, "5", read(t, g, "isrc", "count"))

	// Raising the limit resumes emission.
	require.NoError(t, g.WriteHandler("isrc", "limit", "8"))
	assert.Eventually(t, func() bool { return snk.count() == 8 },
		time.Second, time.Millisecond)
}

func TestInfiniteSourceActiveHandler(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := buildGraph(t, `
isrc :: InfiniteSource(INTERVAL 1ms, ACTIVE false);
snk :: StdTestSink;

isrc -> snk;
`)
	snk := element[*stdSink](t, g, "snk")
	g.Start()
	defer g.Stop()

	assert.Equal(t, "false", read(t, g, "isrc", "active"))
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, snk.count())

	require.NoError(t, g.WriteHandler("isrc", "active", "true"))
	assert.Eventually(t, func() bool { return snk.count() > 0 },
		time.Second, time.Millisecond)

	require.NoError(t, g.WriteHandler("isrc", "active", "false"))
	assert.ErrorContains(t, g.WriteHandler("isrc", "active", "maybe"),
		"invalid boolean")
}

func TestInfiniteSourceTakeState(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := router.New(nil)
	require.NoError(t, r.ApplyConfig(`
isrc :: InfiniteSource(LIMIT 4, INTERVAL 1ms);
snk :: StdTestSink;

isrc -> snk;
`))
	assert.Eventually(t, func() bool {
		v, err := r.ReadHandler("isrc.count")
		return err == nil && v == "4"
	}, time.Second, time.Millisecond)

	// The emission total survives the swap, so the raised limit only
	// yields the difference.
	require.NoError(t, r.ApplyConfig(`
isrc :: InfiniteSource(LIMIT 6, INTERVAL 1ms);
snk :: StdTestSink;

isrc -> snk;
`))
	snk := element[*stdSink](t, r.Graph(), "snk")
	assert.Eventually(t, func() bool { return snk.count() == 2 },
		time.Second, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 2, snk.count())

	r.Stop()
}

func TestUnqueuePumps(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := buildGraph(t, `
src :: StdTestSource;
q :: Queue(10);
unq :: Unqueue(2, INTERVAL 1ms);
snk :: StdTestSink;

src -> q -> unq -> snk;
`)
	q := element[*standard.Queue](t, g, "q")
	snk := element[*stdSink](t, g, "snk")

	fillQueue(q, 1, 2, 3, 4, 5)
	g.Start()
	defer g.Stop()

	assert.Eventually(t, func() bool { return snk.count() == 5 },
		time.Second, time.Millisecond)
	assert.Equal(t, 0, q.Occupancy())
	assert.Equal(t, "5", read(t, g, "unq", "count"))
	// FIFO order is preserved through the pump.
	assert.Equal(t, []byte{1}, snk.packet(0).Data)
	assert.Equal(t, []byte{5}, snk.packet(4).Data)
}

func TestUnqueueActiveAndBurstHandlers(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := buildGraph(t, `
src :: StdTestSource;
q :: Queue(10);
unq :: Unqueue(INTERVAL 1ms, ACTIVE false);
snk :: StdTestSink;

src -> q -> unq -> snk;
`)
	q := element[*standard.Queue](t, g, "q")
	snk := element[*stdSink](t, g, "snk")

	fillQueue(q, 1, 2, 3)
	g.Start()
	defer g.Stop()

	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, snk.count())

	require.NoError(t, g.WriteHandler("unq", "burst", "3"))
	assert.Equal(t, "3", read(t, g, "unq", "burst"))
	require.NoError(t, g.WriteHandler("unq", "active", "true"))
	assert.Eventually(t, func() bool { return snk.count() == 3 },
		time.Second, time.Millisecond)

	assert.ErrorContains(t, g.WriteHandler("unq", "burst", "0"),
		"burst must be a positive integer")
}

func TestActiveElementConfigureErrors(t *testing.T) {
	testCases := map[string]struct {
		decl   string
		errMsg string
	}{
		"source zero burst": {
			decl:   "isrc :: InfiniteSource(BURST 0)",
			errMsg: "burst must be positive",
		},
		"source zero interval": {
			decl:   "isrc :: InfiniteSource(INTERVAL 0s)",
			errMsg: "interval must be positive",
		},
		"source garbage interval": {
			decl:   "isrc :: InfiniteSource(INTERVAL soon)",
			errMsg: "invalid duration",
		},
		"unqueue zero burst": {
			decl:   "unq :: Unqueue(0)",
			errMsg: "burst must be positive",
		},
		"unqueue bad active": {
			decl:   "unq :: Unqueue(ACTIVE maybe)",
			errMsg: "invalid boolean",
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			def, err := router.ParseDefinition(
				tc.decl + "; snk :: StdTestSink;")
			require.NoError(t, err)
			_, err = router.NewGraph(def, nil)
			assert.ErrorContains(t, err, tc.errMsg)
		})
	}
}
