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
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fnrg-nfv/click/elements/standard"
	"github.com/fnrg-nfv/click/router"
)

func init() {
	router.Register("StdTestSource", func() router.Element { return &stdSource{} })
	router.Register("StdTestSink", func() router.Element { return &stdSink{} })
	router.Register("StdTestPullSink", func() router.Element { return &stdPullSink{} })
}

// stdSource anchors the push side of elements under test.
type stdSource struct {
	router.Base
}

func (s *stdSource) Class() string      { return "StdTestSource" }
func (s *stdSource) Ports() string      { return "0/1" }
func (s *stdSource) Processing() string { return "h/h" }

// stdSink records every packet pushed into it.
type stdSink struct {
	router.Base

	mtx  sync.Mutex
	pkts []*router.Packet
}

func (s *stdSink) Class() string      { return "StdTestSink" }
func (s *stdSink) Ports() string      { return "1/0" }
func (s *stdSink) Processing() string { return "h/h" }

func (s *stdSink) Push(_ int, pkt *router.Packet) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.pkts = append(s.pkts, pkt)
}

func (s *stdSink) count() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.pkts)
}

func (s *stdSink) packet(i int) *router.Packet {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.pkts[i]
}

type stdPullSink struct {
	router.Base
}

func (s *stdPullSink) Class() string      { return "StdTestPullSink" }
func (s *stdPullSink) Ports() string      { return "1/0" }
func (s *stdPullSink) Processing() string { return "l/h" }

func (s *stdPullSink) TakeOne() *router.Packet {
	return s.Input(0).Pull()
}

func buildGraph(t *testing.T, text string) *router.Graph {
	t.Helper()
	def, err := router.ParseDefinition(text)
	require.NoError(t, err)
	g, err := router.NewGraph(def, nil)
	require.NoError(t, err)
	require.NoError(t, g.Initialize())
	return g
}

func element[T router.Element](t *testing.T, g *router.Graph, name string) T {
	t.Helper()
	el, ok := g.Element(name)
	require.True(t, ok, "element %s not found", name)
	typed, ok := el.(T)
	require.True(t, ok, "element %s has type %T", name, el)
	return typed
}

func read(t *testing.T, g *router.Graph, el, handler string) string {
	t.Helper()
	v, err := g.ReadHandler(el, handler)
	require.NoError(t, err)
	return v
}

func TestCounterPushSide(t *testing.T) {
	g := buildGraph(t, `
src :: StdTestSource;
cnt :: Counter;
snk :: StdTestSink;

src -> cnt -> snk;
`)
	cnt := element[*standard.Counter](t, g, "cnt")
	snk := element[*stdSink](t, g, "snk")

	for i := 0; i < 3; i++ {
		cnt.Push(0, router.NewPacket([]byte{1, 2, 3, 4}))
	}

	assert.Equal(t, 3, snk.count())
	assert.Equal(t, "3", read(t, g, "cnt", "count"))
	assert.Equal(t, "12", read(t, g, "cnt", "byte_count"))

	rate, err := strconv.ParseFloat(read(t, g, "cnt", "rate"), 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rate, 0.0)

	require.NoError(t, g.WriteHandler("cnt", "reset_counts", ""))
	assert.Equal(t, "0", read(t, g, "cnt", "count"))
	assert.Equal(t, "0", read(t, g, "cnt", "byte_count"))
}

func TestCounterPullSide(t *testing.T) {
	g := buildGraph(t, `
src :: StdTestSource;
q :: Queue(4);
cnt :: Counter;
ps :: StdTestPullSink;

src -> q -> cnt -> ps;
`)
	q := element[*standard.Queue](t, g, "q")
	ps := element[*stdPullSink](t, g, "ps")

	q.Push(0, router.NewPacket([]byte{1}))
	q.Push(0, router.NewPacket([]byte{2}))

	assert.NotNil(t, ps.TakeOne())
	assert.NotNil(t, ps.TakeOne())
	assert.Nil(t, ps.TakeOne())
	assert.Equal(t, "2", read(t, g, "cnt", "count"))
}

func TestCounterTakeState(t *testing.T) {
	g := buildGraph(t, `
src :: StdTestSource;
cnt :: Counter;
snk :: StdTestSink;

src -> cnt -> snk;
`)
	cnt := element[*standard.Counter](t, g, "cnt")
	cnt.Push(0, router.NewPacket([]byte{9, 9}))

	g2 := buildGraph(t, `
src :: StdTestSource;
cnt :: Counter;
snk :: StdTestSink;

src -> cnt -> snk;
`)
	fresh := element[*standard.Counter](t, g2, "cnt")
	fresh.TakeState(cnt)
	assert.Equal(t, "1", read(t, g2, "cnt", "count"))
	assert.Equal(t, "2", read(t, g2, "cnt", "byte_count"))
}

func TestDiscardCounts(t *testing.T) {
	g := buildGraph(t, `
src :: StdTestSource;
d :: Discard;

src -> d;
`)
	d := element[*standard.Discard](t, g, "d")

	for i := 0; i < 4; i++ {
		d.Push(0, router.NewPacket([]byte{0}))
	}
	assert.Equal(t, "4", read(t, g, "d", "count"))

	require.NoError(t, g.WriteHandler("d", "reset_counts", ""))
	assert.Equal(t, "0", read(t, g, "d", "count"))
}

func TestTeeDuplicates(t *testing.T) {
	g := buildGraph(t, `
src :: StdTestSource;
tee :: Tee;
s1 :: StdTestSink;
s2 :: StdTestSink;
s3 :: StdTestSink;

src -> tee;
tee [0] -> s1;
tee [1] -> s2;
tee [2] -> s3;
`)
	tee := element[*standard.Tee](t, g, "tee")
	s1 := element[*stdSink](t, g, "s1")
	s2 := element[*stdSink](t, g, "s2")
	s3 := element[*stdSink](t, g, "s3")

	pkt := router.NewPacket([]byte{7, 7})
	tee.Push(0, pkt)

	require.Equal(t, 1, s1.count())
	require.Equal(t, 1, s2.count())
	require.Equal(t, 1, s3.count())
	assert.Equal(t, []byte{7, 7}, s1.packet(0).Data)
	assert.Equal(t, []byte{7, 7}, s2.packet(0).Data)
	// The last output carries the original, earlier outputs deep copies.
	assert.Same(t, pkt, s3.packet(0))
	assert.NotSame(t, pkt, s1.packet(0))
	s1.packet(0).Data[0] = 9
	assert.Equal(t, []byte{7, 7}, s3.packet(0).Data)
}
