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
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fnrg-nfv/click/pkg/private/serrors"
	"github.com/fnrg-nfv/click/router"
)

func init() {
	router.Register("TestSource", func() router.Element { return &testSource{} })
	router.Register("TestCounter", func() router.Element { return &testCounter{} })
	router.Register("TestSink", func() router.Element { return &testSink{} })
	router.Register("TestQueue", func() router.Element { return &testQueue{} })
	router.Register("TestPullSink", func() router.Element { return &testPullSink{} })
	router.Register("TestAgnostic", func() router.Element { return &testAgnostic{} })
	router.Register("TestFan", func() router.Element { return &testFan{} })
	router.Register("TestPump", func() router.Element { return &testPump{} })
	router.Register("TestBadInit", func() router.Element { return &testBadInit{} })
	router.Register("TestActive", func() router.Element { return &testActive{} })
}

// testSource pushes packets handed to it by the test body.
type testSource struct {
	router.Base
}

func (s *testSource) Class() string      { return "TestSource" }
func (s *testSource) Ports() string      { return "0/1" }
func (s *testSource) Processing() string { return "h/h" }

func (s *testSource) Emit(pkt *router.Packet) {
	s.Output(0).Push(pkt)
}

// testCounter counts forwarded packets and carries the count across swaps.
type testCounter struct {
	router.Base
	count atomic.Int64
}

func (c *testCounter) Class() string      { return "TestCounter" }
func (c *testCounter) Ports() string      { return "1/1" }
func (c *testCounter) Processing() string { return "h/h" }

func (c *testCounter) Configure(args *router.Args) error {
	start, _, err := args.Int(0, "START")
	if err != nil {
		return err
	}
	c.count.Store(int64(start))
	return args.Finish(1, "START")
}

func (c *testCounter) Push(_ int, pkt *router.Packet) {
	c.count.Add(1)
	c.Output(0).Push(pkt)
}

func (c *testCounter) Handlers() []router.Handler {
	return []router.Handler{
		{
			Name: "count",
			Read: func() string { return strconv.FormatInt(c.count.Load(), 10) },
		},
		{
			Name:  "reset",
			Write: func(string) error { c.count.Store(0); return nil },
		},
	}
}

func (c *testCounter) TakeState(old router.Element) {
	if prev, ok := old.(*testCounter); ok {
		c.count.Store(prev.count.Load())
	}
}

// testSink records every packet pushed into it.
type testSink struct {
	router.Base
	mtx sync.Mutex
	got []*router.Packet
}

func (s *testSink) Class() string      { return "TestSink" }
func (s *testSink) Ports() string      { return "1/0" }
func (s *testSink) Processing() string { return "h/h" }

func (s *testSink) Push(_ int, pkt *router.Packet) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.got = append(s.got, pkt)
}

func (s *testSink) Count() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.got)
}

// testQueue is a minimal push-in pull-out store for wiring and discovery
// tests.
type testQueue struct {
	router.Base
	mtx      sync.Mutex
	pkts     []*router.Packet
	capacity int
}

func (q *testQueue) Class() string      { return "TestQueue" }
func (q *testQueue) Ports() string      { return "1/1" }
func (q *testQueue) Processing() string { return "h/l" }

func (q *testQueue) Configure(args *router.Args) error {
	capacity, ok, err := args.Int(0, "CAPACITY")
	if err != nil {
		return err
	}
	if !ok {
		capacity = 8
	}
	q.capacity = capacity
	return args.Finish(1, "CAPACITY")
}

func (q *testQueue) Push(_ int, pkt *router.Packet) {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	if len(q.pkts) < q.capacity {
		q.pkts = append(q.pkts, pkt)
	}
}

func (q *testQueue) Pull(_ int) *router.Packet {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	if len(q.pkts) == 0 {
		return nil
	}
	pkt := q.pkts[0]
	q.pkts = q.pkts[1:]
	return pkt
}

func (q *testQueue) Occupancy() int {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return len(q.pkts)
}

func (q *testQueue) Capacity() int { return q.capacity }

// testPullSink drains its upstream when the test body asks.
type testPullSink struct {
	router.Base
}

func (s *testPullSink) Class() string      { return "TestPullSink" }
func (s *testPullSink) Ports() string      { return "1/0" }
func (s *testPullSink) Processing() string { return "l/h" }

func (s *testPullSink) TakeOne() *router.Packet {
	return s.Input(0).Pull()
}

// testAgnostic forwards in whichever direction the graph resolves it to.
type testAgnostic struct {
	router.Base
}

func (a *testAgnostic) Class() string      { return "TestAgnostic" }
func (a *testAgnostic) Ports() string      { return "1/1" }
func (a *testAgnostic) Processing() string { return "a/a" }

func (a *testAgnostic) Push(_ int, pkt *router.Packet) {
	a.Output(0).Push(pkt)
}

func (a *testAgnostic) Pull(_ int) *router.Packet {
	return a.Input(0).Pull()
}

// testFan duplicates each packet to both outputs.
type testFan struct {
	router.Base
}

func (f *testFan) Class() string      { return "TestFan" }
func (f *testFan) Ports() string      { return "1/2" }
func (f *testFan) Processing() string { return "h/h" }

func (f *testFan) Push(_ int, pkt *router.Packet) {
	f.Output(0).Push(pkt)
	f.Output(1).Push(pkt.Clone())
}

// testPump bridges a pull upstream to a push downstream on demand.
type testPump struct {
	router.Base
}

func (p *testPump) Class() string      { return "TestPump" }
func (p *testPump) Ports() string      { return "1/1" }
func (p *testPump) Processing() string { return "l/h" }

func (p *testPump) Drive() bool {
	pkt := p.Input(0).Pull()
	if pkt == nil {
		return false
	}
	p.Output(0).Push(pkt)
	return true
}

// testBadInit fails element initialization.
type testBadInit struct {
	router.Base
}

func (b *testBadInit) Class() string      { return "TestBadInit" }
func (b *testBadInit) Ports() string      { return "1/0" }
func (b *testBadInit) Processing() string { return "h/h" }

func (b *testBadInit) Push(int, *router.Packet) {}

func (b *testBadInit) Initialize(*router.Graph) error {
	return serrors.New("refusing to initialize")
}

// testActive runs a goroutine between Start and Stop.
type testActive struct {
	router.Base
	ticks atomic.Int64
	quit  chan struct{}
	wg    sync.WaitGroup
}

func (a *testActive) Class() string      { return "TestActive" }
func (a *testActive) Ports() string      { return "0/0" }
func (a *testActive) Processing() string { return "h/h" }

func (a *testActive) Start() {
	a.quit = make(chan struct{})
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-a.quit:
				return
			default:
				a.ticks.Add(1)
				time.Sleep(time.Millisecond)
			}
		}
	}()
}

func (a *testActive) Stop() {
	if a.quit == nil {
		return
	}
	close(a.quit)
	a.wg.Wait()
	a.quit = nil
}
