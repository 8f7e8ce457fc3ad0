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

// Package standard implements the general-purpose pipeline elements:
// buffering, duplication, counting, traffic generation, and sinks.
package standard

import (
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fnrg-nfv/click/pkg/private/serrors"
	"github.com/fnrg-nfv/click/router"
)

func init() {
	router.Register("Queue", func() router.Element { return &Queue{} })
	router.Register("Counter", func() router.Element { return &Counter{} })
	router.Register("Discard", func() router.Element { return &Discard{} })
	router.Register("InfiniteSource", func() router.Element { return &InfiniteSource{} })
	router.Register("Unqueue", func() router.Element { return &Unqueue{} })
	router.Register("Tee", func() router.Element { return &Tee{} })
}

// DefaultQueueCapacity bounds a Queue when CAPACITY is not configured.
const DefaultQueueCapacity = 1000

// Queue is a bounded FIFO packet buffer with a push input and a pull
// output. A packet arriving at a full queue is dropped at the tail. Queue
// implements the Storage capability, so AQM elements can observe its
// occupancy. Sources may push from their own goroutines, so the buffer is
// mutex guarded.
type Queue struct {
	router.Base

	mtx       sync.Mutex
	buf       []*router.Packet
	head      int
	n         int
	highwater int
	drops     int64

	dropsMetric  prometheus.Counter
	lengthMetric prometheus.Gauge
}

func (q *Queue) Class() string      { return "Queue" }
func (q *Queue) Ports() string      { return "1/1" }
func (q *Queue) Processing() string { return "h/l" }

func (q *Queue) Configure(args *router.Args) error {
	capacity := DefaultQueueCapacity
	c, ok, err := args.Int(0, "CAPACITY")
	if err != nil {
		return err
	}
	if ok {
		capacity = c
	}
	if err := args.Finish(1, "CAPACITY"); err != nil {
		return err
	}
	if capacity <= 0 {
		return serrors.New("capacity must be positive",
			"param", "CAPACITY", "value", capacity)
	}
	q.buf = make([]*router.Packet, capacity)
	return nil
}

func (q *Queue) Initialize(g *router.Graph) error {
	m := g.Metrics()
	q.dropsMetric = m.QueueDrops.WithLabelValues(q.Name())
	q.lengthMetric = m.QueueLength.WithLabelValues(q.Name())
	return nil
}

func (q *Queue) Push(_ int, pkt *router.Packet) {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	if q.n == len(q.buf) {
		q.drops++
		if q.dropsMetric != nil {
			q.dropsMetric.Inc()
		}
		return
	}
	q.buf[(q.head+q.n)%len(q.buf)] = pkt
	q.n++
	if q.n > q.highwater {
		q.highwater = q.n
	}
	if q.lengthMetric != nil {
		q.lengthMetric.Set(float64(q.n))
	}
}

func (q *Queue) Pull(_ int) *router.Packet {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	if q.n == 0 {
		return nil
	}
	pkt := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	if q.lengthMetric != nil {
		q.lengthMetric.Set(float64(q.n))
	}
	return pkt
}

func (q *Queue) Occupancy() int {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return q.n
}

func (q *Queue) Capacity() int {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return len(q.buf)
}

// TakeState migrates the buffered packets from the replaced queue in FIFO
// order. Packets beyond this queue's capacity are dropped and counted. The
// drop and highwater statistics carry over.
func (q *Queue) TakeState(old router.Element) {
	prev, ok := old.(*Queue)
	if !ok {
		return
	}
	prev.mtx.Lock()
	defer prev.mtx.Unlock()
	q.mtx.Lock()
	defer q.mtx.Unlock()

	q.drops = prev.drops
	if prev.highwater > q.highwater {
		q.highwater = prev.highwater
	}
	for i := 0; i < prev.n; i++ {
		pkt := prev.buf[(prev.head+i)%len(prev.buf)]
		if q.n == len(q.buf) {
			q.drops++
			if q.dropsMetric != nil {
				q.dropsMetric.Inc()
			}
			continue
		}
		q.buf[(q.head+q.n)%len(q.buf)] = pkt
		q.n++
	}
	if q.n > q.highwater {
		q.highwater = q.n
	}
	if q.lengthMetric != nil {
		q.lengthMetric.Set(float64(q.n))
	}
}

func (q *Queue) Handlers() []router.Handler {
	return []router.Handler{
		{
			Name: "length",
			Read: func() string { return strconv.Itoa(q.Occupancy()) },
		},
		{
			Name: "highwater_length",
			Read: func() string {
				q.mtx.Lock()
				defer q.mtx.Unlock()
				return strconv.Itoa(q.highwater)
			},
		},
		{
			Name:  "capacity",
			Read:  func() string { return strconv.Itoa(q.Capacity()) },
			Write: q.writeCapacity,
		},
		{
			Name: "drops",
			Read: func() string {
				q.mtx.Lock()
				defer q.mtx.Unlock()
				return strconv.FormatInt(q.drops, 10)
			},
		},
		{
			Name: "reset_counts",
			Write: func(string) error {
				q.mtx.Lock()
				defer q.mtx.Unlock()
				q.drops = 0
				q.highwater = q.n
				return nil
			},
		},
	}
}

// writeCapacity resizes the buffer in place. Packets beyond the new
// capacity are dropped at the tail and counted.
func (q *Queue) writeCapacity(v string) error {
	capacity, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || capacity <= 0 {
		return serrors.New("capacity must be a positive integer", "value", v)
	}
	q.mtx.Lock()
	defer q.mtx.Unlock()
	buf := make([]*router.Packet, capacity)
	keep := q.n
	if keep > capacity {
		q.drops += int64(keep - capacity)
		if q.dropsMetric != nil {
			q.dropsMetric.Add(float64(keep - capacity))
		}
		keep = capacity
	}
	for i := 0; i < keep; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
	q.n = keep
	if q.lengthMetric != nil {
		q.lengthMetric.Set(float64(q.n))
	}
	return nil
}
