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

package standard

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/fnrg-nfv/click/router"
)

// Counter passes packets through unchanged and tracks packet and byte
// totals. The rate handlers report averages since the last reset.
type Counter struct {
	router.Base

	packets atomic.Int64
	bytes   atomic.Int64
	// since is the reset time in unix nanoseconds.
	since atomic.Int64
}

func (c *Counter) Class() string      { return "Counter" }
func (c *Counter) Ports() string      { return "1/1" }
func (c *Counter) Processing() string { return "a/a" }

func (c *Counter) Initialize(*router.Graph) error {
	c.since.Store(time.Now().UnixNano())
	return nil
}

func (c *Counter) Push(_ int, pkt *router.Packet) {
	c.packets.Add(1)
	c.bytes.Add(int64(pkt.Len()))
	c.Output(0).Push(pkt)
}

func (c *Counter) Pull(_ int) *router.Packet {
	pkt := c.Input(0).Pull()
	if pkt != nil {
		c.packets.Add(1)
		c.bytes.Add(int64(pkt.Len()))
	}
	return pkt
}

// TakeState carries the totals over so rates stay continuous across a hot
// swap.
func (c *Counter) TakeState(old router.Element) {
	prev, ok := old.(*Counter)
	if !ok {
		return
	}
	c.packets.Store(prev.packets.Load())
	c.bytes.Store(prev.bytes.Load())
	c.since.Store(prev.since.Load())
}

func (c *Counter) Handlers() []router.Handler {
	return []router.Handler{
		{
			Name: "count",
			Read: func() string { return strconv.FormatInt(c.packets.Load(), 10) },
		},
		{
			Name: "byte_count",
			Read: func() string { return strconv.FormatInt(c.bytes.Load(), 10) },
		},
		{
			Name: "rate",
			Read: func() string { return c.rate(c.packets.Load()) },
		},
		{
			Name: "byte_rate",
			Read: func() string { return c.rate(c.bytes.Load()) },
		},
		{
			Name: "reset_counts",
			Write: func(string) error {
				c.packets.Store(0)
				c.bytes.Store(0)
				c.since.Store(time.Now().UnixNano())
				return nil
			},
		},
	}
}

func (c *Counter) rate(total int64) string {
	elapsed := time.Duration(time.Now().UnixNano() - c.since.Load())
	if elapsed <= 0 {
		return "0"
	}
	return strconv.FormatFloat(float64(total)/elapsed.Seconds(), 'f', 2, 64)
}
