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
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fnrg-nfv/click/pkg/private/serrors"
	"github.com/fnrg-nfv/click/private/periodic"
	"github.com/fnrg-nfv/click/router"
)

// DefaultSourceInterval is the emission period of an InfiniteSource when
// INTERVAL is not configured.
const DefaultSourceInterval = 10 * time.Millisecond

// InfiniteSource pushes synthetic packets from its own timer goroutine:
// BURST packets every INTERVAL, until LIMIT packets have been emitted
// (negative means no limit). DATA sets the payload; without it packets
// carry 64 zero bytes. The active handler pauses and resumes emission; the
// limit handler can raise the limit to resume an exhausted source.
type InfiniteSource struct {
	router.Base

	data     []byte
	interval time.Duration
	burst    int
	limit    atomic.Int64
	active   atomic.Bool
	emitted  atomic.Int64

	runner *periodic.Runner
}

func (s *InfiniteSource) Class() string      { return "InfiniteSource" }
func (s *InfiniteSource) Ports() string      { return "0/1" }
func (s *InfiniteSource) Processing() string { return "h/h" }

func (s *InfiniteSource) Configure(args *router.Args) error {
	data, _ := args.String(0, "DATA")
	limit := -1
	if v, ok, err := args.Int(1, "LIMIT"); err != nil {
		return err
	} else if ok {
		limit = v
	}
	burst := 1
	if v, ok, err := args.Int(2, "BURST"); err != nil {
		return err
	} else if ok {
		burst = v
	}
	interval := DefaultSourceInterval
	if v, ok, err := args.Duration(-1, "INTERVAL"); err != nil {
		return err
	} else if ok {
		interval = v
	}
	active := true
	if v, ok, err := args.Bool(-1, "ACTIVE"); err != nil {
		return err
	} else if ok {
		active = v
	}
	if err := args.Finish(3, "DATA", "LIMIT", "BURST", "INTERVAL", "ACTIVE"); err != nil {
		return err
	}
	if burst <= 0 {
		return serrors.New("burst must be positive", "param", "BURST", "value", burst)
	}
	if interval <= 0 {
		return serrors.New("interval must be positive",
			"param", "INTERVAL", "value", interval)
	}

	s.data = []byte(data)
	if len(s.data) == 0 {
		s.data = make([]byte, 64)
	}
	s.interval = interval
	s.burst = burst
	s.limit.Store(int64(limit))
	s.active.Store(active)
	return nil
}

func (s *InfiniteSource) Start() {
	if s.runner != nil {
		return
	}
	s.runner = periodic.Start(elementTask{"standard_infinite_source", s.emit},
		s.interval, s.interval)
}

func (s *InfiniteSource) Stop() {
	if s.runner == nil {
		return
	}
	s.runner.Stop()
	s.runner = nil
}

func (s *InfiniteSource) emit() {
	if !s.active.Load() {
		return
	}
	for i := 0; i < s.burst; i++ {
		if limit := s.limit.Load(); limit >= 0 && s.emitted.Load() >= limit {
			return
		}
		data := make([]byte, len(s.data))
		copy(data, s.data)
		s.emitted.Add(1)
		s.Output(0).Push(router.NewPacket(data))
	}
}

// TakeState carries the emission total over, so a configured LIMIT keeps
// counting across a hot swap.
func (s *InfiniteSource) TakeState(old router.Element) {
	prev, ok := old.(*InfiniteSource)
	if !ok {
		return
	}
	s.emitted.Store(prev.emitted.Load())
}

func (s *InfiniteSource) Handlers() []router.Handler {
	return []router.Handler{
		{
			Name: "count",
			Read: func() string { return strconv.FormatInt(s.emitted.Load(), 10) },
		},
		{
			Name: "limit",
			Read: func() string { return strconv.FormatInt(s.limit.Load(), 10) },
			Write: func(v string) error {
				n, err := strconv.Atoi(strings.TrimSpace(v))
				if err != nil {
					return serrors.New("invalid integer", "value", v)
				}
				s.limit.Store(int64(n))
				return nil
			},
		},
		{
			Name: "active",
			Read: func() string { return strconv.FormatBool(s.active.Load()) },
			Write: func(v string) error {
				b, err := strconv.ParseBool(strings.TrimSpace(v))
				if err != nil {
					return serrors.New("invalid boolean", "value", v)
				}
				s.active.Store(b)
				return nil
			},
		},
		{
			Name: "reset_counts",
			Write: func(string) error {
				s.emitted.Store(0)
				return nil
			},
		},
	}
}

// elementTask adapts a method to the periodic task contract.
type elementTask struct {
	name string
	run  func()
}

func (t elementTask) Run(context.Context) { t.run() }
func (t elementTask) Name() string        { return t.name }
