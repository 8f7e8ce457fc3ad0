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
	"strings"
	"sync/atomic"
	"time"

	"github.com/fnrg-nfv/click/pkg/private/serrors"
	"github.com/fnrg-nfv/click/private/periodic"
	"github.com/fnrg-nfv/click/router"
)

// DefaultUnqueueInterval is the pump period of an Unqueue when INTERVAL is
// not configured.
const DefaultUnqueueInterval = time.Millisecond

// Unqueue bridges a pull context into a push context: every INTERVAL it
// pulls up to BURST packets from upstream and pushes them downstream.
type Unqueue struct {
	router.Base

	interval time.Duration
	burst    atomic.Int64
	active   atomic.Bool
	moved    atomic.Int64

	runner *periodic.Runner
}

func (u *Unqueue) Class() string      { return "Unqueue" }
func (u *Unqueue) Ports() string      { return "1/1" }
func (u *Unqueue) Processing() string { return "l/h" }

func (u *Unqueue) Configure(args *router.Args) error {
	burst := 1
	if v, ok, err := args.Int(0, "BURST"); err != nil {
		return err
	} else if ok {
		burst = v
	}
	interval := DefaultUnqueueInterval
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
	if err := args.Finish(1, "BURST", "INTERVAL", "ACTIVE"); err != nil {
		return err
	}
	if burst <= 0 {
		return serrors.New("burst must be positive", "param", "BURST", "value", burst)
	}
	if interval <= 0 {
		return serrors.New("interval must be positive",
			"param", "INTERVAL", "value", interval)
	}
	u.interval = interval
	u.burst.Store(int64(burst))
	u.active.Store(active)
	return nil
}

func (u *Unqueue) Start() {
	if u.runner != nil {
		return
	}
	u.runner = periodic.Start(elementTask{"standard_unqueue", u.pump},
		u.interval, u.interval)
}

func (u *Unqueue) Stop() {
	if u.runner == nil {
		return
	}
	u.runner.Stop()
	u.runner = nil
}

func (u *Unqueue) pump() {
	if !u.active.Load() {
		return
	}
	for i := int64(0); i < u.burst.Load(); i++ {
		pkt := u.Input(0).Pull()
		if pkt == nil {
			return
		}
		u.moved.Add(1)
		u.Output(0).Push(pkt)
	}
}

func (u *Unqueue) TakeState(old router.Element) {
	prev, ok := old.(*Unqueue)
	if !ok {
		return
	}
	u.moved.Store(prev.moved.Load())
}

func (u *Unqueue) Handlers() []router.Handler {
	return []router.Handler{
		{
			Name: "count",
			Read: func() string { return strconv.FormatInt(u.moved.Load(), 10) },
		},
		{
			Name: "burst",
			Read: func() string { return strconv.FormatInt(u.burst.Load(), 10) },
			Write: func(v string) error {
				n, err := strconv.Atoi(strings.TrimSpace(v))
				if err != nil || n <= 0 {
					return serrors.New("burst must be a positive integer", "value", v)
				}
				u.burst.Store(int64(n))
				return nil
			},
		},
		{
			Name: "active",
			Read: func() string { return strconv.FormatBool(u.active.Load()) },
			Write: func(v string) error {
				b, err := strconv.ParseBool(strings.TrimSpace(v))
				if err != nil {
					return serrors.New("invalid boolean", "value", v)
				}
				u.active.Store(b)
				return nil
			},
		},
	}
}
