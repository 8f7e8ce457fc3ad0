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

// Package stats implements elements that keep pipeline statistics.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fnrg-nfv/click/pkg/ewma"
	"github.com/fnrg-nfv/click/pkg/private/serrors"
	"github.com/fnrg-nfv/click/router"
)

func init() {
	router.Register("LinkTracker", func() router.Element { return &LinkTracker{} })
}

// LinkTracker keeps a smoothed running average per link key. Packets pass
// through unchanged; observations arrive out of band through the sample
// write handler as "key value" pairs, where value is a float. The stats
// read handler dumps one line per key with the current average, the sample
// count and the time since the last observation.
type LinkTracker struct {
	router.Base

	mtx   sync.RWMutex
	links map[string]*linkStat
}

type linkStat struct {
	est     ewma.Simple
	samples int64
	updated time.Time
}

func (l *LinkTracker) Class() string      { return "LinkTracker" }
func (l *LinkTracker) Ports() string      { return "1/1" }
func (l *LinkTracker) Processing() string { return "a/a" }

func (l *LinkTracker) Initialize(*router.Graph) error {
	l.links = make(map[string]*linkStat)
	return nil
}

func (l *LinkTracker) Push(_ int, pkt *router.Packet) {
	l.Output(0).Push(pkt)
}

func (l *LinkTracker) Pull(_ int) *router.Packet {
	return l.Input(0).Pull()
}

// TakeState adopts the tracked links of the element it replaces.
func (l *LinkTracker) TakeState(old router.Element) {
	prev, ok := old.(*LinkTracker)
	if !ok {
		return
	}
	prev.mtx.Lock()
	defer prev.mtx.Unlock()
	l.mtx.Lock()
	defer l.mtx.Unlock()
	for key, stat := range prev.links {
		l.links[key] = stat
	}
}

func (l *LinkTracker) sample(value string) error {
	fields := strings.Fields(value)
	if len(fields) != 2 {
		return serrors.New("expected key and value", "value", value)
	}
	obs, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || math.IsNaN(obs) || math.IsInf(obs, 0) {
		return serrors.New("invalid sample value", "value", fields[1])
	}
	scaled := int64(math.Round(obs * float64(int64(1)<<ewma.Scale)))

	l.mtx.Lock()
	defer l.mtx.Unlock()
	stat, ok := l.links[fields[0]]
	if !ok {
		stat = &linkStat{}
		l.links[fields[0]] = stat
	}
	stat.est.Update(scaled)
	stat.samples++
	stat.updated = time.Now()
	return nil
}

func (l *LinkTracker) stats() string {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	keys := make([]string, 0, len(l.links))
	for key := range l.links {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, key := range keys {
		stat := l.links[key]
		fmt.Fprintf(&b, "%s %s %d %s\n",
			key, formatScaled(stat.est.Average()), stat.samples,
			time.Since(stat.updated).Truncate(time.Millisecond))
	}
	return b.String()
}

func (l *LinkTracker) keys() string {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	keys := make([]string, 0, len(l.links))
	for key := range l.links {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return strings.Join(keys, "\n")
}

func formatScaled(avg int64) string {
	return strconv.FormatFloat(float64(avg)/float64(int64(1)<<ewma.Scale), 'f', -1, 64)
}

func (l *LinkTracker) Handlers() []router.Handler {
	return []router.Handler{
		{
			Name:  "sample",
			Write: l.sample,
		},
		{
			Name: "stats",
			Read: l.stats,
		},
		{
			Name: "keys",
			Read: l.keys,
		},
		{
			Name: "reset_counts",
			Write: func(string) error {
				l.mtx.Lock()
				defer l.mtx.Unlock()
				l.links = make(map[string]*linkStat)
				return nil
			},
		},
	}
}
