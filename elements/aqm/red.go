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

// Package aqm implements active queue management elements.
//
// RED drops (or diverts) packets with a probability that rises linearly
// with the smoothed occupancy of associated queues between two thresholds.
// AdaptiveRED additionally retunes the probability ceiling on a fixed
// period to hold the average occupancy near the threshold midpoint.
package aqm

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fnrg-nfv/click/pkg/ewma"
	"github.com/fnrg-nfv/click/pkg/private/serrors"
	"github.com/fnrg-nfv/click/router"
)

func init() {
	router.Register("RED", func() router.Element { return &RED{} })
	router.Register("AdaptiveRED", func() router.Element { return &AdaptiveRED{} })
}

// params is the validated parameter set a drop decision observes as a unit.
// Thresholds are in estimator scale, maxP in 1/router.ProbabilityDenom
// units.
type params struct {
	minThresh int64
	maxThresh int64
	maxP      int64
}

// RED is the random early detection element. It accepts one input and one
// or two outputs; with two outputs an inadmissible packet leaves on output
// 1 instead of being freed (mark-not-drop). The element itself buffers
// nothing: it observes the occupancy of associated Storage elements, found
// by an explicit QUEUES list or by topology search at initialization.
//
// The packet path is single threaded per instance. Parameter writers (the
// handlers, the adaptive controller, state transfer) serialize on a
// mutex and publish through an atomic pointer, so a decision sees either
// the old or the new parameter set, never a mix.
type RED struct {
	router.Base

	est    *ewma.Estimator
	params atomic.Pointer[params]
	count  atomic.Int64
	drops  atomic.Int64

	// writeMtx serializes parameter writers.
	writeMtx sync.Mutex

	queueNames []string
	queues     []router.Storage
	rng        *rand.Rand

	earlyDrops  prometheus.Counter
	forcedDrops prometheus.Counter
	marks       prometheus.Counter
	maxPGauge   prometheus.Gauge
}

func (r *RED) Class() string      { return "RED" }
func (r *RED) Ports() string      { return "1/1-2" }
func (r *RED) Processing() string { return "a/ah" }

// Configure expects MIN_THRESH and MAX_THRESH in packets and MAX_P as a
// decimal probability, positionally or by keyword. QUEUES names the
// associated queues explicitly and disables topology search.
func (r *RED) Configure(args *router.Args) error {
	return r.configure(args, -1)
}

func (r *RED) configure(args *router.Args, defaultMaxP int) error {
	minPkts, maxPkts, maxP, err := thresholdArgs(args, defaultMaxP)
	if err != nil {
		return err
	}
	if queues, ok := args.String(-1, "QUEUES"); ok {
		r.queueNames = strings.Fields(queues)
	}
	if err := args.Finish(3, "MIN_THRESH", "MAX_THRESH", "MAX_P", "QUEUES"); err != nil {
		return err
	}
	p, err := newParams(minPkts, maxPkts, maxP)
	if err != nil {
		return err
	}
	r.est = ewma.New(0)
	r.params.Store(p)
	return nil
}

// thresholdArgs extracts the two thresholds and the probability ceiling.
// A negative defaultMaxP makes MAX_P required.
func thresholdArgs(args *router.Args, defaultMaxP int) (int, int, int, error) {
	minPkts, ok, err := args.Int(0, "MIN_THRESH")
	if err != nil {
		return 0, 0, 0, err
	}
	if !ok {
		return 0, 0, 0, serrors.New("missing parameter", "param", "MIN_THRESH")
	}
	maxPkts, ok, err := args.Int(1, "MAX_THRESH")
	if err != nil {
		return 0, 0, 0, err
	}
	if !ok {
		return 0, 0, 0, serrors.New("missing parameter", "param", "MAX_THRESH")
	}
	maxP, ok, err := args.Probability(2, "MAX_P")
	if err != nil {
		return 0, 0, 0, err
	}
	if !ok {
		if defaultMaxP < 0 {
			return 0, 0, 0, serrors.New("missing parameter", "param", "MAX_P")
		}
		maxP = defaultMaxP
	}
	return minPkts, maxPkts, maxP, nil
}

// newParams validates and scales a parameter set.
func newParams(minPkts, maxPkts, maxP int) (*params, error) {
	if minPkts <= 0 {
		return nil, serrors.New("threshold must be positive",
			"param", "MIN_THRESH", "value", minPkts)
	}
	if maxPkts <= minPkts {
		return nil, serrors.New("thresholds out of order",
			"param", "MAX_THRESH", "min_thresh", minPkts, "max_thresh", maxPkts)
	}
	if maxP <= 0 || maxP > router.ProbabilityDenom {
		return nil, serrors.New("probability out of range (0, 1]",
			"param", "MAX_P", "value", maxP)
	}
	return &params{
		minThresh: int64(minPkts) << ewma.Scale,
		maxThresh: int64(maxPkts) << ewma.Scale,
		maxP:      int64(maxP),
	}, nil
}

// Initialize resolves the associated queues and binds the metrics. With no
// explicit QUEUES list, the nearest Storage elements are searched
// downstream when output 0 pushes, upstream when input 0 pulls.
func (r *RED) Initialize(g *router.Graph) error {
	if len(r.queueNames) > 0 {
		for _, name := range r.queueNames {
			el, ok := g.Element(name)
			if !ok {
				return serrors.New("queue not found", "param", "QUEUES",
					"queue", name)
			}
			s, ok := el.(router.Storage)
			if !ok {
				return serrors.New("element stores no packets",
					"param", "QUEUES", "queue", name, "class", el.Class())
			}
			r.queues = append(r.queues, s)
		}
	} else {
		r.queues = g.NearestStorage(r, r.OutputIsPush(0))
		for _, s := range r.queues {
			if named, ok := s.(interface{ Name() string }); ok {
				r.queueNames = append(r.queueNames, named.Name())
			}
		}
	}
	if len(r.queues) == 0 {
		return serrors.New("no queues found",
			"hint", "connect a Queue or give QUEUES explicitly")
	}

	seed := time.Now().UnixNano()
	if g.DeterministicRandom() {
		seed = 1
	}
	r.rng = rand.New(rand.NewSource(seed))

	m := g.Metrics()
	r.earlyDrops = m.AQMDrops.WithLabelValues(r.Name(), "early")
	r.forcedDrops = m.AQMDrops.WithLabelValues(r.Name(), "forced")
	r.marks = m.AQMMarks.WithLabelValues(r.Name())
	r.maxPGauge = m.AQMMaxP.WithLabelValues(r.Name())
	r.maxPGauge.Set(probabilityValue(r.params.Load().maxP))
	return nil
}

func (r *RED) Push(_ int, pkt *router.Packet) {
	if r.admit(pkt) {
		r.Output(0).Push(pkt)
	}
}

// Pull forwards a packet from upstream, or nil when upstream is empty or
// the packet was dropped.
func (r *RED) Pull(_ int) *router.Packet {
	pkt := r.Input(0).Pull()
	if pkt == nil {
		return nil
	}
	if !r.admit(pkt) {
		return nil
	}
	return pkt
}

// admit decides the disposition of one packet: true forwards it, false
// means it was dropped or diverted to the mark output.
func (r *RED) admit(pkt *router.Packet) bool {
	p := r.params.Load()
	occupancy := 0
	for _, q := range r.queues {
		occupancy += q.Occupancy()
	}
	avg := r.est.Update(occupancy, time.Now())

	switch {
	case avg < p.minThresh:
		r.count.Add(1)
		return true
	case avg >= p.maxThresh:
		r.drop(pkt, r.forcedDrops)
		return false
	}

	peff := p.dropProbability(avg, r.count.Load())
	if int64(r.rng.Intn(router.ProbabilityDenom)) < peff {
		r.drop(pkt, r.earlyDrops)
		return false
	}
	r.count.Add(1)
	return true
}

// dropProbability computes the drop probability for an average between the
// thresholds: the base probability rises linearly from zero at min_thresh
// to maxP at max_thresh, then the anti-clustering correction is applied.
func (p *params) dropProbability(avg, count int64) int64 {
	pb := p.maxP * (avg - p.minThresh) / (p.maxThresh - p.minThresh)
	return effectiveProbability(pb, count)
}

// effectiveProbability applies the anti-clustering correction
// p / (1 - count*p), in 1/router.ProbabilityDenom units, clamped to one.
// The longer the run since the last drop, the likelier the next drop,
// which evens out the inter-drop interval.
func effectiveProbability(pb, count int64) int64 {
	if pb <= 0 {
		return 0
	}
	denom := int64(router.ProbabilityDenom) - count*pb
	if denom <= 0 {
		return router.ProbabilityDenom
	}
	peff := (pb << 16) / denom
	if peff > router.ProbabilityDenom {
		peff = router.ProbabilityDenom
	}
	return peff
}

func (r *RED) drop(pkt *router.Packet, kind prometheus.Counter) {
	r.drops.Add(1)
	r.count.Store(0)
	if kind != nil {
		kind.Inc()
	}
	if r.NOutputs() == 2 {
		if r.marks != nil {
			r.marks.Inc()
		}
		r.Output(1).Push(pkt)
	}
}

// TakeState copies the estimator state, the run counter, the drop total,
// and the probability ceiling from the replaced element. Thresholds come
// from this element's own configuration. Foreign kinds are ignored.
func (r *RED) TakeState(old router.Element) {
	prev := redOf(old)
	if prev == nil {
		return
	}
	r.writeMtx.Lock()
	defer r.writeMtx.Unlock()
	r.est.SetState(prev.est.State())
	r.count.Store(prev.count.Load())
	r.drops.Store(prev.drops.Load())
	np := *r.params.Load()
	np.maxP = prev.params.Load().maxP
	r.params.Store(&np)
	if r.maxPGauge != nil {
		r.maxPGauge.Set(probabilityValue(np.maxP))
	}
}

// redOf extracts the RED core from either element kind.
func redOf(el router.Element) *RED {
	switch v := el.(type) {
	case *RED:
		return v
	case *AdaptiveRED:
		return &v.RED
	}
	return nil
}

// Handlers exposes the live tuning and inspection surface. Writing a
// threshold or the ceiling revalidates the full parameter set against the
// running values and swaps it in atomically; the average, the run counter,
// and the drop total are preserved.
func (r *RED) Handlers() []router.Handler {
	return []router.Handler{
		{
			Name:  "min_thresh",
			Read:  func() string { return strconv.FormatInt(r.params.Load().minThresh>>ewma.Scale, 10) },
			Write: func(v string) error { return r.writeThreshold(v, "min_thresh") },
		},
		{
			Name:  "max_thresh",
			Read:  func() string { return strconv.FormatInt(r.params.Load().maxThresh>>ewma.Scale, 10) },
			Write: func(v string) error { return r.writeThreshold(v, "max_thresh") },
		},
		{
			Name:  "max_p",
			Read:  func() string { return router.FormatProbability(int(r.params.Load().maxP)) },
			Write: r.writeMaxP,
		},
		{
			Name: "drops",
			Read: func() string { return strconv.FormatInt(r.drops.Load(), 10) },
		},
		{
			Name: "avg_queue_size",
			Read: func() string { return formatAverage(r.est.Average()) },
		},
		{
			Name: "queues",
			Read: func() string { return strings.Join(r.queueNames, "\n") },
		},
		{
			Name: "stats",
			Read: r.statsHandler,
		},
	}
}

func (r *RED) writeThreshold(v, which string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return serrors.New("invalid integer", "param", which, "value", v)
	}
	r.writeMtx.Lock()
	defer r.writeMtx.Unlock()
	p := r.params.Load()
	minPkts := int(p.minThresh >> ewma.Scale)
	maxPkts := int(p.maxThresh >> ewma.Scale)
	if which == "min_thresh" {
		minPkts = n
	} else {
		maxPkts = n
	}
	np, err := newParams(minPkts, maxPkts, int(p.maxP))
	if err != nil {
		return err
	}
	r.params.Store(np)
	return nil
}

func (r *RED) writeMaxP(v string) error {
	maxP, err := router.ParseProbability(strings.TrimSpace(v))
	if err != nil {
		return serrors.Wrap("parsing probability", err, "param", "max_p")
	}
	r.writeMtx.Lock()
	defer r.writeMtx.Unlock()
	p := r.params.Load()
	np, err := newParams(int(p.minThresh>>ewma.Scale), int(p.maxThresh>>ewma.Scale), maxP)
	if err != nil {
		return err
	}
	r.params.Store(np)
	if r.maxPGauge != nil {
		r.maxPGauge.Set(probabilityValue(np.maxP))
	}
	return nil
}

func (r *RED) statsHandler() string {
	p := r.params.Load()
	var sb strings.Builder
	fmt.Fprintf(&sb, "avg_queue_size %s\n", formatAverage(r.est.Average()))
	fmt.Fprintf(&sb, "drops %d\n", r.drops.Load())
	fmt.Fprintf(&sb, "count %d\n", r.count.Load())
	fmt.Fprintf(&sb, "min_thresh %d\n", p.minThresh>>ewma.Scale)
	fmt.Fprintf(&sb, "max_thresh %d\n", p.maxThresh>>ewma.Scale)
	fmt.Fprintf(&sb, "max_p %s\n", router.FormatProbability(int(p.maxP)))
	fmt.Fprintf(&sb, "queues %s\n", strings.Join(r.queueNames, " "))
	return sb.String()
}

// formatAverage renders an estimator-scale value as its exact decimal
// expansion in packets.
func formatAverage(avg int64) string {
	return strconv.FormatFloat(float64(avg)/(1<<ewma.Scale), 'f', -1, 64)
}

func probabilityValue(maxP int64) float64 {
	return float64(maxP) / float64(router.ProbabilityDenom)
}
