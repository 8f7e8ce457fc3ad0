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

package router

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fnrg-nfv/click/pkg/private/serrors"
)

// Port direction characters used in processing codes. A push port hands
// packets to its peer; a pull port has packets requested from it; an
// agnostic port adopts the direction of its context when the graph is
// resolved.
const (
	dirPush     = 'h'
	dirPull     = 'l'
	dirAgnostic = 'a'
)

// Element is one processing stage of a pipeline graph. Implementations
// embed Base, which carries the instance name and the wired ports.
//
// Beyond the base capability, the graph discovers optional behavior by
// interface assertion: Configurable, Initializer, Starter, Stopper,
// PushElement, PullElement, Storage, StateTaker, HandlerProvider.
type Element interface {
	// Class names the element type, e.g. "Queue".
	Class() string
	// Ports declares the accepted input/output port counts, e.g. "1/1-2".
	Ports() string
	// Processing declares the per-port directions, e.g. "a/ah". The last
	// character of each side repeats for any remaining ports.
	Processing() string

	base() *Base
}

// Configurable elements parse configuration arguments at graph build time,
// before any ports are wired.
type Configurable interface {
	Configure(args *Args) error
}

// Initializer elements run setup after the whole graph is connected, so
// topology inspection is valid. Initialization runs in declaration order.
type Initializer interface {
	Initialize(g *Graph) error
}

// Starter elements launch background activity once the whole graph has
// initialized successfully.
type Starter interface {
	Start()
}

// Stopper elements cancel background activity at teardown. Stop runs in
// reverse declaration order and must be idempotent.
type Stopper interface {
	Stop()
}

// PushElement receives packets pushed from upstream.
type PushElement interface {
	Element
	Push(port int, pkt *Packet)
}

// PullElement produces packets on demand from downstream. Pull returns nil
// when no packet is available.
type PullElement interface {
	Element
	Pull(port int) *Packet
}

// Storage is the queue inspector capability: a packet-buffering element
// reports its current occupancy. Reads are non-blocking and safe for
// concurrent use.
type Storage interface {
	Occupancy() int
	Capacity() int
}

// StateTaker elements copy state from the element they replace during a hot
// swap. The predecessor is the old element with the same instance name;
// implementations must check its kind and silently ignore mismatches.
type StateTaker interface {
	TakeState(old Element)
}

// HandlerProvider elements export named read/write text handles.
type HandlerProvider interface {
	Handlers() []Handler
}

// Base carries the per-instance plumbing every element embeds: the instance
// name and the wired ports. The graph populates it during construction.
type Base struct {
	name    string
	inputs  []*Port
	outputs []*Port
	inDirs  []byte
	outDirs []byte
}

func (b *Base) base() *Base { return b }

// Name returns the instance name from the pipeline definition.
func (b *Base) Name() string { return b.name }

// NInputs returns the number of connected input ports.
func (b *Base) NInputs() int { return len(b.inputs) }

// NOutputs returns the number of connected output ports.
func (b *Base) NOutputs() int { return len(b.outputs) }

// Input returns the wired input port i.
func (b *Base) Input(i int) *Port { return b.inputs[i] }

// Output returns the wired output port i.
func (b *Base) Output(i int) *Port { return b.outputs[i] }

// InputIsPull reports whether input port i resolved to pull.
func (b *Base) InputIsPull(i int) bool { return b.inDirs[i] == dirPull }

// OutputIsPush reports whether output port i resolved to push.
func (b *Base) OutputIsPush(i int) bool { return b.outDirs[i] == dirPush }

// Port is one wired endpoint of an element. A push output forwards packets
// to the connected downstream element; a pull input requests packets from
// the connected upstream element.
type Port struct {
	peer     Element
	peerPort int

	pushPeer PushElement
	pullPeer PullElement

	packets prometheus.Counter
	size    prometheus.Observer
}

// Peer returns the connected element.
func (p *Port) Peer() Element { return p.peer }

// PeerPort returns the port index on the connected element.
func (p *Port) PeerPort() int { return p.peerPort }

// Push hands a packet to the connected downstream element.
func (p *Port) Push(pkt *Packet) {
	p.packets.Inc()
	p.size.Observe(float64(len(pkt.Data)))
	p.pushPeer.Push(p.peerPort, pkt)
}

// Pull requests a packet from the connected upstream element. It returns
// nil if no packet is available.
func (p *Port) Pull() *Packet {
	pkt := p.pullPeer.Pull(p.peerPort)
	if pkt != nil {
		p.packets.Inc()
		p.size.Observe(float64(len(pkt.Data)))
	}
	return pkt
}

// PortRange bounds how many ports of one kind an element accepts.
type PortRange struct {
	Min, Max int
}

func (r PortRange) contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

// parsePorts expands a port count declaration like "1/1-2" into the input
// and output ranges. Each side is N, N-M, or N- (N or more).
func parsePorts(decl string) (in, out PortRange, err error) {
	lhs, rhs, ok := strings.Cut(decl, "/")
	if !ok {
		return in, out, serrors.New("invalid port declaration", "ports", decl)
	}
	if in, err = parsePortRange(lhs); err != nil {
		return in, out, serrors.Join(err, nil, "ports", decl)
	}
	if out, err = parsePortRange(rhs); err != nil {
		return in, out, serrors.Join(err, nil, "ports", decl)
	}
	return in, out, nil
}

func parsePortRange(s string) (PortRange, error) {
	lo, hi, dashed := strings.Cut(s, "-")
	min, err := strconv.Atoi(lo)
	if err != nil || min < 0 {
		return PortRange{}, serrors.New("invalid port count", "count", s)
	}
	if !dashed {
		return PortRange{Min: min, Max: min}, nil
	}
	if hi == "" {
		return PortRange{Min: min, Max: maxPorts}, nil
	}
	max, err := strconv.Atoi(hi)
	if err != nil || max < min {
		return PortRange{}, serrors.New("invalid port count", "count", s)
	}
	return PortRange{Min: min, Max: max}, nil
}

// maxPorts caps open-ended port ranges.
const maxPorts = 256

// parseProcessing expands a processing code like "a/ah" into per-port
// direction characters for the actual port counts. The last character of
// each side repeats for the remaining ports.
func parseProcessing(code string, nin, nout int) (in, out []byte, err error) {
	lhs, rhs, ok := strings.Cut(code, "/")
	if !ok {
		return nil, nil, serrors.New("invalid processing code", "code", code)
	}
	if in, err = expandDirs(lhs, nin); err != nil {
		return nil, nil, serrors.Join(err, nil, "code", code)
	}
	if out, err = expandDirs(rhs, nout); err != nil {
		return nil, nil, serrors.Join(err, nil, "code", code)
	}
	return in, out, nil
}

func expandDirs(side string, n int) ([]byte, error) {
	if side == "" {
		return nil, serrors.New("empty processing side")
	}
	for i := 0; i < len(side); i++ {
		switch side[i] {
		case dirPush, dirPull, dirAgnostic:
		default:
			return nil, serrors.New("invalid direction", "dir", string(side[i]))
		}
	}
	dirs := make([]byte, n)
	for i := 0; i < n; i++ {
		if i < len(side) {
			dirs[i] = side[i]
		} else {
			dirs[i] = side[len(side)-1]
		}
	}
	return dirs, nil
}

func dirName(d byte) string {
	switch d {
	case dirPush:
		return "push"
	case dirPull:
		return "pull"
	default:
		return "agnostic"
	}
}
