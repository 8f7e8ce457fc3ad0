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
	"fmt"
	"sort"
	"strings"

	"github.com/fnrg-nfv/click/pkg/private/serrors"
)

// Graph is one built pipeline: configured elements wired by connections.
// A graph is constructed, initialized, started, and eventually stopped; it
// is never rewired. Live reconfiguration replaces the whole graph.
type Graph struct {
	metrics  *Metrics
	elements []Element
	decls    []Decl
	byName   map[string]Element
	conns    []Conn
	handlers map[string]map[string]Handler
	text     string

	deterministic bool
}

// NewGraph builds a graph from a parsed definition: it instantiates and
// configures the declared elements, resolves port directions, validates the
// connections, and wires the ports. The graph is not initialized yet. A nil
// metrics value creates unregistered metrics.
func NewGraph(def *Definition, metrics *Metrics) (*Graph, error) {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	g := &Graph{
		metrics:  metrics,
		byName:   make(map[string]Element, len(def.Decls)),
		decls:    def.Decls,
		conns:    def.Conns,
		handlers: make(map[string]map[string]Handler, len(def.Decls)),
		text:     def.Text,
	}
	if err := g.configure(); err != nil {
		return nil, err
	}
	nin, nout, err := g.portCounts()
	if err != nil {
		return nil, err
	}
	inDirs, outDirs, err := g.resolveDirections(nin, nout)
	if err != nil {
		return nil, err
	}
	if err := g.validateConnections(inDirs, outDirs); err != nil {
		return nil, err
	}
	if err := g.wire(inDirs, outDirs); err != nil {
		return nil, err
	}
	if err := g.buildHandlers(); err != nil {
		return nil, err
	}
	return g, nil
}

// configure instantiates and configures the declared elements.
func (g *Graph) configure() error {
	for _, decl := range g.decls {
		el, err := newElement(decl.Class)
		if err != nil {
			return serrors.Join(err, nil, "element", decl.Name, "line", decl.Line)
		}
		el.base().name = decl.Name
		if cfg, ok := el.(Configurable); ok {
			args, err := ParseArgs(decl.Config)
			if err == nil {
				err = cfg.Configure(args)
			}
			if err != nil {
				return serrors.Wrap("configuring element", err,
					"element", decl.Name, "class", decl.Class, "line", decl.Line)
			}
		} else if strings.TrimSpace(decl.Config) != "" {
			return serrors.New("element takes no configuration",
				"element", decl.Name, "class", decl.Class, "line", decl.Line)
		}
		g.elements = append(g.elements, el)
		g.byName[decl.Name] = el
	}
	return nil
}

// portCounts derives the per-element port counts from the connections and
// validates them against each element's declared ranges.
func (g *Graph) portCounts() (nin, nout map[string]int, err error) {
	nin = make(map[string]int, len(g.elements))
	nout = make(map[string]int, len(g.elements))
	for _, conn := range g.conns {
		if conn.FromPort+1 > nout[conn.From] {
			nout[conn.From] = conn.FromPort + 1
		}
		if conn.ToPort+1 > nin[conn.To] {
			nin[conn.To] = conn.ToPort + 1
		}
	}
	for _, el := range g.elements {
		name := el.base().name
		inRange, outRange, err := parsePorts(el.Ports())
		if err != nil {
			return nil, nil, serrors.Wrap("invalid port declaration", err,
				"element", name, "class", el.Class())
		}
		if !inRange.contains(nin[name]) {
			return nil, nil, serrors.New("wrong number of input ports",
				"element", name, "class", el.Class(),
				"connected", nin[name], "accepted", el.Ports())
		}
		if !outRange.contains(nout[name]) {
			return nil, nil, serrors.New("wrong number of output ports",
				"element", name, "class", el.Class(),
				"connected", nout[name], "accepted", el.Ports())
		}
	}
	return nin, nout, nil
}

// resolveDirections assigns push or pull to every port. Declared directions
// are fixed; agnostic ports adopt the direction of their peers, with all
// agnostic ports of one element resolving as a unit. Ports that remain
// agnostic when propagation settles default to push.
func (g *Graph) resolveDirections(nin, nout map[string]int) (
	inDirs, outDirs map[string][]byte, err error) {

	inDirs = make(map[string][]byte, len(g.elements))
	outDirs = make(map[string][]byte, len(g.elements))
	for _, el := range g.elements {
		name := el.base().name
		in, out, err := parseProcessing(el.Processing(), nin[name], nout[name])
		if err != nil {
			return nil, nil, serrors.Wrap("invalid processing code", err,
				"element", name, "class", el.Class())
		}
		inDirs[name], outDirs[name] = in, out
	}

	settle := func(name string, dir byte) {
		for i, d := range inDirs[name] {
			if d == dirAgnostic {
				inDirs[name][i] = dir
			}
		}
		for i, d := range outDirs[name] {
			if d == dirAgnostic {
				outDirs[name][i] = dir
			}
		}
	}

	for changed := true; changed; {
		changed = false
		for _, conn := range g.conns {
			from := outDirs[conn.From][conn.FromPort]
			to := inDirs[conn.To][conn.ToPort]
			switch {
			case from == dirAgnostic && to != dirAgnostic:
				settle(conn.From, to)
				changed = true
			case to == dirAgnostic && from != dirAgnostic:
				settle(conn.To, from)
				changed = true
			case from != to:
				return nil, nil, serrors.New("connection direction conflict",
					"from", fmt.Sprintf("%s [%d] (%s)",
						conn.From, conn.FromPort, dirName(from)),
					"to", fmt.Sprintf("[%d] %s (%s)",
						conn.ToPort, conn.To, dirName(to)),
					"line", conn.Line)
			}
		}
	}
	for _, el := range g.elements {
		settle(el.base().name, dirPush)
	}
	return inDirs, outDirs, nil
}

// validateConnections enforces the port multiplicity rules: every port is
// connected, push outputs and pull inputs exactly once.
func (g *Graph) validateConnections(inDirs, outDirs map[string][]byte) error {
	type portKey struct {
		element string
		port    int
	}
	inCount := map[portKey]int{}
	outCount := map[portKey]int{}
	for _, conn := range g.conns {
		outCount[portKey{conn.From, conn.FromPort}]++
		inCount[portKey{conn.To, conn.ToPort}]++
	}
	for _, el := range g.elements {
		name := el.base().name
		for port, dir := range inDirs[name] {
			n := inCount[portKey{name, port}]
			if n == 0 {
				return serrors.New("input port not connected",
					"element", name, "port", port)
			}
			if dir == dirPull && n > 1 {
				return serrors.New("pull input connected more than once",
					"element", name, "port", port)
			}
		}
		for port, dir := range outDirs[name] {
			n := outCount[portKey{name, port}]
			if n == 0 {
				return serrors.New("output port not connected",
					"element", name, "port", port)
			}
			if dir == dirPush && n > 1 {
				return serrors.New("push output connected more than once",
					"element", name, "port", port)
			}
		}
	}
	return nil
}

// wire connects the element ports along every connection.
func (g *Graph) wire(inDirs, outDirs map[string][]byte) error {
	for _, el := range g.elements {
		b := el.base()
		b.inDirs = inDirs[b.name]
		b.outDirs = outDirs[b.name]
		b.inputs = make([]*Port, len(b.inDirs))
		b.outputs = make([]*Port, len(b.outDirs))
	}
	for _, conn := range g.conns {
		from := g.byName[conn.From]
		to := g.byName[conn.To]
		if outDirs[conn.From][conn.FromPort] == dirPush {
			peer, ok := to.(PushElement)
			if !ok {
				return serrors.New("element cannot receive pushed packets",
					"element", conn.To, "class", to.Class(), "line", conn.Line)
			}
			from.base().outputs[conn.FromPort] = &Port{
				peer:     to,
				peerPort: conn.ToPort,
				pushPeer: peer,
				packets:  g.metrics.PushedPackets.WithLabelValues(to.Class()),
				size:     g.metrics.PacketSize.WithLabelValues(to.Class()),
			}
			to.base().inputs[conn.ToPort] = &Port{peer: from, peerPort: conn.FromPort}
		} else {
			peer, ok := from.(PullElement)
			if !ok {
				return serrors.New("element cannot supply pulled packets",
					"element", conn.From, "class", from.Class(), "line", conn.Line)
			}
			to.base().inputs[conn.ToPort] = &Port{
				peer:     from,
				peerPort: conn.FromPort,
				pullPeer: peer,
				packets:  g.metrics.PulledPackets.WithLabelValues(from.Class()),
				size:     g.metrics.PacketSize.WithLabelValues(from.Class()),
			}
			from.base().outputs[conn.FromPort] = &Port{peer: to, peerPort: conn.ToPort}
		}
	}
	return nil
}

// Initialize runs element initialization in declaration order. Elements
// inspect the wired topology here; no background activity starts yet.
func (g *Graph) Initialize() error {
	for i, el := range g.elements {
		init, ok := el.(Initializer)
		if !ok {
			continue
		}
		if err := init.Initialize(g); err != nil {
			return serrors.Wrap("initializing element", err,
				"element", el.base().name, "class", el.Class(),
				"line", g.decls[i].Line)
		}
	}
	return nil
}

// Start launches the background activity of the graph, in declaration
// order. It must only be called after Initialize succeeded.
func (g *Graph) Start() {
	for _, el := range g.elements {
		if s, ok := el.(Starter); ok {
			s.Start()
		}
	}
}

// Stop cancels the background activity of the graph in reverse declaration
// order and waits for it to settle.
func (g *Graph) Stop() {
	for i := len(g.elements) - 1; i >= 0; i-- {
		if s, ok := g.elements[i].(Stopper); ok {
			s.Stop()
		}
	}
}

// takeState hands the state of the old graph to name-matching elements of
// this graph. Kind checks happen inside the elements.
func (g *Graph) takeState(old *Graph) {
	for _, el := range g.elements {
		taker, ok := el.(StateTaker)
		if !ok {
			continue
		}
		if prev, ok := old.byName[el.base().name]; ok {
			taker.TakeState(prev)
		}
	}
}

// Element returns the element with the given instance name.
func (g *Graph) Element(name string) (Element, bool) {
	el, ok := g.byName[name]
	return el, ok
}

// Elements returns the elements in declaration order.
func (g *Graph) Elements() []Element {
	return g.elements
}

// Metrics returns the metrics the graph was built with.
func (g *Graph) Metrics() *Metrics {
	return g.metrics
}

// Text returns the pipeline definition the graph was built from.
func (g *Graph) Text() string {
	return g.text
}

// DeterministicRandom reports whether elements should seed their random
// number generators deterministically.
func (g *Graph) DeterministicRandom() bool {
	return g.deterministic
}

// NearestStorage walks the graph from the given element, downstream
// (following outputs) or upstream (following inputs), and returns the
// nearest Storage elements, stopping each branch at its first hit. The
// result order is deterministic for a fixed definition.
func (g *Graph) NearestStorage(from Element, downstream bool) []Storage {
	var found []Storage
	name := from.base().name
	visited := map[string]bool{name: true}
	frontier := []string{name}
	for len(frontier) > 0 {
		var next []string
		for _, cur := range frontier {
			for _, conn := range g.conns {
				var neighbor string
				switch {
				case downstream && conn.From == cur:
					neighbor = conn.To
				case !downstream && conn.To == cur:
					neighbor = conn.From
				default:
					continue
				}
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				if s, ok := g.byName[neighbor].(Storage); ok {
					found = append(found, s)
					continue
				}
				next = append(next, neighbor)
			}
		}
		frontier = next
	}
	return found
}

// ElementInfo describes one live element instance.
type ElementInfo struct {
	Name    string
	Class   string
	Config  string
	Inputs  int
	Outputs int
}

// ElementInfos lists the elements in declaration order.
func (g *Graph) ElementInfos() []ElementInfo {
	infos := make([]ElementInfo, 0, len(g.elements))
	for i, el := range g.elements {
		b := el.base()
		infos = append(infos, ElementInfo{
			Name:    b.name,
			Class:   el.Class(),
			Config:  g.decls[i].Config,
			Inputs:  len(b.inputs),
			Outputs: len(b.outputs),
		})
	}
	return infos
}

// buildHandlers assembles the handler registry: the automatic per-element
// handlers plus whatever the elements export.
func (g *Graph) buildHandlers() error {
	for i, el := range g.elements {
		b := el.base()
		decl := g.decls[i]
		handlers := map[string]Handler{
			"class":  {Name: "class", Read: el.Class},
			"name":   {Name: "name", Read: b.Name},
			"config": {Name: "config", Read: func() string { return decl.Config }},
			"ports":  {Name: "ports", Read: func() string { return portSummary(el) }},
		}
		if hp, ok := el.(HandlerProvider); ok {
			for _, h := range hp.Handlers() {
				if _, dup := handlers[h.Name]; dup {
					return serrors.New("duplicate handler",
						"element", b.name, "handler", h.Name)
				}
				handlers[h.Name] = h
			}
		}
		g.handlers[b.name] = handlers
	}
	return nil
}

// Handler is a named read/write text handle on an element. At least one of
// Read and Write is set.
type Handler struct {
	Name  string
	Read  func() string
	Write func(value string) error
}

// Mode describes the handler's access mode, "r", "w" or "rw".
func (h Handler) Mode() string {
	switch {
	case h.Read != nil && h.Write != nil:
		return "rw"
	case h.Write != nil:
		return "w"
	default:
		return "r"
	}
}

// HandlerInfo describes one handler for listings.
type HandlerInfo struct {
	Element string
	Name    string
	Mode    string
}

// HandlerInfos lists all handlers, sorted by element and handler name.
func (g *Graph) HandlerInfos() []HandlerInfo {
	var infos []HandlerInfo
	for element, handlers := range g.handlers {
		for name, h := range handlers {
			infos = append(infos, HandlerInfo{
				Element: element,
				Name:    name,
				Mode:    h.Mode(),
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Element != infos[j].Element {
			return infos[i].Element < infos[j].Element
		}
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// lookupHandler resolves a handler by element and handler name.
func (g *Graph) lookupHandler(element, name string) (Handler, error) {
	handlers, ok := g.handlers[element]
	if !ok {
		return Handler{}, serrors.New("unknown element", "element", element)
	}
	h, ok := handlers[name]
	if !ok {
		return Handler{}, serrors.New("unknown handler",
			"element", element, "handler", name)
	}
	return h, nil
}

// ReadHandler invokes the read side of a handler.
func (g *Graph) ReadHandler(element, name string) (string, error) {
	h, err := g.lookupHandler(element, name)
	if err != nil {
		return "", err
	}
	if h.Read == nil {
		return "", serrors.New("handler is write-only",
			"element", element, "handler", name)
	}
	return h.Read(), nil
}

// WriteHandler invokes the write side of a handler.
func (g *Graph) WriteHandler(element, name, value string) error {
	h, err := g.lookupHandler(element, name)
	if err != nil {
		return err
	}
	if h.Write == nil {
		return serrors.New("handler is read-only",
			"element", element, "handler", name)
	}
	return h.Write(value)
}

func portSummary(el Element) string {
	b := el.base()
	var sb strings.Builder
	for i, port := range b.inputs {
		dir := dirName(b.inDirs[i])
		if port != nil && port.peer != nil {
			fmt.Fprintf(&sb, "input %d: %s from %s [%d]\n",
				i, dir, port.peer.base().name, port.peerPort)
		} else {
			fmt.Fprintf(&sb, "input %d: %s\n", i, dir)
		}
	}
	for i, port := range b.outputs {
		dir := dirName(b.outDirs[i])
		if port != nil && port.peer != nil {
			fmt.Fprintf(&sb, "output %d: %s to %s [%d]\n",
				i, dir, port.peer.base().name, port.peerPort)
		} else {
			fmt.Fprintf(&sb, "output %d: %s\n", i, dir)
		}
	}
	return sb.String()
}
