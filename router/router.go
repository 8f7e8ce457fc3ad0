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

// Package router implements a modular packet pipeline. A pipeline is a
// directed graph of named elements, each an instance of a registered class.
// Elements hand packets to each other through ports, either by pushing
// downstream or by having downstream pull. The pipeline is described in a
// small text language and can be replaced while running, with stateful
// elements carrying their state across the swap.
package router

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fnrg-nfv/click/pkg/log"
	"github.com/fnrg-nfv/click/pkg/private/prom"
	"github.com/fnrg-nfv/click/pkg/private/serrors"
)

// Router owns the running pipeline and serializes control operations on it.
// Handler reads and writes go to the current graph through an atomic
// pointer, so they never block behind a configuration swap.
type Router struct {
	// DeterministicRandom makes elements seed their random number
	// generators with a fixed value. Set before the first ApplyConfig.
	DeterministicRandom bool

	metrics *Metrics
	mtx     sync.Mutex
	graph   atomic.Pointer[Graph]
}

// New creates a router without a running pipeline. A nil metrics value
// creates unregistered metrics.
func New(metrics *Metrics) *Router {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Router{metrics: metrics}
}

// ApplyConfig builds, initializes and activates the pipeline described by
// text. If a pipeline is already running, its elements hand their state to
// name-matching elements of the new pipeline, then the old pipeline is
// stopped and the new one takes over. On any error the running pipeline
// continues untouched.
func (r *Router) ApplyConfig(text string) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	graph, err := r.build(text)
	if err != nil {
		r.metrics.ConfigApplies.WithLabelValues(prom.ErrInvalidReq).Inc()
		return err
	}
	old := r.graph.Load()
	if old != nil {
		graph.takeState(old)
		old.Stop()
	}
	graph.Start()
	r.graph.Store(graph)
	r.metrics.ConfigApplies.WithLabelValues(prom.Success).Inc()
	r.metrics.Elements.Set(float64(len(graph.elements)))
	log.Info("Pipeline configured", "elements", len(graph.elements),
		"connections", len(graph.conns), "swapped", old != nil)
	return nil
}

func (r *Router) build(text string) (*Graph, error) {
	def, err := ParseDefinition(text)
	if err != nil {
		return nil, serrors.Wrap("parsing pipeline definition", err)
	}
	graph, err := NewGraph(def, r.metrics)
	if err != nil {
		return nil, serrors.Wrap("building pipeline", err)
	}
	graph.deterministic = r.DeterministicRandom
	if err := graph.Initialize(); err != nil {
		return nil, serrors.Wrap("initializing pipeline", err)
	}
	return graph, nil
}

// Stop halts the running pipeline, if any.
func (r *Router) Stop() {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if old := r.graph.Swap(nil); old != nil {
		old.Stop()
		r.metrics.Elements.Set(0)
	}
}

// Graph returns the currently running pipeline, or nil if none is active.
func (r *Router) Graph() *Graph {
	return r.graph.Load()
}

// Config returns the definition text of the running pipeline.
func (r *Router) Config() string {
	if g := r.graph.Load(); g != nil {
		return g.Text()
	}
	return ""
}

// ReadHandler reads a handler given as "element.handler".
func (r *Router) ReadHandler(spec string) (string, error) {
	g, element, name, err := r.resolve(spec)
	if err != nil {
		return "", err
	}
	return g.ReadHandler(element, name)
}

// WriteHandler writes a handler given as "element.handler".
func (r *Router) WriteHandler(spec, value string) error {
	g, element, name, err := r.resolve(spec)
	if err != nil {
		return err
	}
	return g.WriteHandler(element, name, value)
}

func (r *Router) resolve(spec string) (*Graph, string, string, error) {
	g := r.graph.Load()
	if g == nil {
		return nil, "", "", serrors.New("no pipeline is running")
	}
	element, name, ok := strings.Cut(spec, ".")
	if !ok || element == "" || name == "" {
		return nil, "", "", serrors.New("invalid handler reference",
			"want", "element.handler", "got", spec)
	}
	return g, element, name, nil
}
