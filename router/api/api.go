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

// Package api implements the http control API of the click daemon. Element
// listings are served as JSON, handler reads and writes carry plain text
// bodies, matching the text contract of the handlers themselves.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fnrg-nfv/click/router"
)

// maxBodySize bounds handler values and pipeline definitions.
const maxBodySize = 1 << 20

// Server implements the http control API of the click daemon.
type Server struct {
	Config   http.HandlerFunc
	Info     http.HandlerFunc
	LogLevel http.HandlerFunc
	Router   *router.Router
}

// HandlerFromMux attaches the API routes to the given mux.
func HandlerFromMux(s *Server, r chi.Router) http.Handler {
	r.Get("/elements", s.ListElements)
	r.Get("/elements/{element}", s.GetElement)
	r.Get("/elements/{element}/{handler}", s.ReadHandler)
	r.Put("/elements/{element}/{handler}", s.WriteHandler)
	r.Get("/pipeline", s.GetPipeline)
	r.Post("/hotconfig", s.PostHotConfig)
	r.Get("/config", s.GetConfig)
	r.Get("/info", s.GetInfo)
	r.Get("/log/level", s.GetLogLevel)
	r.Put("/log/level", s.SetLogLevel)
	return r
}

// Element is the JSON representation of one live element instance.
type Element struct {
	Name     string    `json:"name"`
	Class    string    `json:"class"`
	Config   string    `json:"config,omitempty"`
	Inputs   int       `json:"inputs"`
	Outputs  int       `json:"outputs"`
	Handlers []Handler `json:"handlers"`
}

// Handler names one handler of an element together with its access mode.
type Handler struct {
	Name string `json:"name"`
	Mode string `json:"mode"`
}

// Problem is the error body of the API.
type Problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// GetConfig is an indirection to the http handler.
func (s *Server) GetConfig(w http.ResponseWriter, r *http.Request) {
	s.Config(w, r)
}

// GetInfo is an indirection to the http handler.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.Info(w, r)
}

// GetLogLevel is an indirection to the http handler.
func (s *Server) GetLogLevel(w http.ResponseWriter, r *http.Request) {
	s.LogLevel(w, r)
}

// SetLogLevel is an indirection to the http handler.
func (s *Server) SetLogLevel(w http.ResponseWriter, r *http.Request) {
	s.LogLevel(w, r)
}

// ListElements lists the elements of the running pipeline.
func (s *Server) ListElements(w http.ResponseWriter, r *http.Request) {
	g, ok := s.graph(w)
	if !ok {
		return
	}
	writeJSON(w, s.elements(g))
}

// GetElement describes a single element of the running pipeline.
func (s *Server) GetElement(w http.ResponseWriter, r *http.Request) {
	g, ok := s.graph(w)
	if !ok {
		return
	}
	name := chi.URLParam(r, "element")
	for _, el := range s.elements(g) {
		if el.Name == name {
			writeJSON(w, el)
			return
		}
	}
	errorResponse(w, Problem{
		Title:  "unknown element",
		Status: http.StatusNotFound,
		Detail: name,
	})
}

// ReadHandler serves the value of a read handler as plain text.
func (s *Server) ReadHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.graph(w)
	if !ok {
		return
	}
	element := chi.URLParam(r, "element")
	if _, ok := g.Element(element); !ok {
		errorResponse(w, Problem{
			Title:  "unknown element",
			Status: http.StatusNotFound,
			Detail: element,
		})
		return
	}
	value, err := g.ReadHandler(element, chi.URLParam(r, "handler"))
	if err != nil {
		errorResponse(w, Problem{
			Title:  "error reading handler",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
		})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, value)
}

// WriteHandler feeds the request body to a write handler.
func (s *Server) WriteHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.graph(w)
	if !ok {
		return
	}
	element := chi.URLParam(r, "element")
	if _, ok := g.Element(element); !ok {
		errorResponse(w, Problem{
			Title:  "unknown element",
			Status: http.StatusNotFound,
			Detail: element,
		})
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		errorResponse(w, Problem{
			Title:  "error reading request body",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
		})
		return
	}
	value := strings.TrimSuffix(string(body), "\n")
	if err := g.WriteHandler(element, chi.URLParam(r, "handler"), value); err != nil {
		errorResponse(w, Problem{
			Title:  "error writing handler",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPipeline serves the definition text of the running pipeline.
func (s *Server) GetPipeline(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.graph(w); !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, s.Router.Config())
}

// PostHotConfig replaces the running pipeline with the definition in the
// request body. Element state carries over by instance name.
func (s *Server) PostHotConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		errorResponse(w, Problem{
			Title:  "error reading request body",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
		})
		return
	}
	if err := s.Router.ApplyConfig(string(body)); err != nil {
		errorResponse(w, Problem{
			Title:  "error applying pipeline",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// graph resolves the running pipeline, answering 503 when none is active.
func (s *Server) graph(w http.ResponseWriter) (*router.Graph, bool) {
	g := s.Router.Graph()
	if g == nil {
		errorResponse(w, Problem{
			Title:  "no pipeline is running",
			Status: http.StatusServiceUnavailable,
		})
		return nil, false
	}
	return g, true
}

func (s *Server) elements(g *router.Graph) []Element {
	handlers := make(map[string][]Handler)
	for _, h := range g.HandlerInfos() {
		handlers[h.Element] = append(handlers[h.Element], Handler{
			Name: h.Name,
			Mode: h.Mode,
		})
	}
	infos := g.ElementInfos()
	elements := make([]Element, 0, len(infos))
	for _, info := range infos {
		elements = append(elements, Element{
			Name:     info.Name,
			Class:    info.Class,
			Config:   info.Config,
			Inputs:   info.Inputs,
			Outputs:  info.Outputs,
			Handlers: handlers[info.Name],
		})
	}
	return elements
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func errorResponse(w http.ResponseWriter, problem Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(problem); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
