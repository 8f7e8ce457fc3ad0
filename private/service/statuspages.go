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

// Package service contains helpers that all click services share.
package service

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"runtime"
	"sort"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/fnrg-nfv/click/pkg/log"
	"github.com/fnrg-nfv/click/pkg/private/serrors"
	"github.com/fnrg-nfv/click/private/env"
)

const mainTmpl = `
<!DOCTYPE html>
<html>
	<head>
		<title>{{ .ElemID }}</title>
	</head>
	<body style="font-family:sans-serif">
		<h1>{{ .ElemID }}</h1>
		{{ range .Pages }}
		<p><a href="{{ .Path }}">[{{ .Path }}]</a> {{ .Info }}</p>
		{{ end }}
	</body>
</html>
`

type mainData struct {
	ElemID string
	Pages  []pageData
}

type pageData struct {
	Path string
	Info string
}

// StatusPage is a page on the status web server of a service.
type StatusPage struct {
	// Info is a short description of the page contents. It is displayed next
	// to the page link on the index page.
	Info string
	// Handler serves the page.
	Handler http.HandlerFunc
}

// StatusPages maps the path of a status page to the page itself.
type StatusPages map[string]StatusPage

// Register registers the status pages on the given mux, along with an index
// page at / that links all of them. The metrics endpoint is linked from the
// index page but not registered, as the Prometheus client already serves it.
func (s StatusPages) Register(mux *http.ServeMux, elemID string) error {
	tmpl, err := template.New("main").Parse(mainTmpl)
	if err != nil {
		return serrors.Wrap("parsing main template", err)
	}
	pages := []pageData{{Path: "metrics", Info: "Prometheus metrics"}}
	for path, page := range s {
		pages = append(pages, pageData{Path: path, Info: page.Info})
		mux.HandleFunc("/"+path, page.Handler)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Path < pages[j].Path })
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if err := tmpl.Execute(w, mainData{ElemID: elemID, Pages: pages}); err != nil {
			http.Error(w, "Unable to execute template",
				http.StatusInternalServerError)
		}
	})
	return nil
}

// NewInfoStatusPage returns a page with generic information about the
// process.
func NewInfoStatusPage() StatusPage {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "  version:       %s\n", env.Version())
		fmt.Fprintf(w, "  go:            %s\n", runtime.Version())
		fmt.Fprintf(w, "  pid:           %d\n", os.Getpid())
		fmt.Fprintf(w, "  euid/egid:     %d %d\n", os.Geteuid(), os.Getegid())
		fmt.Fprintf(w, "  cmd line:      %q\n", os.Args)
	}
	return StatusPage{
		Info:    "generic process information",
		Handler: handler,
	}
}

// NewConfigStatusPage returns a page that renders the configuration the
// service is currently running with.
func NewConfigStatusPage(config any) StatusPage {
	handler := func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(config); err != nil {
			http.Error(w, "Unable to marshal config",
				http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, buf.String())
	}
	return StatusPage{
		Info:    "current configuration",
		Handler: handler,
	}
}

// NewLogLevelStatusPage returns a page that reports the console logging
// level. The level can be changed with a PUT request.
func NewLogLevelStatusPage() StatusPage {
	return StatusPage{
		Info:    "logging level (supports PUT)",
		Handler: log.ConsoleLevel.ServeHTTP,
	}
}
