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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/fnrg-nfv/click/pkg/private/serrors"
	"github.com/fnrg-nfv/click/router/api"
)

// defaultAPIAddr is the conventional control socket address of a locally
// running click daemon.
const defaultAPIAddr = "127.0.0.1:7777"

// client talks to the management API of a running click daemon.
type client struct {
	addr    string
	timeout time.Duration
}

func (c *client) register(flags *pflag.FlagSet) {
	flags.StringVar(&c.addr, "api", defaultAPIAddr,
		"Address of the router management API")
	flags.DurationVar(&c.timeout, "timeout", 5*time.Second, "Timeout per request")
}

func (c *client) get(ctx context.Context, path string) (string, error) {
	return c.do(ctx, http.MethodGet, path, "")
}

func (c *client) put(ctx context.Context, path, body string) error {
	_, err := c.do(ctx, http.MethodPut, path, body)
	return err
}

func (c *client) post(ctx context.Context, path, body string) error {
	_, err := c.do(ctx, http.MethodPost, path, body)
	return err
}

func (c *client) do(ctx context.Context, method, path, body string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	url := fmt.Sprintf("http://%s%s", c.addr, path)
	req, err := http.NewRequestWithContext(ctx, method, url, strings.NewReader(body))
	if err != nil {
		return "", serrors.Wrap("creating request", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", serrors.Wrap("contacting router", err, "api", c.addr)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", serrors.Wrap("reading response", err)
	}
	if resp.StatusCode >= 300 {
		return "", apiError(resp.StatusCode, raw)
	}
	return string(raw), nil
}

// apiError converts a problem response into an error. Responses that do not
// carry a problem body are reported with their raw contents.
func apiError(status int, raw []byte) error {
	var problem api.Problem
	if err := json.Unmarshal(raw, &problem); err == nil && problem.Title != "" {
		if problem.Detail != "" {
			return serrors.New(problem.Title, "detail", problem.Detail)
		}
		return serrors.New(problem.Title)
	}
	return serrors.New("request failed",
		"status", http.StatusText(status), "body", strings.TrimSpace(string(raw)))
}

// splitHandler splits an "element.handler" reference.
func splitHandler(spec string) (string, string, error) {
	element, handler, ok := strings.Cut(spec, ".")
	if !ok || element == "" || handler == "" {
		return "", "", serrors.New("invalid handler reference",
			"expected", "element.handler", "got", spec)
	}
	return element, handler, nil
}
