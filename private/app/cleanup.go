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

// Package app provides helpers for server application lifecycles.
package app

import (
	"sync"

	"github.com/fnrg-nfv/click/pkg/private/serrors"
)

// Cleanup collects cleanup functions. It is safe for concurrent use.
type Cleanup struct {
	mtx   sync.Mutex
	funcs []func() error
	done  bool
}

// Add adds a function to be run on Do. Functions added after Do has run are
// executed immediately.
func (c *Cleanup) Add(f func() error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.done {
		// ignore error, cleanup is best effort.
		_ = f()
		return
	}
	c.funcs = append(c.funcs, f)
}

// Do executes all cleanup functions in reverse order of registration. All
// functions are run, the first error is returned.
func (c *Cleanup) Do() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.done = true
	var errs serrors.List
	for i := len(c.funcs) - 1; i >= 0; i-- {
		if err := c.funcs[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.funcs = nil
	return errs.ToError()
}
