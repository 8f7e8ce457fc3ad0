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
	"sync/atomic"

	"github.com/fnrg-nfv/click/router"
)

// Discard swallows every packet pushed into it.
type Discard struct {
	router.Base

	count atomic.Int64
}

func (d *Discard) Class() string      { return "Discard" }
func (d *Discard) Ports() string      { return "1/0" }
func (d *Discard) Processing() string { return "h/h" }

func (d *Discard) Push(_ int, _ *router.Packet) {
	d.count.Add(1)
}

func (d *Discard) Handlers() []router.Handler {
	return []router.Handler{
		{
			Name: "count",
			Read: func() string { return strconv.FormatInt(d.count.Load(), 10) },
		},
		{
			Name: "reset_counts",
			Write: func(string) error {
				d.count.Store(0)
				return nil
			},
		},
	}
}
