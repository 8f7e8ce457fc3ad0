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
	"github.com/fnrg-nfv/click/router"
)

// Tee duplicates every pushed packet to all outputs. The original travels
// on the last output; the other outputs receive deep copies.
type Tee struct {
	router.Base
}

func (t *Tee) Class() string      { return "Tee" }
func (t *Tee) Ports() string      { return "1/1-" }
func (t *Tee) Processing() string { return "h/h" }

func (t *Tee) Push(_ int, pkt *router.Packet) {
	n := t.NOutputs()
	for i := 0; i < n-1; i++ {
		t.Output(i).Push(pkt.Clone())
	}
	t.Output(n - 1).Push(pkt)
}
