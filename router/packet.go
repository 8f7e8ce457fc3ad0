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
	"time"
)

// Packet is the unit of data moved through an element graph. Elements hand
// packets to each other synchronously; a packet is owned by exactly one
// element at a time.
type Packet struct {
	// Data is the raw packet content.
	Data []byte
	// Timestamp records when the packet entered the graph.
	Timestamp time.Time
}

// NewPacket returns a packet carrying the given content, stamped with the
// current time.
func NewPacket(data []byte) *Packet {
	return &Packet{Data: data, Timestamp: time.Now()}
}

// Len returns the content length in bytes.
func (p *Packet) Len() int {
	return len(p.Data)
}

// Clone returns a deep copy of the packet. Duplicating elements use it so
// that downstream branches can modify their copies independently.
func (p *Packet) Clone() *Packet {
	data := make([]byte, len(p.Data))
	copy(data, p.Data)
	return &Packet{Data: data, Timestamp: p.Timestamp}
}
