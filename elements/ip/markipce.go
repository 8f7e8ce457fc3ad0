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

// Package ip implements elements that operate on IPv4 packet headers.
package ip

import (
	"encoding/binary"
	"strconv"
	"sync/atomic"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"github.com/fnrg-nfv/click/router"
)

func init() {
	router.Register("MarkIPCE", func() router.Element { return &MarkIPCE{} })
}

// ECN codepoints, low two bits of the IPv4 TOS byte.
const (
	ecnMask   = 0x03
	ecnNotECT = 0x00
	ecnCE     = 0x03
)

// MarkIPCE sets the ECN field of IPv4 packets to CE (congestion
// experienced) and patches the header checksum in place. Packets that are
// not ECN capable are dropped, unless FORCE is set, in which case they are
// marked anyway. Packets already carrying CE pass through unchanged.
// Anything that does not parse as IPv4 is dropped.
//
// Wired to the second output of a marking RED element, it turns the drop
// decision into an ECN signal.
type MarkIPCE struct {
	router.Base

	force bool

	marks atomic.Int64
	drops atomic.Int64
}

func (m *MarkIPCE) Class() string      { return "MarkIPCE" }
func (m *MarkIPCE) Ports() string      { return "1/1" }
func (m *MarkIPCE) Processing() string { return "a/a" }

func (m *MarkIPCE) Configure(args *router.Args) error {
	force, ok, err := args.Bool(0, "FORCE")
	if err != nil {
		return err
	}
	if ok {
		m.force = force
	}
	return args.Finish(1, "FORCE")
}

func (m *MarkIPCE) Push(_ int, pkt *router.Packet) {
	if pkt = m.mark(pkt); pkt != nil {
		m.Output(0).Push(pkt)
	}
}

func (m *MarkIPCE) Pull(_ int) *router.Packet {
	pkt := m.Input(0).Pull()
	if pkt == nil {
		return nil
	}
	return m.mark(pkt)
}

// mark returns the packet with CE set, or nil if it was dropped.
func (m *MarkIPCE) mark(pkt *router.Packet) *router.Packet {
	var ip layers.IPv4
	if err := ip.DecodeFromBytes(pkt.Data, gopacket.NilDecodeFeedback); err != nil || ip.Version != 4 {
		m.drops.Add(1)
		return nil
	}
	switch ip.TOS & ecnMask {
	case ecnCE:
		return pkt
	case ecnNotECT:
		if !m.force {
			m.drops.Add(1)
			return nil
		}
	}
	hdr := pkt.Data[:ip.IHL*4]
	hdr[1] |= ecnCE
	binary.BigEndian.PutUint16(hdr[10:12], 0)
	binary.BigEndian.PutUint16(hdr[10:12], headerChecksum(hdr))
	m.marks.Add(1)
	return pkt
}

// headerChecksum computes the IPv4 header checksum over hdr, whose length
// is a multiple of four and whose checksum field is zeroed.
func headerChecksum(hdr []byte) uint16 {
	var sum uint32
	for i := 0; i < len(hdr); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(hdr[i : i+2]))
	}
	for sum > 0xffff {
		sum = sum&0xffff + sum>>16
	}
	return ^uint16(sum)
}

func (m *MarkIPCE) Handlers() []router.Handler {
	return []router.Handler{
		{
			Name: "marks",
			Read: func() string { return strconv.FormatInt(m.marks.Load(), 10) },
		},
		{
			Name: "drops",
			Read: func() string { return strconv.FormatInt(m.drops.Load(), 10) },
		},
		{
			Name: "reset_counts",
			Write: func(string) error {
				m.marks.Store(0)
				m.drops.Store(0)
				return nil
			},
		},
	}
}
