// Copyright 2025 The CHERI Microkit Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cheri builds the boot-time invocations that seed a protection
// domain's initial capability register file and memory-resident
// capabilities.
package cheri

// CHERI-RISC-V capability permission bits, the AP field of the
// capability metadata word. The numbering matches CHERI-seL4's
// encoding and must not be changed.
const (
	PermitStore uint32 = 1 << 0
	LoadMutable uint32 = 1 << 1
	PermitEL    uint32 = 1 << 2
	PermitSL    uint32 = 1 << 3
	Global      uint32 = 1 << 4
	Capability  uint32 = 1 << 5

	User0 uint32 = 1 << 6
	User1 uint32 = 1 << 7
	User2 uint32 = 1 << 8
	User3 uint32 = 1 << 9

	AccessSystemRegisters uint32 = 1 << 16
	PermitExecute         uint32 = 1 << 17
	PermitLoad            uint32 = 1 << 18
)

// AllPerms is the unrestricted permission mask.
const AllPerms = ^uint32(0)

// CapMeta is the packed 64-bit capability metadata word. It must match
// CHERI-seL4's CheriCapMeta block: V in bit 0, M in bit 1, CT in bit 2,
// AP in bits 32-63. The zero value describes an untagged (void)
// capability.
type CapMeta struct {
	raw uint64
}

// Raw returns the packed metadata word.
func (m *CapMeta) Raw() uint64 {
	return m.raw
}

// SetValid sets the tag (V) bit. An invalid capability cannot be
// dereferenced.
func (m *CapMeta) SetValid(v bool) {
	m.setBit(0, v)
}

// SetIntMode sets the integer pointer mode (M) bit. In integer mode the
// register holds a plain address rather than a capability pointer.
func (m *CapMeta) SetIntMode(v bool) {
	m.setBit(1, v)
}

// SetSentry sets the sentry (CT) bit, marking an unsealed call/jump
// target.
func (m *CapMeta) SetSentry(v bool) {
	m.setBit(2, v)
}

// SetPerms replaces the AP permission field (bits 32-63).
func (m *CapMeta) SetPerms(p uint32) {
	m.raw = (m.raw &^ (0xFFFF_FFFF << 32)) | (uint64(p) << 32)
}

func (m *CapMeta) setBit(n uint, v bool) {
	if v {
		m.raw |= 1 << n
	} else {
		m.raw &^= 1 << n
	}
}
