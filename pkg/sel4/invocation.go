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

package sel4

import (
	"encoding/binary"
	"fmt"
)

// CHERI capability register indices in the seL4 TCB register context.
// These match the kernel's register numbering and must not be changed.
const (
	RegPCC = 0  // program counter capability
	RegCSP = 2  // capability stack pointer
	RegCA0 = 16 // first capability argument register
	RegCA1 = 17 // second capability argument register
	RegDDC = 35 // default data capability
)

// Invocation tags in the serialized boot program.
const (
	invTagWriteRegister  = 1
	invTagWriteMemoryCap = 2
)

// Invocation is one unit of the boot-time program replayed by the
// trusted loader. Invocations are immutable once created and their
// order in the boot program is the loader's replay order.
type Invocation interface {
	fmt.Stringer

	// MarshalRecord appends the invocation's packed little-endian boot
	// program record to b and returns the extended slice.
	MarshalRecord(b []byte) []byte
}

// CheriWriteRegister installs a capability into a register of a TCB's
// initial register context.
type CheriWriteRegister struct {
	TCB        uint64
	VSpaceRoot uint64
	RegIndex   uint64
	Base       uint64
	Addr       uint64
	Size       uint64
	Meta       uint64
}

// String implements fmt.Stringer.
func (c CheriWriteRegister) String() string {
	return fmt.Sprintf("CHERI WriteRegister tcb=%#x vspace=%#x reg=%d base=%#x addr=%#x size=%#x meta=%#x",
		c.TCB, c.VSpaceRoot, c.RegIndex, c.Base, c.Addr, c.Size, c.Meta)
}

// MarshalRecord implements Invocation.MarshalRecord.
func (c CheriWriteRegister) MarshalRecord(b []byte) []byte {
	b = append(b, invTagWriteRegister)
	for _, w := range [...]uint64{c.TCB, c.VSpaceRoot, c.RegIndex, c.Base, c.Addr, c.Size, c.Meta} {
		b = binary.LittleEndian.AppendUint64(b, w)
	}
	return b
}

// CheriWriteMemoryCap installs a capability at a virtual address inside
// a page already mapped into a TCB's address space.
type CheriWriteMemoryCap struct {
	TCB        uint64
	VSpaceRoot uint64
	Page       uint64
	Vaddr      uint64
	Base       uint64
	Addr       uint64
	Size       uint64
	Meta       uint64
}

// String implements fmt.Stringer.
func (c CheriWriteMemoryCap) String() string {
	return fmt.Sprintf("CHERI WriteMemoryCap tcb=%#x vspace=%#x page=%#x vaddr=%#x base=%#x addr=%#x size=%#x meta=%#x",
		c.TCB, c.VSpaceRoot, c.Page, c.Vaddr, c.Base, c.Addr, c.Size, c.Meta)
}

// MarshalRecord implements Invocation.MarshalRecord.
func (c CheriWriteMemoryCap) MarshalRecord(b []byte) []byte {
	b = append(b, invTagWriteMemoryCap)
	for _, w := range [...]uint64{c.TCB, c.VSpaceRoot, c.Page, c.Vaddr, c.Base, c.Addr, c.Size, c.Meta} {
		b = binary.LittleEndian.AppendUint64(b, w)
	}
	return b
}

// PageDescriptor records one page already mapped into a protection
// domain's address space before capability seeding runs. The builder
// produces the table; the capability writer only searches it.
type PageDescriptor struct {
	// Cap is the page capability slot in the boot CNode.
	Cap uint64
	// PD is the index of the owning protection domain.
	PD int
	// Vaddr is the page's mapped virtual address.
	Vaddr uint64
	// Size is the page size in bytes.
	Size uint64
	// Rights is the kernel rights mask the page was mapped with.
	Rights uint64
	// Attrs is the VM attributes word the page was mapped with.
	Attrs uint64
}
