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

package cheri

import (
	"math"

	"github.com/CHERI-Alliance/CHERI-Microkit/pkg/elfimage"
	"github.com/CHERI-Alliance/CHERI-Microkit/pkg/sel4"
)

// InitTCBRegisters appends the invocations that populate a protection
// domain's initial capability register file to invs. On error, nothing
// has been appended.
func InitTCBRegisters(cfg *sel4.Config, invs *[]sel4.Invocation, tcb, vspaceRoot, stackSize uint64, img *elfimage.File) error {
	switch cfg.Arch {
	case sel4.ArchRiscv64:
		return riscvInitTCBRegisters(cfg, invs, tcb, vspaceRoot, stackSize, img)
	default:
		return &UnsupportedArchError{Arch: cfg.Arch}
	}
}

func riscvInitTCBRegisters(cfg *sel4.Config, invs *[]sel4.Invocation, tcb, vspaceRoot, stackSize uint64, img *elfimage.File) error {
	if !img.PureCap() {
		riscvInitHybridRegisters(invs, tcb, vspaceRoot, img)
		return nil
	}

	code := img.CodeSegments()
	data := img.DataSegments()
	if len(code) != 1 || len(data) != 1 {
		return &MalformedImageError{CodeSegments: len(code), DataSegments: len(data)}
	}

	// Null DDC. Purecap domains never get an implicit default data
	// capability.
	*invs = append(*invs, sel4.CheriWriteRegister{
		TCB:        tcb,
		VSpaceRoot: vspaceRoot,
		RegIndex:   sel4.RegDDC,
	})

	var meta CapMeta

	// PCC. The bound spans the code segment through the end of the data
	// segment so call targets materialized in data stay in bounds.
	// TODO: tighten to the code segment once crt0 no longer derives
	// cross-segment jump targets from the PCC.
	meta.SetValid(true)
	meta.SetSentry(true)
	meta.SetIntMode(false)
	meta.SetPerms(AllPerms &^ (PermitStore | AccessSystemRegisters))
	*invs = append(*invs, sel4.CheriWriteRegister{
		TCB:        tcb,
		VSpaceRoot: vspaceRoot,
		RegIndex:   sel4.RegPCC,
		Base:       code[0].Vaddr,
		Addr:       img.Entry,
		Size:       data[0].Vaddr + data[0].Size() - code[0].Vaddr,
		Meta:       meta.Raw(),
	})

	// CSP.
	meta.SetSentry(false)
	meta.SetPerms(AllPerms &^ PermitExecute)
	*invs = append(*invs, sel4.CheriWriteRegister{
		TCB:        tcb,
		VSpaceRoot: vspaceRoot,
		RegIndex:   sel4.RegCSP,
		Base:       cfg.PDStackTop() - stackSize,
		Addr:       cfg.PDStackTop(),
		Size:       stackSize,
		Meta:       meta.Raw(),
	})

	// CA0, the code capability crt0 derives further code capabilities
	// from.
	meta.SetPerms(AllPerms &^ (PermitStore | AccessSystemRegisters))
	*invs = append(*invs, sel4.CheriWriteRegister{
		TCB:        tcb,
		VSpaceRoot: vspaceRoot,
		RegIndex:   sel4.RegCA0,
		Base:       code[0].Vaddr,
		Addr:       code[0].Vaddr,
		Size:       code[0].Size(),
		Meta:       meta.Raw(),
	})

	// CA1, the matching data capability.
	meta.SetPerms(AllPerms &^ PermitExecute)
	*invs = append(*invs, sel4.CheriWriteRegister{
		TCB:        tcb,
		VSpaceRoot: vspaceRoot,
		RegIndex:   sel4.RegCA1,
		Base:       data[0].Vaddr,
		Addr:       data[0].Vaddr,
		Size:       data[0].Size(),
		Meta:       meta.Raw(),
	})

	return nil
}

// riscvInitHybridRegisters seeds a hybrid/legacy image. Hybrid code
// uses integer addressing, so PCC and DDC are set almighty and the
// registers behave like conventional unbounded pointers.
func riscvInitHybridRegisters(invs *[]sel4.Invocation, tcb, vspaceRoot uint64, img *elfimage.File) {
	var meta CapMeta

	// PCC.
	meta.SetValid(true)
	meta.SetSentry(true)
	meta.SetIntMode(true)
	meta.SetPerms(AllPerms)
	*invs = append(*invs, sel4.CheriWriteRegister{
		TCB:        tcb,
		VSpaceRoot: vspaceRoot,
		RegIndex:   sel4.RegPCC,
		Base:       0,
		Addr:       img.Entry,
		Size:       math.MaxUint64,
		Meta:       meta.Raw(),
	})

	// DDC.
	meta.SetSentry(false)
	*invs = append(*invs, sel4.CheriWriteRegister{
		TCB:        tcb,
		VSpaceRoot: vspaceRoot,
		RegIndex:   sel4.RegDDC,
		Base:       0,
		Addr:       0,
		Size:       math.MaxUint64,
		Meta:       meta.Raw(),
	})
}
