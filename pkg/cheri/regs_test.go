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
	"debug/elf"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/CHERI-Alliance/CHERI-Microkit/pkg/elfimage"
	"github.com/CHERI-Alliance/CHERI-Microkit/pkg/sel4"
)

func riscvConfig() *sel4.Config {
	return &sel4.Config{
		Arch:     sel4.ArchRiscv64,
		StackTop: 0x80000,
		PageSize: 0x1000,
	}
}

// purecapImage returns an image with code segment [0x1000, 0x1200),
// data segment [0x2000, 0x2100), entry 0x1040.
func purecapImage() *elfimage.File {
	return &elfimage.File{
		Entry:   0x1040,
		Flags:   elfimage.EFRiscvCapMode,
		Symbols: make(map[string]elfimage.Symbol),
		Segments: []*elfimage.Segment{
			{Vaddr: 0x1000, Data: make([]byte, 0x200), Flags: elf.PF_R | elf.PF_X},
			{Vaddr: 0x2000, Data: make([]byte, 0x100), Flags: elf.PF_R | elf.PF_W},
		},
	}
}

func TestInitTCBRegistersPureCap(t *testing.T) {
	var invs []sel4.Invocation
	if err := InitTCBRegisters(riscvConfig(), &invs, 10, 11, 0x1000, purecapImage()); err != nil {
		t.Fatalf("InitTCBRegisters failed: %v", err)
	}

	want := []sel4.Invocation{
		// Null DDC first.
		sel4.CheriWriteRegister{TCB: 10, VSpaceRoot: 11, RegIndex: sel4.RegDDC},
		// PCC spans code start through data end.
		sel4.CheriWriteRegister{
			TCB: 10, VSpaceRoot: 11, RegIndex: sel4.RegPCC,
			Base: 0x1000, Addr: 0x1040, Size: 0x1100,
			Meta: 0xFFFE_FFFE_0000_0005,
		},
		// CSP bounded to the stack.
		sel4.CheriWriteRegister{
			TCB: 10, VSpaceRoot: 11, RegIndex: sel4.RegCSP,
			Base: 0x80000 - 0x1000, Addr: 0x80000, Size: 0x1000,
			Meta: 0xFFFD_FFFF_0000_0001,
		},
		// CA0 bounded to the code segment.
		sel4.CheriWriteRegister{
			TCB: 10, VSpaceRoot: 11, RegIndex: sel4.RegCA0,
			Base: 0x1000, Addr: 0x1000, Size: 0x200,
			Meta: 0xFFFE_FFFE_0000_0001,
		},
		// CA1 bounded to the data segment.
		sel4.CheriWriteRegister{
			TCB: 10, VSpaceRoot: 11, RegIndex: sel4.RegCA1,
			Base: 0x2000, Addr: 0x2000, Size: 0x100,
			Meta: 0xFFFD_FFFF_0000_0001,
		},
	}
	if diff := cmp.Diff(want, invs); diff != "" {
		t.Errorf("invocations mismatch (-want +got):\n%s", diff)
	}
}

func TestInitTCBRegistersHybrid(t *testing.T) {
	img := purecapImage()
	img.Flags = 0

	var invs []sel4.Invocation
	if err := InitTCBRegisters(riscvConfig(), &invs, 10, 11, 0x1000, img); err != nil {
		t.Fatalf("InitTCBRegisters failed: %v", err)
	}

	want := []sel4.Invocation{
		sel4.CheriWriteRegister{
			TCB: 10, VSpaceRoot: 11, RegIndex: sel4.RegPCC,
			Base: 0, Addr: 0x1040, Size: math.MaxUint64,
			Meta: 0xFFFF_FFFF_0000_0007,
		},
		sel4.CheriWriteRegister{
			TCB: 10, VSpaceRoot: 11, RegIndex: sel4.RegDDC,
			Base: 0, Addr: 0, Size: math.MaxUint64,
			Meta: 0xFFFF_FFFF_0000_0003,
		},
	}
	if diff := cmp.Diff(want, invs); diff != "" {
		t.Errorf("invocations mismatch (-want +got):\n%s", diff)
	}
}

func TestInitTCBRegistersMalformedImage(t *testing.T) {
	for _, tc := range []struct {
		name string
		segs []*elfimage.Segment
	}{
		{
			name: "two code segments",
			segs: []*elfimage.Segment{
				{Vaddr: 0x1000, Data: make([]byte, 0x200), Flags: elf.PF_R | elf.PF_X},
				{Vaddr: 0x1800, Data: make([]byte, 0x200), Flags: elf.PF_R | elf.PF_X},
				{Vaddr: 0x2000, Data: make([]byte, 0x100), Flags: elf.PF_R | elf.PF_W},
			},
		},
		{
			name: "no data segment",
			segs: []*elfimage.Segment{
				{Vaddr: 0x1000, Data: make([]byte, 0x200), Flags: elf.PF_R | elf.PF_X},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			img := purecapImage()
			img.Segments = tc.segs

			var invs []sel4.Invocation
			err := InitTCBRegisters(riscvConfig(), &invs, 10, 11, 0x1000, img)
			var malformed *MalformedImageError
			if !errors.As(err, &malformed) {
				t.Fatalf("InitTCBRegisters returned %v, want MalformedImageError", err)
			}
			if len(invs) != 0 {
				t.Errorf("%d invocations appended before failure, want 0", len(invs))
			}
		})
	}
}

func TestInitTCBRegistersUnsupportedArch(t *testing.T) {
	cfg := riscvConfig()
	cfg.Arch = sel4.ArchAarch64

	var invs []sel4.Invocation
	err := InitTCBRegisters(cfg, &invs, 10, 11, 0x1000, purecapImage())
	var unsupported *UnsupportedArchError
	if !errors.As(err, &unsupported) {
		t.Fatalf("InitTCBRegisters returned %v, want UnsupportedArchError", err)
	}
	if len(invs) != 0 {
		t.Errorf("%d invocations appended before failure, want 0", len(invs))
	}
}
