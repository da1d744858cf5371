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
	"github.com/CHERI-Alliance/CHERI-Microkit/pkg/elfimage"
	"github.com/CHERI-Alliance/CHERI-Microkit/pkg/sel4"
	"github.com/CHERI-Alliance/CHERI-Microkit/pkg/sysdesc"
)

// WriteSymbolCap appends the invocation that seeds the named symbol in
// a protection domain's image with a capability to [addr, addr+size),
// carrying the translation of perms. Pure-capability images get exactly
// one memory write; hybrid images get none, they address the mapping
// through the almighty DDC. On error, nothing has been appended.
func WriteSymbolCap(cfg *sel4.Config, invs *[]sel4.Invocation, pageDescs []sel4.PageDescriptor, img *elfimage.File, sym string, pdIdx int, tcb, vspaceRoot, addr, size uint64, perms sysdesc.MapPerms) error {
	s, err := img.FindSymbol(sym)
	if err != nil {
		return &UnresolvedSymbolError{Symbol: sym}
	}

	// The mapping backing the symbol was sized in units of size, so the
	// containing page is the symbol address rounded down the same way.
	symbolPage := roundDown(s.Vaddr, size)

	// Missing descriptors fall through to the null page cap. The
	// loader's write then lands nowhere; see the builder for the miss
	// diagnostic.
	var pageCap uint64
	for _, pd := range pageDescs {
		if pd.PD == pdIdx && pd.Vaddr == symbolPage {
			pageCap = pd.Cap
			break
		}
	}

	switch cfg.Arch {
	case sel4.ArchRiscv64:
		riscvWriteSymbolCap(invs, img, tcb, vspaceRoot, pageCap, s.Vaddr, addr, size, perms)
		return nil
	default:
		return &UnsupportedArchError{Arch: cfg.Arch}
	}
}

func riscvWriteSymbolCap(invs *[]sel4.Invocation, img *elfimage.File, tcb, vspaceRoot, pageCap, vaddr, addr, size uint64, perms sysdesc.MapPerms) {
	if !img.PureCap() {
		return
	}

	var meta CapMeta
	meta.SetValid(true)
	meta.SetIntMode(false)
	meta.SetPerms(TranslateMapPerms(perms))

	*invs = append(*invs, sel4.CheriWriteMemoryCap{
		TCB:        tcb,
		VSpaceRoot: vspaceRoot,
		Page:       pageCap,
		Vaddr:      vaddr,
		Base:       addr,
		Addr:       addr,
		Size:       size,
		Meta:       meta.Raw(),
	})
}

// roundDown rounds v down to a multiple of align.
func roundDown(v, align uint64) uint64 {
	if align == 0 {
		return v
	}
	return v - v%align
}
