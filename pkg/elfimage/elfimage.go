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

// Package elfimage provides the builder's view of a protection domain
// ELF: loadable segments, the entry point, the capability-mode flag,
// and symbol resolution and patching.
package elfimage

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"os"
)

// EFRiscvCapMode is the RISC-V e_flags bit marking a pure-capability
// (capmode) executable. The value is fixed by the CHERI psABI.
const EFRiscvCapMode = 0x2_0000

// Segment is one PT_LOAD segment of the image.
type Segment struct {
	// Vaddr is the segment's virtual load address.
	Vaddr uint64
	// Data is the segment's memory image: the file contents
	// zero-extended to memsz, so .bss is part of the segment.
	Data []byte
	// Flags are the segment's ELF permission flags.
	Flags elf.ProgFlag
}

// Executable returns true if the segment is mapped executable.
func (s *Segment) Executable() bool {
	return s.Flags&elf.PF_X != 0
}

// Size returns the segment's length in bytes.
func (s *Segment) Size() uint64 {
	return uint64(len(s.Data))
}

// Symbol is a resolved symbol location.
type Symbol struct {
	Vaddr uint64
	Size  uint64
}

// File is a loaded protection domain image.
type File struct {
	// Entry is the image entry point.
	Entry uint64
	// Flags is the ELF header e_flags word.
	Flags uint64
	// Segments are the PT_LOAD segments in file order.
	Segments []*Segment
	// Symbols maps symbol names to their locations.
	Symbols map[string]Symbol
}

// Load reads and parses the ELF at path.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// Parse parses an ELF image from b.
func Parse(b []byte) (*File, error) {
	ef, err := elf.NewFile(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer ef.Close()

	if ef.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("unsupported ELF class %v, want ELFCLASS64", ef.Class)
	}
	if ef.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("unsupported ELF byte order %v, want little-endian", ef.Data)
	}

	// debug/elf does not surface e_flags; read it straight from the
	// ELF64 header (offset 0x30, 4 bytes, little-endian).
	if len(b) < 0x34 {
		return nil, fmt.Errorf("truncated ELF header")
	}
	flags := binary.LittleEndian.Uint32(b[0x30:0x34])

	f := &File{
		Entry:   ef.Entry,
		Flags:   uint64(flags),
		Symbols: make(map[string]Symbol),
	}

	for _, p := range ef.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		// Checked separately so a huge p.Off cannot wrap the sum.
		if p.Off > uint64(len(b)) || p.Filesz > uint64(len(b))-p.Off {
			return nil, fmt.Errorf("PT_LOAD segment at %#x extends beyond end of file", p.Vaddr)
		}
		if p.Memsz < p.Filesz {
			return nil, fmt.Errorf("PT_LOAD segment at %#x has memsz %#x smaller than filesz %#x", p.Vaddr, p.Memsz, p.Filesz)
		}
		// The memory image is the file contents zero-extended to memsz:
		// capability bounds, page coverage, and symbol patching must all
		// see .bss.
		data := make([]byte, p.Memsz)
		copy(data, b[p.Off:p.Off+p.Filesz])
		f.Segments = append(f.Segments, &Segment{
			Vaddr: p.Vaddr,
			Data:  data,
			Flags: p.Flags,
		})
	}

	syms, err := ef.Symbols()
	if err != nil && err != elf.ErrNoSymbols {
		return nil, fmt.Errorf("reading symbol table: %w", err)
	}
	for _, s := range syms {
		if s.Name == "" {
			continue
		}
		f.Symbols[s.Name] = Symbol{Vaddr: s.Value, Size: s.Size}
	}

	return f, nil
}

// PureCap returns true if the image was built for the pure-capability
// ABI.
func (f *File) PureCap() bool {
	return f.Flags&EFRiscvCapMode != 0
}

// CodeSegments returns the executable PT_LOAD segments.
func (f *File) CodeSegments() []*Segment {
	var segs []*Segment
	for _, s := range f.Segments {
		if s.Executable() {
			segs = append(segs, s)
		}
	}
	return segs
}

// DataSegments returns the non-executable PT_LOAD segments.
func (f *File) DataSegments() []*Segment {
	var segs []*Segment
	for _, s := range f.Segments {
		if !s.Executable() {
			segs = append(segs, s)
		}
	}
	return segs
}

// FindSymbol resolves a symbol by name.
func (f *File) FindSymbol(name string) (Symbol, error) {
	sym, ok := f.Symbols[name]
	if !ok {
		return Symbol{}, fmt.Errorf("symbol %q not found", name)
	}
	return sym, nil
}

// WriteSymbol overwrites the image bytes backing the named symbol with
// data. The write must fit within the symbol's containing segment.
func (f *File) WriteSymbol(name string, data []byte) error {
	sym, err := f.FindSymbol(name)
	if err != nil {
		return err
	}
	for _, s := range f.Segments {
		if sym.Vaddr < s.Vaddr || sym.Vaddr >= s.Vaddr+s.Size() {
			continue
		}
		off := sym.Vaddr - s.Vaddr
		if off+uint64(len(data)) > s.Size() {
			return fmt.Errorf("write of %d bytes to symbol %q overruns its segment", len(data), name)
		}
		copy(s.Data[off:], data)
		return nil
	}
	return fmt.Errorf("symbol %q is not backed by any loadable segment", name)
}
