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

// Package builder assembles the boot program: for every protection
// domain it loads the ELF, allocates capability slots for the pages
// backing its mappings, patches build-time symbols, and emits the
// CHERI initialization invocations in replay order.
package builder

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/CHERI-Alliance/CHERI-Microkit/pkg/cheri"
	"github.com/CHERI-Alliance/CHERI-Microkit/pkg/elfimage"
	"github.com/CHERI-Alliance/CHERI-Microkit/pkg/sel4"
	"github.com/CHERI-Alliance/CHERI-Microkit/pkg/sysdesc"
)

// Slot 0 of the boot CNode holds the null capability; allocation starts
// above it so a missed page lookup seeds through the null cap.
const firstCapSlot = 1

type capAllocator struct {
	next uint64
}

func newCapAllocator() *capAllocator {
	return &capAllocator{next: firstCapSlot}
}

func (a *capAllocator) alloc() uint64 {
	slot := a.next
	a.next++
	return slot
}

// Build loads every protection domain image named by sys, resolving
// paths relative to baseDir, and assembles the boot program.
func Build(cfg *sel4.Config, sys *sysdesc.System, baseDir string) (*Program, error) {
	images := make([]*elfimage.File, len(sys.Domains))
	for i := range sys.Domains {
		pd := &sys.Domains[i]
		path := pd.ProgramImage
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		img, err := elfimage.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading image for PD %q: %w", pd.Name, err)
		}
		images[i] = img
	}
	return Assemble(cfg, sys, images)
}

// Assemble produces the boot program from already-loaded images, one
// per protection domain in order. On error no program is produced; a
// partial invocation list must never reach the loader.
func Assemble(cfg *sel4.Config, sys *sysdesc.System, images []*elfimage.File) (*Program, error) {
	if len(images) != len(sys.Domains) {
		return nil, fmt.Errorf("have %d images for %d protection domains", len(images), len(sys.Domains))
	}

	alloc := newCapAllocator()

	type pdCaps struct {
		tcb    uint64
		vspace uint64
	}
	caps := make([]pdCaps, len(sys.Domains))
	for i := range caps {
		caps[i] = pdCaps{tcb: alloc.alloc(), vspace: alloc.alloc()}
	}

	pageSize := cfg.PageSize
	if pageSize == 0 {
		pageSize = sel4.DefaultPageSize
	}

	// Map pass: build the page descriptor table and patch address
	// symbols before any invocation is emitted. The table covers the
	// pages backing each PD's own image segments as well as its mapped
	// memory regions; symbol seeds are written into image pages.
	var pageDescs []sel4.PageDescriptor
	for i := range sys.Domains {
		pd := &sys.Domains[i]

		for _, seg := range images[i].Segments {
			rights := uint64(sysdesc.PermRead)
			if seg.Executable() {
				rights |= uint64(sysdesc.PermExecute)
			} else {
				rights |= uint64(sysdesc.PermWrite)
			}
			start := roundDown(seg.Vaddr, pageSize)
			end := roundUp(seg.Vaddr+seg.Size(), pageSize)
			for vaddr := start; vaddr < end; vaddr += pageSize {
				pageDescs = append(pageDescs, sel4.PageDescriptor{
					Cap:    alloc.alloc(),
					PD:     i,
					Vaddr:  vaddr,
					Size:   pageSize,
					Rights: rights,
				})
			}
		}

		for j := range pd.Maps {
			m := &pd.Maps[j]
			mr, err := sys.Region(m.MR)
			if err != nil {
				return nil, fmt.Errorf("PD %q: %w", pd.Name, err)
			}
			perms, err := m.ParsedPerms()
			if err != nil {
				return nil, fmt.Errorf("PD %q: %w", pd.Name, err)
			}

			mrPageSize := mr.PageSize
			if mrPageSize == 0 {
				mrPageSize = pageSize
			}
			if mr.Size%mrPageSize != 0 {
				return nil, fmt.Errorf("PD %q: memory region %q size %#x is not a multiple of the %#x page size",
					pd.Name, mr.Name, mr.Size, mrPageSize)
			}
			for off := uint64(0); off < mr.Size; off += mrPageSize {
				pageDescs = append(pageDescs, sel4.PageDescriptor{
					Cap:    alloc.alloc(),
					PD:     i,
					Vaddr:  m.Vaddr + off,
					Size:   mrPageSize,
					Rights: uint64(perms),
				})
			}

			if m.SetVarVaddr != "" {
				patch := make([]byte, 8)
				binary.LittleEndian.PutUint64(patch, m.Vaddr)
				if err := images[i].WriteSymbol(m.SetVarVaddr, patch); err != nil {
					return nil, fmt.Errorf("PD %q: patching %q: %w", pd.Name, m.SetVarVaddr, err)
				}
				logrus.Debugf("PD %q: patched %q with vaddr %#x", pd.Name, m.SetVarVaddr, m.Vaddr)
			}
		}
	}

	// Invocation pass: register context first, then capability seeds,
	// per PD, in system order. The loader replays in exactly this
	// order.
	var invs []sel4.Invocation
	for i := range sys.Domains {
		pd := &sys.Domains[i]
		img := images[i]

		logrus.Debugf("PD %q: initializing CHERI register context (purecap=%t)", pd.Name, img.PureCap())
		if err := cheri.InitTCBRegisters(cfg, &invs, caps[i].tcb, caps[i].vspace, pd.StackSize, img); err != nil {
			return nil, fmt.Errorf("initializing registers for PD %q: %w", pd.Name, err)
		}

		for j := range pd.Maps {
			m := &pd.Maps[j]
			if m.SetVarCap == "" {
				continue
			}
			mr, err := sys.Region(m.MR)
			if err != nil {
				return nil, fmt.Errorf("PD %q: %w", pd.Name, err)
			}
			perms, err := m.ParsedPerms()
			if err != nil {
				return nil, fmt.Errorf("PD %q: %w", pd.Name, err)
			}

			logSeedTarget(img, pd.Name, m.SetVarCap, i, mr.Size, pageDescs)
			if err := cheri.WriteSymbolCap(cfg, &invs, pageDescs, img, m.SetVarCap, i, caps[i].tcb, caps[i].vspace, m.Vaddr, mr.Size, perms); err != nil {
				return nil, fmt.Errorf("seeding capability for PD %q: %w", pd.Name, err)
			}
		}
	}

	return &Program{Invocations: invs, PageDescriptors: pageDescs}, nil
}

func roundDown(v, align uint64) uint64 {
	return v - v%align
}

func roundUp(v, align uint64) uint64 {
	return roundDown(v+align-1, align)
}

// logSeedTarget notes a symbol seed whose containing page has no
// descriptor. The capability writer falls back to the null page cap in
// that case, which usually points at a system description bug.
func logSeedTarget(img *elfimage.File, pdName, sym string, pdIdx int, size uint64, pageDescs []sel4.PageDescriptor) {
	s, err := img.FindSymbol(sym)
	if err != nil {
		return
	}
	page := roundDown(s.Vaddr, size)
	for _, d := range pageDescs {
		if d.PD == pdIdx && d.Vaddr == page {
			return
		}
	}
	logrus.Debugf("PD %q: no mapped page backs symbol %q (page %#x); seeding through the null page capability", pdName, sym, page)
}
