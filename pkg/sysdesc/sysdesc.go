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

// Package sysdesc holds the architecture-neutral system description:
// protection domains, memory regions, and the mappings between them.
package sysdesc

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// MapPerms is the generic permission set attached to a memory mapping.
// It is translated into architecture capability permissions by the
// capability initializer, never interpreted by hardware directly.
type MapPerms uint8

const (
	// PermRead allows loads through the mapping.
	PermRead MapPerms = 1 << 0
	// PermWrite allows stores through the mapping.
	PermWrite MapPerms = 1 << 1
	// PermExecute allows instruction fetch through the mapping.
	PermExecute MapPerms = 1 << 2
	// PermCheri allows tagged capabilities to be loaded and stored
	// through the mapping.
	PermCheri MapPerms = 1 << 3
)

// ParseMapPerms parses a permission string such as "rw" or "rwxc".
// Each of r, w, x, c may appear at most once.
func ParseMapPerms(s string) (MapPerms, error) {
	var p MapPerms
	for _, c := range s {
		var bit MapPerms
		switch c {
		case 'r':
			bit = PermRead
		case 'w':
			bit = PermWrite
		case 'x':
			bit = PermExecute
		case 'c':
			bit = PermCheri
		default:
			return 0, fmt.Errorf("invalid permission character %q in %q", c, s)
		}
		if p&bit != 0 {
			return 0, fmt.Errorf("duplicate permission character %q in %q", c, s)
		}
		p |= bit
	}
	return p, nil
}

// String returns the canonical "rwxc" form of p.
func (p MapPerms) String() string {
	var s []byte
	if p&PermRead != 0 {
		s = append(s, 'r')
	}
	if p&PermWrite != 0 {
		s = append(s, 'w')
	}
	if p&PermExecute != 0 {
		s = append(s, 'x')
	}
	if p&PermCheri != 0 {
		s = append(s, 'c')
	}
	return string(s)
}

// DefaultStackSize is the stack size for protection domains that do
// not declare one.
const DefaultStackSize = 0x1000

// Map attaches a memory region to a protection domain's address space.
type Map struct {
	// MR names the mapped memory region.
	MR string `toml:"mr"`
	// Vaddr is the virtual address the region is mapped at.
	Vaddr uint64 `toml:"vaddr"`
	// Perms is the "rwxc" permission string.
	Perms string `toml:"perms"`
	// SetVarVaddr optionally names a symbol in the PD image that is
	// patched with the mapping's virtual address at build time.
	SetVarVaddr string `toml:"setvar_vaddr"`
	// SetVarCap optionally names a symbol in the PD image that is
	// seeded with a bounded capability to the mapping at build time.
	SetVarCap string `toml:"setvar_cap"`
}

// ParsedPerms returns the parsed permission set of the map.
func (m *Map) ParsedPerms() (MapPerms, error) {
	return ParseMapPerms(m.Perms)
}

// MemoryRegion is a named region of physical memory.
type MemoryRegion struct {
	Name string `toml:"name"`
	// Size is the region size in bytes; must be a multiple of the page
	// size.
	Size uint64 `toml:"size"`
	// PhysAddr optionally fixes the region's physical address.
	PhysAddr uint64 `toml:"phys_addr"`
	// PageSize optionally overrides the mapping granule.
	PageSize uint64 `toml:"page_size"`
}

// ProtectionDomain is one isolated program in the system.
type ProtectionDomain struct {
	Name string `toml:"name"`
	// ProgramImage is the path of the PD's ELF, relative to the system
	// description file.
	ProgramImage string `toml:"program_image"`
	Priority     uint8  `toml:"priority"`
	// StackSize is the PD stack size in bytes; DefaultStackSize when
	// zero.
	StackSize uint64 `toml:"stack_size"`
	Maps      []Map  `toml:"map"`
}

// System is a parsed, validated system description.
type System struct {
	Domains       []ProtectionDomain `toml:"protection_domain"`
	MemoryRegions []MemoryRegion     `toml:"memory_region"`
}

// Load reads and validates the system description at path.
func Load(path string) (*System, error) {
	var s System
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}

// Region returns the named memory region.
func (s *System) Region(name string) (*MemoryRegion, error) {
	for i := range s.MemoryRegions {
		if s.MemoryRegions[i].Name == name {
			return &s.MemoryRegions[i], nil
		}
	}
	return nil, fmt.Errorf("memory region %q not defined", name)
}

func (s *System) validate() error {
	if len(s.Domains) == 0 {
		return fmt.Errorf("system defines no protection domains")
	}
	mrs := make(map[string]bool)
	for _, mr := range s.MemoryRegions {
		if mr.Name == "" {
			return fmt.Errorf("memory region without a name")
		}
		if mrs[mr.Name] {
			return fmt.Errorf("duplicate memory region %q", mr.Name)
		}
		if mr.Size == 0 {
			return fmt.Errorf("memory region %q has zero size", mr.Name)
		}
		mrs[mr.Name] = true
	}
	pds := make(map[string]bool)
	for i := range s.Domains {
		pd := &s.Domains[i]
		if pd.Name == "" {
			return fmt.Errorf("protection domain without a name")
		}
		if pds[pd.Name] {
			return fmt.Errorf("duplicate protection domain %q", pd.Name)
		}
		pds[pd.Name] = true
		if pd.ProgramImage == "" {
			return fmt.Errorf("protection domain %q has no program_image", pd.Name)
		}
		if pd.StackSize == 0 {
			pd.StackSize = DefaultStackSize
		}
		for j := range pd.Maps {
			m := &pd.Maps[j]
			if !mrs[m.MR] {
				return fmt.Errorf("protection domain %q maps unknown memory region %q", pd.Name, m.MR)
			}
			if _, err := m.ParsedPerms(); err != nil {
				return fmt.Errorf("protection domain %q map of %q: %w", pd.Name, m.MR, err)
			}
		}
	}
	return nil
}
