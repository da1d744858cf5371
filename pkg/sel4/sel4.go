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

// Package sel4 models the parts of the seL4 kernel interface the boot
// image builder talks to: the target architecture, the per-build
// configuration, and the invocations replayed by the loader at boot.
package sel4

import "fmt"

// Arch is a target kernel architecture.
type Arch int

const (
	// ArchRiscv64 is 64-bit CHERI-RISC-V, the only architecture the
	// builder currently supports.
	ArchRiscv64 Arch = iota
	// ArchAarch64 is recognized in system descriptions but not yet
	// implemented by the capability initializer.
	ArchAarch64
)

// String implements fmt.Stringer.
func (a Arch) String() string {
	switch a {
	case ArchRiscv64:
		return "riscv64"
	case ArchAarch64:
		return "aarch64"
	default:
		return fmt.Sprintf("unknown(%d)", int(a))
	}
}

// ArchFromString maps a configuration string to an Arch.
func ArchFromString(s string) (Arch, error) {
	switch s {
	case "riscv64":
		return ArchRiscv64, nil
	case "aarch64":
		return ArchAarch64, nil
	default:
		return 0, fmt.Errorf("unknown architecture %q", s)
	}
}

// Config is the active build configuration, fixed for the duration of
// one build pass.
type Config struct {
	// Arch is the target architecture.
	Arch Arch

	// Board is the target board name, informational only.
	Board string

	// StackTop is the virtual address just past the top of every
	// protection domain's stack mapping.
	StackTop uint64

	// PageSize is the smallest mappable page granularity.
	PageSize uint64
}

// Default memory layout constants for boards that do not override them.
const (
	// DefaultStackTop is the virtual address the PD stack region grows
	// down from.
	DefaultStackTop = 0x80_0000_0000

	// DefaultPageSize is the smallest page granule on all supported
	// targets.
	DefaultPageSize = 0x1000
)

// PDStackTop returns the virtual address of the top of a protection
// domain's stack. All PD stacks share the same top address; they live
// in distinct address spaces.
func (c *Config) PDStackTop() uint64 {
	if c.StackTop != 0 {
		return c.StackTop
	}
	return DefaultStackTop
}
