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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/CHERI-Alliance/CHERI-Microkit/pkg/sel4"
)

func TestDefaultSel4(t *testing.T) {
	cfg, err := Default().Sel4()
	if err != nil {
		t.Fatalf("Sel4 failed: %v", err)
	}
	if cfg.Arch != sel4.ArchRiscv64 {
		t.Errorf("Arch = %v, want riscv64", cfg.Arch)
	}
	if got := cfg.PDStackTop(); got != sel4.DefaultStackTop {
		t.Errorf("PDStackTop() = %#x, want %#x", got, uint64(sel4.DefaultStackTop))
	}
}

func TestLoadBoardFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.toml")
	contents := `
arch = "riscv64"
board = "qemu_virt_riscv64"
stack_top = 0x0000008000000000
page_size = 0x1000
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Board != "qemu_virt_riscv64" {
		t.Errorf("Board = %q, want qemu_virt_riscv64", c.Board)
	}
	if c.StackTop != 0x80_0000_0000 {
		t.Errorf("StackTop = %#x, want 0x8000000000", c.StackTop)
	}

	cfg, err := c.Sel4()
	if err != nil {
		t.Fatalf("Sel4 failed: %v", err)
	}
	if cfg.PageSize != 0x1000 {
		t.Errorf("PageSize = %#x, want 0x1000", cfg.PageSize)
	}
}

func TestUnknownArch(t *testing.T) {
	c := Default()
	c.Arch = "m68k"
	if _, err := c.Sel4(); err == nil {
		t.Fatal("Sel4 succeeded with unknown architecture, want error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("Load succeeded on missing file, want error")
	}
}
