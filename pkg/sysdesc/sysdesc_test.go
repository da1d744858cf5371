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

package sysdesc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const testSystem = `
[[memory_region]]
name = "serial"
size = 0x1000
phys_addr = 0x10000000

[[protection_domain]]
name = "serial_driver"
program_image = "serial_driver.elf"
priority = 254
stack_size = 0x2000

[[protection_domain.map]]
mr = "serial"
vaddr = 0x4000000
perms = "rwc"
setvar_vaddr = "uart_base"
setvar_cap = "uart_cap"

[[protection_domain]]
name = "client"
program_image = "client.elf"
`

func writeSystem(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "system.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	s, err := Load(writeSystem(t, testSystem))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := &System{
		Domains: []ProtectionDomain{
			{
				Name:         "serial_driver",
				ProgramImage: "serial_driver.elf",
				Priority:     254,
				StackSize:    0x2000,
				Maps: []Map{{
					MR:          "serial",
					Vaddr:       0x4000000,
					Perms:       "rwc",
					SetVarVaddr: "uart_base",
					SetVarCap:   "uart_cap",
				}},
			},
			{
				Name:         "client",
				ProgramImage: "client.elf",
				StackSize:    DefaultStackSize,
			},
		},
		MemoryRegions: []MemoryRegion{
			{Name: "serial", Size: 0x1000, PhysAddr: 0x10000000},
		},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("system mismatch (-want +got):\n%s", diff)
	}

	mr, err := s.Region("serial")
	if err != nil {
		t.Fatalf("Region failed: %v", err)
	}
	if mr.Size != 0x1000 {
		t.Errorf("Region size = %#x, want 0x1000", mr.Size)
	}
	if _, err := s.Region("absent"); err == nil {
		t.Error("Region(absent) succeeded, want error")
	}
}

func TestLoadValidation(t *testing.T) {
	for _, tc := range []struct {
		name     string
		contents string
		wantErr  string
	}{
		{
			name:     "no domains",
			contents: `[[memory_region]]` + "\nname = \"m\"\nsize = 0x1000\n",
			wantErr:  "no protection domains",
		},
		{
			name: "unknown region",
			contents: `
[[protection_domain]]
name = "a"
program_image = "a.elf"
[[protection_domain.map]]
mr = "nope"
vaddr = 0x1000
perms = "r"
`,
			wantErr: `unknown memory region "nope"`,
		},
		{
			name: "bad perms",
			contents: `
[[memory_region]]
name = "m"
size = 0x1000
[[protection_domain]]
name = "a"
program_image = "a.elf"
[[protection_domain.map]]
mr = "m"
vaddr = 0x1000
perms = "rq"
`,
			wantErr: "invalid permission character",
		},
		{
			name: "duplicate domain",
			contents: `
[[protection_domain]]
name = "a"
program_image = "a.elf"
[[protection_domain]]
name = "a"
program_image = "b.elf"
`,
			wantErr: `duplicate protection domain "a"`,
		},
		{
			name: "missing image",
			contents: `
[[protection_domain]]
name = "a"
`,
			wantErr: "no program_image",
		},
		{
			name: "zero size region",
			contents: `
[[memory_region]]
name = "m"
size = 0
[[protection_domain]]
name = "a"
program_image = "a.elf"
`,
			wantErr: "zero size",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeSystem(t, tc.contents))
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestParseMapPerms(t *testing.T) {
	for _, tc := range []struct {
		s       string
		want    MapPerms
		wantErr bool
	}{
		{s: "", want: 0},
		{s: "r", want: PermRead},
		{s: "rw", want: PermRead | PermWrite},
		{s: "rwxc", want: PermRead | PermWrite | PermExecute | PermCheri},
		{s: "cr", want: PermCheri | PermRead},
		{s: "rr", wantErr: true},
		{s: "z", wantErr: true},
	} {
		got, err := ParseMapPerms(tc.s)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseMapPerms(%q) error = %v, wantErr %t", tc.s, err, tc.wantErr)
			continue
		}
		if err == nil && got != tc.want {
			t.Errorf("ParseMapPerms(%q) = %#x, want %#x", tc.s, uint8(got), uint8(tc.want))
		}
	}
}

func TestMapPermsString(t *testing.T) {
	p := PermCheri | PermRead | PermWrite
	if got := p.String(); got != "rwc" {
		t.Errorf("String() = %q, want \"rwc\"", got)
	}
}
