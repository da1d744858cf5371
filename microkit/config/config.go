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

// Package config holds the tool configuration: the target architecture
// and board plus the memory layout constants the capability initializer
// depends on.
package config

import (
	"github.com/BurntSushi/toml"

	"github.com/CHERI-Alliance/CHERI-Microkit/pkg/sel4"
)

// Config is the tool configuration, merged from the board file and
// command line overrides.
type Config struct {
	// Arch is the target architecture name.
	Arch string `toml:"arch"`
	// Board is the target board name.
	Board string `toml:"board"`
	// StackTop is the virtual address PD stacks grow down from; zero
	// selects the architecture default.
	StackTop uint64 `toml:"stack_top"`
	// PageSize is the mapping granule; zero selects the architecture
	// default.
	PageSize uint64 `toml:"page_size"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Arch: "riscv64",
	}
}

// Load reads a board configuration file over the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Sel4 resolves the configuration into the kernel-facing form. An
// unknown architecture name is a configuration error; the capability
// initializer enforces architecture support again on its own.
func (c *Config) Sel4() (*sel4.Config, error) {
	arch, err := sel4.ArchFromString(c.Arch)
	if err != nil {
		return nil, err
	}
	return &sel4.Config{
		Arch:     arch,
		Board:    c.Board,
		StackTop: c.StackTop,
		PageSize: c.PageSize,
	}, nil
}
