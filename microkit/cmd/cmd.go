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

// Package cmd holds implementations of the microkit commands.
package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/CHERI-Alliance/CHERI-Microkit/microkit/builder"
	"github.com/CHERI-Alliance/CHERI-Microkit/microkit/config"
	"github.com/CHERI-Alliance/CHERI-Microkit/pkg/sel4"
	"github.com/CHERI-Alliance/CHERI-Microkit/pkg/sysdesc"
)

// hexValue is a flag value accepting decimal or 0x-prefixed numbers.
type hexValue uint64

// String implements flag.Value.
func (h *hexValue) String() string {
	return fmt.Sprintf("%#x", uint64(*h))
}

// Set implements flag.Value.
func (h *hexValue) Set(s string) error {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return fmt.Errorf("invalid flag value %q: %v", s, err)
	}
	*h = hexValue(v)
	return nil
}

// commonFlags are the configuration flags shared by build and describe.
type commonFlags struct {
	configPath string
	arch       string
	board      string
	stackTop   hexValue
}

func (c *commonFlags) loadConfig() (*sel4.Config, error) {
	conf := config.Default()
	if c.configPath != "" {
		var err error
		conf, err = config.Load(c.configPath)
		if err != nil {
			return nil, fmt.Errorf("loading board config: %w", err)
		}
	}
	if c.arch != "" {
		conf.Arch = c.arch
	}
	if c.board != "" {
		conf.Board = c.board
	}
	if c.stackTop != 0 {
		conf.StackTop = uint64(c.stackTop)
	}
	return conf.Sel4()
}

// buildProgram runs the whole build pass for the system description at
// sysPath.
func buildProgram(cfg *sel4.Config, sysPath string) (*builder.Program, error) {
	sys, err := sysdesc.Load(sysPath)
	if err != nil {
		return nil, err
	}
	return builder.Build(cfg, sys, filepath.Dir(sysPath))
}
