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

package cmd

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/CHERI-Alliance/CHERI-Microkit/microkit/cmd/util"
)

// Describe implements subcommands.Command for the "describe" command.
// It runs the build pass without writing an output file and prints the
// boot program it would emit.
type Describe struct {
	commonFlags
}

// Name implements subcommands.Command.
func (*Describe) Name() string {
	return "describe"
}

// Synopsis implements subcommands.Command.
func (*Describe) Synopsis() string {
	return "prints the boot program a system description assembles to"
}

// Usage implements subcommands.Command.
func (*Describe) Usage() string {
	return `describe [flags] <system description>`
}

// SetFlags implements subcommands.Command.
func (d *Describe) SetFlags(f *flag.FlagSet) {
	f.StringVar(&d.configPath, "config", "", "board configuration file.")
	f.StringVar(&d.arch, "arch", "", "target architecture, overrides the board config.")
	f.StringVar(&d.board, "board", "", "target board name.")
	f.Var(&d.stackTop, "stack-top", "top virtual address of PD stacks, overrides the board config.")
}

// Execute implements subcommands.Command.Execute.
func (d *Describe) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	cfg, err := d.loadConfig()
	if err != nil {
		util.Fatalf("%v", err)
	}

	prog, err := buildProgram(cfg, f.Arg(0))
	if err != nil {
		util.Fatalf("%v", err)
	}

	if err := prog.Describe(os.Stdout); err != nil {
		util.Fatalf("writing description: %v", err)
	}
	return subcommands.ExitSuccess
}
