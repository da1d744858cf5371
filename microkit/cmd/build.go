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
	"github.com/sirupsen/logrus"

	"github.com/CHERI-Alliance/CHERI-Microkit/microkit/cmd/util"
)

// Build implements subcommands.Command for the "build" command.
type Build struct {
	commonFlags
	output string
}

// Name implements subcommands.Command.
func (*Build) Name() string {
	return "build"
}

// Synopsis implements subcommands.Command.
func (*Build) Synopsis() string {
	return "assembles the boot program for a system description"
}

// Usage implements subcommands.Command.
func (*Build) Usage() string {
	return `build [flags] <system description>`
}

// SetFlags implements subcommands.Command.
func (b *Build) SetFlags(f *flag.FlagSet) {
	f.StringVar(&b.configPath, "config", "", "board configuration file.")
	f.StringVar(&b.arch, "arch", "", "target architecture, overrides the board config.")
	f.StringVar(&b.board, "board", "", "target board name.")
	f.Var(&b.stackTop, "stack-top", "top virtual address of PD stacks, overrides the board config.")
	f.StringVar(&b.output, "o", "bootprog.bin", "output boot program file.")
}

// Execute implements subcommands.Command.Execute.
func (b *Build) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	cfg, err := b.loadConfig()
	if err != nil {
		util.Fatalf("%v", err)
	}

	prog, err := buildProgram(cfg, f.Arg(0))
	if err != nil {
		util.Fatalf("%v", err)
	}

	out, err := os.Create(b.output)
	if err != nil {
		util.Fatalf("creating output: %v", err)
	}
	if err := prog.Serialize(out); err != nil {
		out.Close()
		util.Fatalf("writing boot program: %v", err)
	}
	if err := out.Close(); err != nil {
		util.Fatalf("flushing boot program: %v", err)
	}

	logrus.Infof("wrote %d invocations to %s", len(prog.Invocations), b.output)
	return subcommands.ExitSuccess
}
