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

// Package cli is the main entrypoint for microkit.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"github.com/CHERI-Alliance/CHERI-Microkit/microkit/cmd"
	"github.com/CHERI-Alliance/CHERI-Microkit/microkit/cmd/util"
	"github.com/CHERI-Alliance/CHERI-Microkit/microkit/version"
)

var (
	debug       = flag.Bool("debug", false, "enable debug logging.")
	logFile     = flag.String("log", "", "file to append error logs to, in addition to stderr.")
	showVersion = flag.Bool("version", false, "show version and exit.")
)

// Main is the main entrypoint.
func Main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(new(cmd.Build), "")
	subcommands.Register(new(cmd.Describe), "")

	// All subcommands must be registered before flag parsing.
	flag.Parse()

	if *showVersion {
		fmt.Fprintf(os.Stdout, "microkit version %s\n", version.Version())
		os.Exit(0)
	}

	logrus.SetOutput(os.Stderr)
	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if *logFile != "" {
		// Appended, not truncated: build systems pass the same log file
		// across invocations and parse it afterwards.
		f, err := os.OpenFile(*logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			util.Fatalf("error opening log file %q: %v", *logFile, err)
		}
		util.ErrorLogger = f
	}

	os.Exit(int(subcommands.Execute(context.Background())))
}
