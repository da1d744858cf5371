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

// Package util groups a bunch of commonly used utility functions used
// by the commands.
package util

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// ErrorLogger is where error messages should be written to. These
// messages are consumed by build systems that wrap the tool.
var ErrorLogger io.Writer

// Errorf logs an error to the error logger and to stderr.
func Errorf(format string, args ...any) {
	logrus.Errorf(format, args...)
	if ErrorLogger != nil {
		fmt.Fprintf(ErrorLogger, format+"\n", args...)
	}
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

// Fatalf logs an error and exits. A failed build must abort the whole
// process: a partial boot program must never reach the loader. This is
// the only layer allowed to terminate the process.
func Fatalf(format string, args ...any) {
	Errorf(format, args...)
	os.Exit(1)
}
