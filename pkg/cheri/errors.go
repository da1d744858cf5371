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

package cheri

import (
	"fmt"

	"github.com/CHERI-Alliance/CHERI-Microkit/pkg/sel4"
)

// The three error kinds below are deterministic configuration errors.
// Every one of them must abort the whole build: a partially emitted
// invocation list would initialize a domain with wrong capabilities.
// Only the top-level command layer may terminate the process.

// MalformedImageError reports a pure-capability image that does not
// have exactly one code segment and one data segment.
type MalformedImageError struct {
	CodeSegments int
	DataSegments int
}

// Error implements error.
func (e *MalformedImageError) Error() string {
	return fmt.Sprintf("CHERI protection domain ELFs can only have one code segment and one data segment (image has %d code, %d data)",
		e.CodeSegments, e.DataSegments)
}

// UnresolvedSymbolError reports a capability seed target symbol that
// does not exist in the image.
type UnresolvedSymbolError struct {
	Symbol string
}

// Error implements error.
func (e *UnresolvedSymbolError) Error() string {
	return fmt.Sprintf("could not find symbol %q", e.Symbol)
}

// UnsupportedArchError reports a configured architecture the capability
// initializer does not implement.
type UnsupportedArchError struct {
	Arch sel4.Arch
}

// Error implements error.
func (e *UnsupportedArchError) Error() string {
	return fmt.Sprintf("only CHERI-RISC-V 64-bit is supported at the moment (configured architecture: %s)", e.Arch)
}
