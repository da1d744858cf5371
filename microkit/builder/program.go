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

package builder

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/CHERI-Alliance/CHERI-Microkit/pkg/sel4"
)

// Boot program file header.
const (
	// progMagic is "MKBP" little-endian.
	progMagic   = 0x5042_4B4D
	progVersion = 1
)

// Program is an assembled boot program: the ordered invocation list the
// loader replays, plus the page descriptor table it was built against.
type Program struct {
	Invocations     []sel4.Invocation
	PageDescriptors []sel4.PageDescriptor
}

// Serialize writes the packed boot program to w.
func (p *Program) Serialize(w io.Writer) error {
	b := make([]byte, 0, 16+len(p.Invocations)*(1+8*8))
	b = binary.LittleEndian.AppendUint32(b, progMagic)
	b = binary.LittleEndian.AppendUint32(b, progVersion)
	b = binary.LittleEndian.AppendUint64(b, uint64(len(p.Invocations)))
	for _, inv := range p.Invocations {
		b = inv.MarshalRecord(b)
	}
	_, err := w.Write(b)
	return err
}

// Describe writes a human-readable rendering of the boot program to w.
func (p *Program) Describe(w io.Writer) error {
	for i, inv := range p.Invocations {
		if _, err := fmt.Fprintf(w, "%4d: %s\n", i, inv); err != nil {
			return err
		}
	}
	return nil
}
