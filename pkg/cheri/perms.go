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

import "github.com/CHERI-Alliance/CHERI-Microkit/pkg/sysdesc"

// TranslateMapPerms maps generic mapping permissions to CHERI-RISC-V
// capability permission bits. Each generic bit maps to exactly one
// architecture bit; nothing is implied.
func TranslateMapPerms(p sysdesc.MapPerms) uint32 {
	var perms uint32
	if p&sysdesc.PermRead != 0 {
		perms |= PermitLoad
	}
	if p&sysdesc.PermWrite != 0 {
		perms |= PermitStore
	}
	if p&sysdesc.PermExecute != 0 {
		perms |= PermitExecute
	}
	if p&sysdesc.PermCheri != 0 {
		perms |= Capability
	}
	return perms
}
