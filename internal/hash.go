// Copyright (c) 2025 Fraunhofer AISEC
// Fraunhofer-Gesellschaft zur Foerderung der angewandten Forschung e.V.
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

package internal

import (
	"crypto/sha512"
)

// ExtendSha384 performs the extend operation Digest = HASH(Digest | Data) using the
// SHA384 hash algorithm. The input slices are not modified.
func ExtendSha384(digest []byte, data []byte) [48]byte {
	concat := make([]byte, 0, len(digest)+len(data))
	concat = append(concat, digest...)
	concat = append(concat, data...)
	return sha512.Sum384(concat)
}
