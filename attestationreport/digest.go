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

package attestationreport

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	// SHA384 digest size, which is also the size of a TDX measurement register
	DigestLen = 48
	// Number of TDX runtime measurement registers
	NumRtmrs = 4
	// RTMR the kernel IMA extends its runtime measurements into
	RuntimeRtmr = 2
)

// Digest is a SHA384 digest or the value of a single RTMR
type Digest [DigestLen]byte

// NewDigest copies b into a Digest. b must be exactly DigestLen bytes
func NewDigest(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestLen {
		return d, NewInputError("digest", ErrMalformedInput,
			"expected %v bytes, got %v", DigestLen, len(b))
	}
	copy(d[:], b)
	return d, nil
}

// DigestFromHex decodes a hex encoded digest
func DigestFromHex(s string) (Digest, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return Digest{}, NewInputError("digest", ErrMalformedInput, "invalid hex: %v", err)
	}
	return NewDigest(b)
}

// DigestFromBase64 decodes a base64 (standard encoding) digest as reported
// by the platform
func DigestFromBase64(s string) (Digest, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return Digest{}, NewInputError("digest", ErrMalformedInput, "invalid base64: %v", err)
	}
	return NewDigest(b)
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalJSON marshals the digest into a hex string
func (d Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON unmarshals a hex string into the digest
func (d *Digest) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}
	tmp, err := DigestFromHex(s)
	if err != nil {
		return err
	}
	*d = tmp
	return nil
}

// RegisterBank maps a register index to its value
type RegisterBank map[int]Digest

// Indices returns the register indices of the bank in ascending order
func (b RegisterBank) Indices() []int {
	indices := make([]int, 0, len(b))
	for i := range b {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

var rtmrNames = [NumRtmrs]string{
	"RTMR0",
	"RTMR1",
	"RTMR2",
	"RTMR3",
}

// RtmrName returns the name of the RTMR with the given index
func RtmrName(index int) string {
	if index < 0 || index >= NumRtmrs {
		return fmt.Sprintf("RTMR(%v)", index)
	}
	return rtmrNames[index]
}

// CheckRtmrIndex returns an error if index does not denote one of the RTMRs
func CheckRtmrIndex(field string, index int) error {
	if index < 0 || index >= NumRtmrs {
		return NewInputError(field, ErrMalformedInput,
			"register index %v out of range [0,%v]", index, NumRtmrs-1)
	}
	return nil
}
