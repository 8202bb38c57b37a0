// Copyright (c) 2021 Fraunhofer AISEC
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

const VerificationResultType = "TDX RTMR Verification Result"

// VerificationResult represents the results of all steps taken during
// the verification of the RTMRs of a trust domain.
type VerificationResult struct {
	Type           string           `json:"type" cbor:"0,keyasint"`
	Success        bool             `json:"success" cbor:"1,keyasint"`
	Created        string           `json:"created,omitempty" cbor:"2,keyasint,omitempty"` // Timestamp the verification was completed
	Targets        []int            `json:"targets" cbor:"3,keyasint"`
	IncludeRuntime bool             `json:"includeRuntime" cbor:"4,keyasint"`
	ReportedSource string           `json:"reportedSource,omitempty" cbor:"5,keyasint,omitempty"` // Where the reported values came from
	Registers      []RegisterResult `json:"registers" cbor:"6,keyasint"`
	Selected       []SelectedResult `json:"selected,omitempty" cbor:"7,keyasint,omitempty"` // Only present if the register check passed
}

// RegisterResult is the comparison result of a single RTMR
type RegisterResult struct {
	Index      int    `json:"index" cbor:"0,keyasint"`
	Name       string `json:"name" cbor:"1,keyasint"`
	Calculated string `json:"calculated" cbor:"2,keyasint"`
	Reported   string `json:"reported" cbor:"3,keyasint"`
	Success    bool   `json:"success" cbor:"4,keyasint"`
}

// SelectedResult indicates whether a reference runtime measurement was
// found in the observed runtime measurement list
type SelectedResult struct {
	Index        int    `json:"index" cbor:"0,keyasint"`
	TemplateHash string `json:"templateHash" cbor:"1,keyasint"`
	TemplateName string `json:"templateName,omitempty" cbor:"2,keyasint,omitempty"`
	Description  string `json:"description,omitempty" cbor:"3,keyasint,omitempty"`
	Success      bool   `json:"success" cbor:"4,keyasint"`
}

// SelectedSuccess returns true if all selected reference measurements were found
func (r *VerificationResult) SelectedSuccess() bool {
	for _, s := range r.Selected {
		if !s.Success {
			return false
		}
	}
	return true
}
