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

package verifier

import (
	"strings"
	"testing"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
)

func TestVerifySelected(t *testing.T) {
	h1 := strings.Repeat("01", 48)
	h2 := strings.Repeat("02", 48)
	h3 := strings.Repeat("03", 48)

	observed := []ar.RuntimeEntry{
		{Index: 2, TemplateHash: h2, TemplateName: "ima-ng"},
		{Index: 2, TemplateHash: h1, TemplateName: "ima-ng"},
		{Index: 2, TemplateHash: h1, TemplateName: "ima-ng"},
	}

	tests := []struct {
		name     string
		observed []ar.RuntimeEntry
		refs     []ar.ReferenceEntry
		want     []bool
	}{
		{
			name:     "All Present Regardless Of Order",
			observed: observed,
			refs: []ar.ReferenceEntry{
				{Index: 2, TemplateHash: h1, TemplateName: "ima-ng", Description: "/usr/bin/a"},
				{Index: 2, TemplateHash: h2, TemplateName: "ima-ng", Description: "/usr/bin/b"},
			},
			want: []bool{true, true},
		},
		{
			name:     "Single Missing Reference",
			observed: observed,
			refs: []ar.ReferenceEntry{
				{Index: 2, TemplateHash: h1},
				{Index: 2, TemplateHash: h3},
				{Index: 2, TemplateHash: h2},
			},
			want: []bool{true, false, true},
		},
		{
			name:     "Case Sensitive Match",
			observed: observed,
			refs: []ar.ReferenceEntry{
				{Index: 2, TemplateHash: strings.ToUpper(h1)},
			},
			want: []bool{false},
		},
		{
			name:     "No Observed Entries",
			observed: nil,
			refs:     []ar.ReferenceEntry{{Index: 2, TemplateHash: h1}},
			want:     []bool{false},
		},
		{
			name:     "No References",
			observed: observed,
			refs:     nil,
			want:     []bool{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifySelected(tt.observed, tt.refs)
			if len(got) != len(tt.want) {
				t.Fatalf("VerifySelected() returned %v results, want %v", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Success != tt.want[i] {
					t.Errorf("VerifySelected() result %v = %v, want %v", i, got[i].Success, tt.want[i])
				}
				if got[i].TemplateHash != tt.refs[i].TemplateHash {
					t.Errorf("VerifySelected() result %v hash = %v, want %v", i,
						got[i].TemplateHash, tt.refs[i].TemplateHash)
				}
			}
		})
	}
}
