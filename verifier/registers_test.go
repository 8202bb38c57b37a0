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
	"errors"
	"testing"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
	"github.com/sirupsen/logrus"
)

func TestVerifyRegisters(t *testing.T) {
	logrus.SetLevel(logrus.TraceLevel)

	a := sha384([]byte("a"))
	b := sha384([]byte("b"))

	tests := []struct {
		name        string
		replayed    ar.RegisterBank
		reported    ar.RegisterBank
		targets     []int
		want        []bool
		wantSuccess bool
		wantErr     error
	}{
		{
			name:        "All Match",
			replayed:    ar.RegisterBank{0: a, 1: b, 3: {}},
			reported:    ar.RegisterBank{0: a, 1: b, 3: {}},
			targets:     []int{0, 1, 3},
			want:        []bool{true, true, true},
			wantSuccess: true,
		},
		{
			name:        "Mismatch Evaluates All Targets",
			replayed:    ar.RegisterBank{0: a, 1: b, 2: a},
			reported:    ar.RegisterBank{0: b, 1: b, 2: a},
			targets:     []int{0, 1, 2},
			want:        []bool{false, true, true},
			wantSuccess: false,
		},
		{
			name:        "Unrequested Registers Ignored",
			replayed:    ar.RegisterBank{1: b},
			reported:    ar.RegisterBank{0: a, 1: b, 2: b},
			targets:     []int{1},
			want:        []bool{true},
			wantSuccess: true,
		},
		{
			name:     "Missing Reported Value",
			replayed: ar.RegisterBank{0: a, 1: b},
			reported: ar.RegisterBank{0: a},
			targets:  []int{0, 1},
			wantErr:  ar.ErrMissingData,
		},
		{
			name:     "Missing Replayed Value",
			replayed: ar.RegisterBank{0: a},
			reported: ar.RegisterBank{0: a, 2: a},
			targets:  []int{0, 2},
			wantErr:  ar.ErrMissingData,
		},
		{
			name:     "Invalid Target",
			replayed: ar.RegisterBank{},
			reported: ar.RegisterBank{},
			targets:  []int{-1},
			wantErr:  ar.ErrMalformedInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, success, err := VerifyRegisters(tt.replayed, tt.reported, tt.targets)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("VerifyRegisters() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("VerifyRegisters() error = %v", err)
			}
			if success != tt.wantSuccess {
				t.Errorf("VerifyRegisters() success = %v, want %v", success, tt.wantSuccess)
			}
			if len(results) != len(tt.want) {
				t.Fatalf("VerifyRegisters() returned %v results, want %v", len(results), len(tt.want))
			}
			for i, r := range results {
				if r.Index != tt.targets[i] {
					t.Errorf("result %v index = %v, want %v", i, r.Index, tt.targets[i])
				}
				if r.Success != tt.want[i] {
					t.Errorf("result %v (%v) success = %v, want %v", i, r.Name, r.Success, tt.want[i])
				}
				if r.Calculated != tt.replayed[r.Index].String() || r.Reported != tt.reported[r.Index].String() {
					t.Errorf("result %v values = %v/%v", i, r.Calculated, r.Reported)
				}
			}
		})
	}
}
