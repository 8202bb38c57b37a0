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
	"fmt"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
)

// VerifyRegisters compares the replayed with the reported value of every
// target RTMR. A mismatch is reported as a failed result, all targets are
// evaluated. A target without replayed or reported value is an error.
func VerifyRegisters(replayed, reported ar.RegisterBank, targets []int,
) ([]ar.RegisterResult, bool, error) {

	for _, index := range targets {
		if err := ar.CheckRtmrIndex("target", index); err != nil {
			return nil, false, err
		}
		if _, ok := replayed[index]; !ok {
			return nil, false, ar.NewInputError(fmt.Sprintf("replayed %v", ar.RtmrName(index)),
				ar.ErrMissingData, "register was not replayed")
		}
		if _, ok := reported[index]; !ok {
			return nil, false, ar.NewInputError(fmt.Sprintf("reported %v", ar.RtmrName(index)),
				ar.ErrMissingData, "no reported value")
		}
	}

	results := make([]ar.RegisterResult, 0, len(targets))
	success := true

	for _, index := range targets {
		calculated := replayed[index]
		measured := reported[index]

		r := ar.RegisterResult{
			Index:      index,
			Name:       ar.RtmrName(index),
			Calculated: calculated.String(),
			Reported:   measured.String(),
			Success:    calculated == measured,
		}

		if r.Success {
			log.Infof("%v passed the verification", r.Name)
		} else {
			log.Errorf("%v did not pass the verification", r.Name)
			log.Errorf("\tCalculated: %v", r.Calculated)
			log.Errorf("\tReported  : %v", r.Reported)
			success = false
		}

		results = append(results, r)
	}

	return results, success, nil
}
