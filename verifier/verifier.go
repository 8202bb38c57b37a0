// Copyright (c) 2021 - 2025 Fraunhofer AISEC
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
	"fmt"
	"strings"
	"time"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("service", "verifier")

// Input contains everything a verification run operates on. All data must
// have been fetched before, Verify performs no I/O.
type Input struct {
	BootEntries    []ar.EventLogEntry
	RuntimeEntries []ar.RuntimeEntry
	References     []ar.ReferenceEntry
	Reported       ar.RegisterBank
	ReportedSource string
	Targets        []int
	IncludeRuntime bool
}

// Verify replays the target RTMRs from the event logs and compares them with
// the reported values. If all RTMRs match and reference entries were given,
// the presence of the reference entries in the runtime log is checked.
//
// A mismatch is reported through the result, errors are only returned for
// malformed or missing input.
func Verify(in *Input) (*ar.VerificationResult, error) {

	if in == nil {
		return nil, errors.New("internal error: verification input is nil")
	}
	if len(in.Targets) == 0 {
		return nil, ar.NewInputError("targets", ar.ErrMissingData, "no RTMRs to verify")
	}

	log.Info("Step 0: List verify scope")
	log.Infof("Verifying RTMRs: [%v]", joinInts(in.Targets))
	log.Infof("Runtime measurements included: %v", in.IncludeRuntime)

	log.Info("Step 1: Replay boot time and runtime event logs")
	replayed, err := Replay(in.BootEntries, in.RuntimeEntries, in.Targets, in.IncludeRuntime)
	if err != nil {
		return nil, fmt.Errorf("failed to replay event logs: %w", err)
	}

	log.Info("Step 2: Verify replayed RTMRs against reported values")
	registers, success, err := VerifyRegisters(replayed, in.Reported, in.Targets)
	if err != nil {
		return nil, fmt.Errorf("failed to verify RTMRs: %w", err)
	}

	result := &ar.VerificationResult{
		Type:           ar.VerificationResultType,
		Success:        success,
		Targets:        append([]int(nil), in.Targets...),
		IncludeRuntime: in.IncludeRuntime,
		ReportedSource: in.ReportedSource,
		Registers:      registers,
	}

	if success {
		log.Info("RTMR verification successful")
	} else {
		log.Warn("RTMR verification failed")
	}

	if len(in.References) > 0 {
		if success {
			log.Info("Step 3: Verify selected measurements from runtime event log")
			result.Selected = VerifySelected(in.RuntimeEntries, in.References)
		} else {
			log.Info("Skipping selected measurement verification as RTMR verification failed")
		}
	}

	result.Created = time.Now().UTC().Format(time.RFC3339)

	return result, nil
}

func joinInts(ints []int) string {
	s := make([]string, 0, len(ints))
	for _, i := range ints {
		s = append(s, fmt.Sprint(i))
	}
	return strings.Join(s, ",")
}
