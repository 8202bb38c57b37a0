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
	"encoding/hex"
	"fmt"
	"sync"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
	"github.com/Fraunhofer-AISEC/mrverify/ima"
	"github.com/Fraunhofer-AISEC/mrverify/internal"
)

// ReplayBoot recalculates the boot time value of the RTMR with the given index.
// Starting from 48 zero bytes, the digest of every entry attributed to the
// RTMR is extended in log order. An RTMR without entries stays zero.
func ReplayBoot(entries []ar.EventLogEntry, index int) (ar.Digest, error) {

	if err := ar.CheckRtmrIndex("target", index); err != nil {
		return ar.Digest{}, err
	}

	var rtmr ar.Digest
	n := 0
	for i, e := range entries {
		if e.Index != index {
			continue
		}
		if len(e.Digest) != ar.DigestLen {
			return ar.Digest{}, ar.NewInputError(fmt.Sprintf("boot event %v digest", i), ar.ErrMalformedInput,
				"expected %v bytes, got %v", ar.DigestLen, len(e.Digest))
		}

		rtmr = internal.ExtendSha384(rtmr[:], e.Digest)
		n++

		log.Tracef("Extended %v with %v (%v): %v", ar.RtmrName(index), e.EventName,
			hex.EncodeToString(e.Digest), rtmr)
	}

	log.Debugf("Replayed %v boot events into %v: %v", n, ar.RtmrName(index), rtmr)

	return rtmr, nil
}

// ReplayRuntime extends the runtime entries in file order into the chain
// seeded with base: val = SHA384(hexdecode(hex(val) || templateHash))
func ReplayRuntime(base ar.Digest, entries []ar.RuntimeEntry) (ar.Digest, error) {

	val := base
	for i, e := range entries {
		if err := ima.CheckTemplateHash(e.TemplateHash); err != nil {
			return ar.Digest{}, fmt.Errorf("runtime entry %v: %w", i, err)
		}

		concat, err := hex.DecodeString(val.String() + e.TemplateHash)
		if err != nil {
			return ar.Digest{}, ar.NewInputError(fmt.Sprintf("runtime entry %v template hash", i),
				ar.ErrMalformedInput, "%v", err)
		}

		val = internal.ExtendSha384(concat[:ar.DigestLen], concat[ar.DigestLen:])

		log.Tracef("Extended %v with runtime entry %v (%v): %v",
			ar.RtmrName(ar.RuntimeRtmr), i, e.TemplateName, val)
	}

	log.Debugf("Replayed %v runtime entries on top of %v", len(entries), base)

	return val, nil
}

// Replay recalculates the values of all target RTMRs. If includeRuntime is
// set and RTMR2 is a target, the runtime entries are replayed on top of its
// boot time value. Each RTMR is replayed in its own goroutine as the chains
// are independent of each other.
func Replay(boot []ar.EventLogEntry, runtime []ar.RuntimeEntry, targets []int,
	includeRuntime bool,
) (ar.RegisterBank, error) {

	for _, index := range targets {
		if err := ar.CheckRtmrIndex("target", index); err != nil {
			return nil, err
		}
	}

	if includeRuntime && !internal.ContainsInt(ar.RuntimeRtmr, targets) {
		log.Debugf("%v not targeted, ignoring %v runtime entries",
			ar.RtmrName(ar.RuntimeRtmr), len(runtime))
	}

	values := make([]ar.Digest, len(targets))
	errs := make([]error, len(targets))

	var wg sync.WaitGroup
	for i, index := range targets {
		wg.Add(1)
		go func(i, index int) {
			defer wg.Done()

			rtmr, err := ReplayBoot(boot, index)
			if err == nil && includeRuntime && index == ar.RuntimeRtmr {
				rtmr, err = ReplayRuntime(rtmr, runtime)
			}
			values[i] = rtmr
			errs[i] = err
		}(i, index)
	}
	wg.Wait()

	bank := make(ar.RegisterBank, len(targets))
	for i, index := range targets {
		if errs[i] != nil {
			return nil, fmt.Errorf("failed to replay %v: %w", ar.RtmrName(index), errs[i])
		}
		bank[index] = values[i]
		log.Debugf("Replayed %v: %v", ar.RtmrName(index), values[i])
	}

	return bank, nil
}
