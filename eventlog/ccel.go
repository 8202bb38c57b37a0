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

package eventlog

import (
	"fmt"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
	"github.com/Fraunhofer-AISEC/mrverify/internal"
	"github.com/google/go-eventlog/register"
	"github.com/google/go-eventlog/tcg"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_CCEL_ACPI_TABLE = "/sys/firmware/acpi/tables/data/CCEL"
)

var log = logrus.WithField("service", "eventlog")

// ParseCcel parses the binary CC event log (ACPI CCEL table) and returns
// the SHA384 boot events in log order. The CC measurement register index
// of the log (1-4) is converted into the RTMR index (0-3).
func ParseCcel(data []byte) ([]ar.EventLogEntry, error) {

	eventlog, err := tcg.ParseEventLog(data, tcg.ParseOpts{AllowPadding: true})
	if err != nil {
		return nil, ar.NewInputError("CC eventlog", ar.ErrMalformedInput, "%v", err)
	}

	events := eventlog.Events(register.HashSHA384)
	entries := make([]ar.EventLogEntry, 0, len(events))

	for i, event := range events {

		if uint32(event.Type) == EvNoAction {
			log.Tracef("Skipping event %v: %v", i, event.Type.String())
			continue
		}

		mrIndex := int(event.MRIndex())
		if mrIndex < 1 || mrIndex > ar.NumRtmrs {
			return nil, ar.NewInputError(fmt.Sprintf("event %v index", i), ar.ErrMalformedInput,
				"CC measurement register index %v does not denote an RTMR", mrIndex)
		}
		if event.Digest == nil {
			return nil, ar.NewInputError(fmt.Sprintf("event %v digest", i), ar.ErrMalformedInput,
				"no SHA384 digest present")
		}

		name, ok := EventTypeName(uint32(event.Type))
		if !ok {
			name = event.Type.String()
		}

		entry, err := ar.NewEventLogEntry(mrIndex-1, uint32(event.Type), name, AlgSha384,
			event.Digest, event.Data)
		if err != nil {
			return nil, fmt.Errorf("event %v: %w", i, err)
		}

		logEntry(i, &entry)

		entries = append(entries, entry)
	}

	log.Debugf("Parsed %v CC eventlog entries", len(entries))

	return entries, nil
}

func logEntry(i int, e *ar.EventLogEntry) {
	log.Debugf("Event %v: %v type 0x%x (%v) %v", i, ar.RtmrName(e.Index), e.EventType,
		e.EventName, AlgorithmName(e.AlgorithmId))
	internal.LogHexDump(log, e.Digest)
}
