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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
)

// JsonEventLogs is the JSON event log format of the CC eventlog server.
// Rtmr is already converted to the RTMR index.
type JsonEventLogs struct {
	Header    json.RawMessage `json:"Header,omitempty"`
	EventLogs []JsonEventLog  `json:"EventLogs"`
}

type JsonEventLog struct {
	Rtmr        uint32   `json:"Rtmr"`
	Etype       uint32   `json:"Etype"`
	DigestCount uint32   `json:"DigestCount"`
	Digests     []string `json:"Digests"`
	Event       []byte   `json:"Event"`
	EventSize   uint32   `json:"EventSize"`
	AlgorithmId uint16   `json:"AlgorithmId"`
}

// ParseJson parses an event log in the JSON format of the CC eventlog server.
// Of multiple digests per entry, the last one is used and must be a SHA384
// digest. Entries without digests are skipped.
func ParseJson(data []byte) ([]ar.EventLogEntry, error) {

	logs := new(JsonEventLogs)
	if err := json.Unmarshal(data, logs); err != nil {
		return nil, ar.NewInputError("JSON eventlog", ar.ErrMalformedInput, "%v", err)
	}

	entries := make([]ar.EventLogEntry, 0, len(logs.EventLogs))
	for i, l := range logs.EventLogs {

		if l.DigestCount < 1 {
			log.Debugf("Skipping event %v: no digest available", i)
			continue
		}
		if int(l.DigestCount) > len(l.Digests) {
			return nil, ar.NewInputError(fmt.Sprintf("event %v digests", i), ar.ErrMalformedInput,
				"digest count %v exceeds %v present digests", l.DigestCount, len(l.Digests))
		}

		digest, err := ParseDigestList(l.Digests[l.DigestCount-1])
		if err != nil {
			return nil, fmt.Errorf("event %v: %w", i, err)
		}

		size, err := DigestSize(l.AlgorithmId)
		if err != nil {
			return nil, ar.NewInputError(fmt.Sprintf("event %v algorithm", i), ar.ErrMalformedInput, "%v", err)
		}
		if size != len(digest) {
			return nil, ar.NewInputError(fmt.Sprintf("event %v digest", i), ar.ErrMalformedInput,
				"%v digest must be %v bytes, got %v", AlgorithmName(l.AlgorithmId), size, len(digest))
		}
		if l.AlgorithmId != AlgSha384 {
			return nil, ar.NewInputError(fmt.Sprintf("event %v algorithm", i), ar.ErrMalformedInput,
				"RTMRs can only be extended with %v digests, got %v",
				AlgorithmName(AlgSha384), AlgorithmName(l.AlgorithmId))
		}

		name, ok := EventTypeName(l.Etype)
		if !ok {
			name = fmt.Sprintf("EV_UNKNOWN(0x%x)", l.Etype)
		}

		entry, err := ar.NewEventLogEntry(int(l.Rtmr), l.Etype, name, l.AlgorithmId, digest, l.Event)
		if err != nil {
			return nil, fmt.Errorf("event %v: %w", i, err)
		}

		logEntry(i, &entry)

		entries = append(entries, entry)
	}

	log.Debugf("Parsed %v JSON eventlog entries", len(entries))

	return entries, nil
}

// ParseDigestList parses a digest given as a list of byte values, such as
// "[12 255 0 ...]"
func ParseDigestList(s string) ([]byte, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return nil, ar.NewInputError("digest", ar.ErrMalformedInput,
			"expected byte list in brackets, got %q", s)
	}

	fields := strings.Fields(strings.Trim(trimmed, "[]"))
	digest := make([]byte, 0, len(fields))
	for _, f := range fields {
		b, err := strconv.ParseUint(strings.TrimSuffix(f, ","), 10, 8)
		if err != nil {
			return nil, ar.NewInputError("digest", ar.ErrMalformedInput, "invalid byte value %q", f)
		}
		digest = append(digest, byte(b))
	}

	return digest, nil
}
