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

// EventLogEntry is a single boot time event attributed to an RTMR
type EventLogEntry struct {
	Index       int     `json:"index" cbor:"0,keyasint"`
	EventType   uint32  `json:"eventType" cbor:"1,keyasint"`
	EventName   string  `json:"eventName,omitempty" cbor:"2,keyasint,omitempty"`
	AlgorithmId uint16  `json:"algorithmId" cbor:"3,keyasint"`
	Digest      HexByte `json:"digest" cbor:"4,keyasint"`
	Event       HexByte `json:"event,omitempty" cbor:"5,keyasint,omitempty"`
}

// NewEventLogEntry creates a boot event log entry. The index must denote an
// RTMR and the digest must be a SHA384 digest.
func NewEventLogEntry(index int, eventType uint32, eventName string, algorithmId uint16,
	digest, event []byte,
) (EventLogEntry, error) {

	if err := CheckRtmrIndex("event index", index); err != nil {
		return EventLogEntry{}, err
	}
	if len(digest) != DigestLen {
		return EventLogEntry{}, NewInputError("event digest", ErrMalformedInput,
			"expected %v bytes, got %v", DigestLen, len(digest))
	}

	e := EventLogEntry{
		Index:       index,
		EventType:   eventType,
		EventName:   eventName,
		AlgorithmId: algorithmId,
		Digest:      append(HexByte(nil), digest...),
	}
	if len(event) > 0 {
		e.Event = append(HexByte(nil), event...)
	}
	return e, nil
}

// RuntimeEntry is a single line of the IMA ascii runtime measurement list
type RuntimeEntry struct {
	Index        int      `json:"index" cbor:"0,keyasint"`
	TemplateHash string   `json:"templateHash" cbor:"1,keyasint"`
	TemplateName string   `json:"templateName" cbor:"2,keyasint"`
	Payload      []string `json:"payload,omitempty" cbor:"3,keyasint,omitempty"`
	Raw          string   `json:"-" cbor:"-"`
}

// ReferenceEntry is a single line of a reference (golden) measurement file
type ReferenceEntry struct {
	Index        int    `json:"index" cbor:"0,keyasint"`
	TemplateHash string `json:"templateHash" cbor:"1,keyasint"`
	TemplateName string `json:"templateName" cbor:"2,keyasint"`
	ContentHash  string `json:"contentHash,omitempty" cbor:"3,keyasint,omitempty"`
	Description  string `json:"description,omitempty" cbor:"4,keyasint,omitempty"`
}
