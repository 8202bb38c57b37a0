// Copyright (c) 2024 Fraunhofer AISEC
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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("service", "ar")

// Serializer is a generic interface providing methods for data serialization and
// de-serialization. This enables to output verification results in
// different formats, such as JSON or CBOR
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	String() string
}

func DetectSerialization(payload []byte) (Serializer, error) {
	if json.Valid(payload) {
		return JsonSerializer{}, nil
	} else if err := cbor.Valid(payload); err == nil {
		return CborSerializer{}, nil
	} else {
		return nil, fmt.Errorf("failed to detect serialization")
	}
}

// NewSerializer returns the serializer with the given name (json or cbor)
func NewSerializer(name string) (Serializer, error) {
	switch strings.ToLower(name) {
	case "json":
		return JsonSerializer{}, nil
	case "cbor":
		return CborSerializer{}, nil
	default:
		return nil, fmt.Errorf("serializer %q not supported (possible: json, cbor)", name)
	}
}
