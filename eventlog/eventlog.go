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
	"strings"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
)

// Supported boot event log formats
const (
	FormatCcel = "ccel"
	FormatJson = "json"
)

// Parse parses a boot event log in the specified format
func Parse(data []byte, format string) ([]ar.EventLogEntry, error) {
	switch strings.ToLower(format) {
	case FormatCcel, "":
		return ParseCcel(data)
	case FormatJson:
		return ParseJson(data)
	default:
		return nil, fmt.Errorf("unsupported eventlog format %q (possible: %v, %v)",
			format, FormatCcel, FormatJson)
	}
}
