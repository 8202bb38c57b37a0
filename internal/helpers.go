// Copyright (c) 2021 Fraunhofer AISEC
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

package internal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("service", "internal")

// Number of bytes shown on a single hex dump line
const hexDumpWidth = 16

func ContainsInt(elem int, list []int) bool {
	for _, i := range list {
		if i == elem {
			return true
		}
	}
	return false
}

func StrToInt(strs []string) ([]int, error) {
	ints := make([]int, len(strs))
	for i, s := range strs {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", s, err)
		}
		ints[i] = n
	}
	return ints, nil
}

// ParseIndexList converts a comma-separated list such as "0,1,3" into
// register indices
func ParseIndexList(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty index list")
	}
	return StrToInt(strings.Split(s, ","))
}

// HexDump renders data in lines of 16 bytes, each line prefixed with the
// offset and followed by the printable ASCII representation, e.g.
//
//	00000000  53 70 65 63 20 49 44 20 45 76 65 6E 74 30 33 00  Spec ID Event03.
func HexDump(data []byte) []string {
	lines := make([]string, 0, (len(data)+hexDumpWidth-1)/hexDumpWidth)

	for offset := 0; offset < len(data); offset += hexDumpWidth {
		end := offset + hexDumpWidth
		if end > len(data) {
			end = len(data)
		}
		chunk := data[offset:end]

		var hexPart, asciiPart strings.Builder
		fmt.Fprintf(&hexPart, "%08X  ", offset)
		for _, b := range chunk {
			fmt.Fprintf(&hexPart, "%02X ", b)
			if b >= 0x20 && b <= 0x7e {
				asciiPart.WriteByte(b)
			} else {
				asciiPart.WriteByte('.')
			}
		}
		hexPart.WriteString(strings.Repeat("   ", hexDumpWidth-len(chunk)))

		lines = append(lines, hexPart.String()+" "+asciiPart.String())
	}

	return lines
}

// LogHexDump writes the hex dump of data line by line at trace level
func LogHexDump(l *logrus.Entry, data []byte) {
	if !l.Logger.IsLevelEnabled(logrus.TraceLevel) {
		return
	}
	for _, line := range HexDump(data) {
		l.Trace(line)
	}
}
