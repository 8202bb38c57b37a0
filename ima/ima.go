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

package ima

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_ASCII_RUNTIME_MEASUREMENTS = "/sys/kernel/security/integrity/ima/ascii_runtime_measurements"
	DEFAULT_CMDLINE                    = "/proc/cmdline"

	// Length of a hex encoded SHA384 template hash
	TemplateHashLen = 2 * ar.DigestLen

	// Kernel parameter which makes IMA extend its measurements into RTMR2
	rtmrHashParam = "ima_hash=sha384"
)

var log = logrus.WithField("service", "ima")

// ReadRuntimeLog reads and parses the IMA ascii runtime measurement list
func ReadRuntimeLog(path string) ([]ar.RuntimeEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load IMA runtime measurements from %v: %w", path, err)
	}
	return ParseRuntimeLog(data)
}

// ParseRuntimeLog parses the IMA ascii runtime measurement list. Each line
// consists of whitespace separated fields: PCR, register index, template hash,
// template name and the template specific payload.
func ParseRuntimeLog(data []byte) ([]ar.RuntimeEntry, error) {

	entries := make([]ar.RuntimeEntry, 0)

	err := forEachLine(data, func(lineNo int, line string) error {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return ar.NewInputError(fmt.Sprintf("runtime line %v", lineNo), ar.ErrMalformedInput,
				"expected at least 4 fields, got %v", len(fields))
		}

		index, err := strconv.Atoi(fields[1])
		if err != nil {
			return ar.NewInputError(fmt.Sprintf("runtime line %v index", lineNo), ar.ErrMalformedInput,
				"invalid register index %q", fields[1])
		}

		if err := CheckTemplateHash(fields[2]); err != nil {
			return fmt.Errorf("runtime line %v: %w", lineNo, err)
		}

		entry := ar.RuntimeEntry{
			Index:        index,
			TemplateHash: fields[2],
			TemplateName: fields[3],
			Payload:      fields[4:],
			Raw:          line,
		}

		log.Tracef("Runtime entry %v: %v %v %v", lineNo, ar.RtmrName(index),
			entry.TemplateName, entry.TemplateHash)

		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debugf("Parsed %v IMA runtime entries", len(entries))

	return entries, nil
}

// ReadReferenceLog reads and parses a file with reference runtime measurements
func ReadReferenceLog(path string) ([]ar.ReferenceEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference measurements from %v: %w", path, err)
	}
	return ParseReferenceLog(data)
}

// ParseReferenceLog parses reference runtime measurements. Each line consists
// of whitespace separated fields: register index, template hash, template
// name, content hash and a description such as the file path. Content hash and
// description are optional. Lines starting with '#' are ignored.
func ParseReferenceLog(data []byte) ([]ar.ReferenceEntry, error) {

	refs := make([]ar.ReferenceEntry, 0)

	err := forEachLine(data, func(lineNo int, line string) error {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			return nil
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			return ar.NewInputError(fmt.Sprintf("reference line %v", lineNo), ar.ErrMalformedInput,
				"expected at least 3 fields, got %v", len(fields))
		}

		index, err := strconv.Atoi(fields[0])
		if err != nil {
			return ar.NewInputError(fmt.Sprintf("reference line %v index", lineNo), ar.ErrMalformedInput,
				"invalid register index %q", fields[0])
		}

		ref := ar.ReferenceEntry{
			Index:        index,
			TemplateHash: fields[1],
			TemplateName: fields[2],
		}
		if len(fields) > 3 {
			ref.ContentHash = fields[3]
		}
		if len(fields) > 4 {
			ref.Description = strings.Join(fields[4:], " ")
		}

		refs = append(refs, ref)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debugf("Parsed %v reference entries", len(refs))

	return refs, nil
}

// CheckTemplateHash checks that s is a hex encoded SHA384 template hash
func CheckTemplateHash(s string) error {
	if len(s) != TemplateHashLen {
		return ar.NewInputError("template hash", ar.ErrMalformedInput,
			"expected %v hex characters, got %v", TemplateHashLen, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return ar.NewInputError("template hash", ar.ErrMalformedInput, "invalid hex: %v", err)
	}
	return nil
}

// RtmrEnabled returns true if the kernel command line configures IMA to
// extend its measurements into the RTMR
func RtmrEnabled(cmdline string) bool {
	for _, param := range strings.Fields(cmdline) {
		if param == rtmrHashParam {
			return true
		}
	}
	return false
}

// ReadRtmrEnabled reads the kernel command line from path and reports
// whether IMA extends its measurements into the RTMR
func ReadRtmrEnabled(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read kernel command line: %w", err)
	}
	enabled := RtmrEnabled(string(data))
	if !enabled {
		log.Infof("IMA over RTMR not enabled (%v not set)", rtmrHashParam)
	}
	return enabled, nil
}

func forEachLine(data []byte, f func(lineNo int, line string) error) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := f(lineNo, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read lines: %w", err)
	}
	return nil
}
