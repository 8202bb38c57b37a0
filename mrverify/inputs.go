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

package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
	"github.com/Fraunhofer-AISEC/mrverify/eventlog"
	"github.com/Fraunhofer-AISEC/mrverify/ima"
	"github.com/Fraunhofer-AISEC/mrverify/internal"
	"github.com/Fraunhofer-AISEC/mrverify/quote"
	"github.com/Fraunhofer-AISEC/mrverify/tdxdriver"
	"github.com/Fraunhofer-AISEC/mrverify/verifier"
)

const (
	sourceFlags = "command line"
	sourceFile  = "reported file"
	sourceQuote = "quote"
	sourceLive  = "live quote"

	nonceLen = 32
)

// includeRuntime returns whether the runtime measurements are part of RTMR2.
// If not configured, this is detected from the kernel command line.
func (c *Config) includeRuntime() bool {
	if c.IncludeRuntime != nil {
		return *c.IncludeRuntime
	}
	enabled, err := ima.ReadRtmrEnabled(c.Cmdline)
	if err != nil {
		log.Warnf("Failed to detect IMA RTMR support, runtime measurements not included: %v", err)
		return false
	}
	log.Debugf("Detected IMA measuring into %v: %v", ar.RtmrName(ar.RuntimeRtmr), enabled)
	return enabled
}

func readBootLog(c *Config) ([]ar.EventLogEntry, error) {
	path, format := c.bootLogSource()
	log.Debugf("Reading %v boot event log %v", format, path)
	data, err := internal.GetFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read boot event log: %v", ar.ErrMissingData, err)
	}
	entries, err := eventlog.Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse boot event log %v: %w", path, err)
	}
	return entries, nil
}

// readRuntimeLog reads the runtime log if it is needed for replay or for
// the verification of reference measurements
func readRuntimeLog(c *Config, includeRuntime bool) ([]ar.RuntimeEntry, error) {
	needed := (includeRuntime && internal.ContainsInt(ar.RuntimeRtmr, c.Rtmrs)) || c.Reference != ""
	if !needed {
		return nil, nil
	}
	log.Debugf("Reading IMA runtime log %v", c.Ima)
	entries, err := ima.ReadRuntimeLog(c.Ima)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read runtime log: %v", ar.ErrMissingData, err)
	}
	return entries, nil
}

func readReferences(c *Config) ([]ar.ReferenceEntry, error) {
	if c.Reference == "" {
		return nil, nil
	}
	refs, err := ima.ReadReferenceLog(c.Reference)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference file: %w", err)
	}
	return refs, nil
}

// readReported retrieves the reported RTMR values from the first configured
// source: command line / config values, reported file, quote file, live quote
func readReported(c *Config) (ar.RegisterBank, string, error) {
	switch {
	case len(c.Reported) > 0:
		bank, err := parseReported(c.Reported)
		return bank, sourceFlags, err

	case c.ReportedFile != "":
		data, err := os.ReadFile(c.ReportedFile)
		if err != nil {
			return nil, "", fmt.Errorf("%w: failed to read reported file: %v", ar.ErrMissingData, err)
		}
		m := map[string]string{}
		err = json.Unmarshal(data, &m)
		if err != nil {
			return nil, "", ar.NewInputError("reported file", ar.ErrMalformedInput, "%v", err)
		}
		bank, err := parseReported(m)
		return bank, sourceFile, err

	case c.Quote != "":
		data, err := os.ReadFile(c.Quote)
		if err != nil {
			return nil, "", fmt.Errorf("%w: failed to read quote: %v", ar.ErrMissingData, err)
		}
		typ, err := quote.ParseType(c.QuoteType)
		if err != nil {
			return nil, "", err
		}
		q, err := quote.Decode(typ, data)
		if err != nil {
			return nil, "", err
		}
		return q.ReportedRegisters(), sourceQuote, nil

	case c.Live:
		nonce, err := getNonce(c)
		if err != nil {
			return nil, "", err
		}
		bank, err := tdxdriver.GetRegisters(nonce, nil)
		return bank, sourceLive, err

	default:
		return nil, "", ar.NewInputError("reported", ar.ErrMissingData,
			"no source for reported RTMR values configured (use --%v, --%v, --%v or --%v)",
			reportedFlag, reportedFileFlag, quoteFlag, liveFlag)
	}
}

// parseReportedFlags parses a list of index=base64 pairs
func parseReportedFlags(values []string) (map[string]string, error) {
	m := make(map[string]string, len(values))
	for _, v := range values {
		index, value, ok := strings.Cut(v, "=")
		if !ok {
			return nil, ar.NewInputError("reported", ar.ErrMalformedInput,
				"expected <index>=<base64>, got %q", v)
		}
		m[strings.TrimSpace(index)] = value
	}
	return m, nil
}

// parseReported converts a map of RTMR index to base64 encoded value into
// a register bank
func parseReported(m map[string]string) (ar.RegisterBank, error) {
	bank := make(ar.RegisterBank, len(m))
	for k, v := range m {
		index, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, ar.NewInputError("reported", ar.ErrMalformedInput, "invalid index %q", k)
		}
		if err := ar.CheckRtmrIndex("reported", index); err != nil {
			return nil, err
		}
		d, err := ar.DigestFromBase64(v)
		if err != nil {
			return nil, fmt.Errorf("failed to decode reported %v: %w", ar.RtmrName(index), err)
		}
		bank[index] = d
	}
	return bank, nil
}

func getNonce(c *Config) ([]byte, error) {
	if c.Nonce != "" {
		nonce, err := hex.DecodeString(c.Nonce)
		if err != nil {
			return nil, ar.NewInputError("nonce", ar.ErrMalformedInput, "invalid hex: %v", err)
		}
		return nonce, nil
	}
	nonce := make([]byte, nonceLen)
	_, err := rand.Read(nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}

// getInput collects all data required for a verification run
func getInput(c *Config) (*verifier.Input, error) {

	includeRuntime := c.includeRuntime()

	boot, err := readBootLog(c)
	if err != nil {
		return nil, err
	}
	runtime, err := readRuntimeLog(c, includeRuntime)
	if err != nil {
		return nil, err
	}
	refs, err := readReferences(c)
	if err != nil {
		return nil, err
	}
	reported, source, err := readReported(c)
	if err != nil {
		return nil, fmt.Errorf("failed to get reported RTMRs: %w", err)
	}

	return &verifier.Input{
		BootEntries:    boot,
		RuntimeEntries: runtime,
		References:     refs,
		Reported:       reported,
		ReportedSource: source,
		Targets:        c.Rtmrs,
		IncludeRuntime: includeRuntime,
	}, nil
}
