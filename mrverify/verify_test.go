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
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
	"github.com/Fraunhofer-AISEC/mrverify/eventlog"
	"github.com/Fraunhofer-AISEC/mrverify/quote"
	"github.com/Fraunhofer-AISEC/mrverify/store"
	"github.com/Fraunhofer-AISEC/mrverify/verifier"
	"github.com/sirupsen/logrus"
)

const (
	templateHash1 = "0102030405060708091011121314151617181920212223242526272829303132" +
		"33343536373839404142434445464748"
	templateHash2 = "a1a2a3a4a5a6a7a8a9aaabacadaeafb0b1b2b3b4b5b6b7b8b9babbbcbdbebfc0" +
		"c1c2c3c4c5c6c7c8c9cacbcccdcecfd0"
)

type testEnv struct {
	dir      string
	config   *Config
	reported ar.RegisterBank
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %v: %v", path, err)
	}
	return path
}

// setupEnv writes a JSON boot event log, a runtime log, a reference file and
// the reported RTMR values matching the logs
func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	logrus.SetLevel(logrus.TraceLevel)

	dir := t.TempDir()

	logs := eventlog.JsonEventLogs{}
	for i := 0; i < 6; i++ {
		d := bytes.Repeat([]byte{byte(i + 1)}, ar.DigestLen)
		logs.EventLogs = append(logs.EventLogs, eventlog.JsonEventLog{
			Rtmr:        uint32(i % ar.NumRtmrs),
			Etype:       eventlog.EvEfiBootServicesApplication,
			DigestCount: 1,
			Digests:     []string{fmt.Sprintf("%v", d)},
			AlgorithmId: eventlog.AlgSha384,
		})
	}
	data, err := json.Marshal(logs)
	if err != nil {
		t.Fatalf("failed to marshal eventlog: %v", err)
	}
	eventlogPath := writeFile(t, dir, "eventlog.json", data)

	runtimeLog := fmt.Sprintf("10 2 %v ima-ng sha384:00 boot_aggregate\n"+
		"10 2 %v ima-ng sha384:01 /usr/bin/init\n", templateHash1, templateHash2)
	imaPath := writeFile(t, dir, "ascii_runtime_measurements", []byte(runtimeLog))

	refs := fmt.Sprintf("# register template-hash template\n2 %v ima-ng sha384:01 /usr/bin/init\n",
		templateHash2)
	refPath := writeFile(t, dir, "reference", []byte(refs))

	includeRuntime := true
	c := defaultConfig()
	c.EventlogJson = eventlogPath
	c.Ima = imaPath
	c.IncludeRuntime = &includeRuntime
	c.Reference = refPath
	c.Out = filepath.Join(dir, "result.json")

	// Calculate the expected values independently of the CLI input handling
	boot, err := eventlog.ParseJson(data)
	if err != nil {
		t.Fatalf("failed to parse eventlog: %v", err)
	}
	runtime := []ar.RuntimeEntry{{Index: 2, TemplateHash: templateHash1}, {Index: 2, TemplateHash: templateHash2}}
	reported, err := verifier.Replay(boot, runtime, c.Rtmrs, true)
	if err != nil {
		t.Fatalf("failed to replay: %v", err)
	}

	m := map[string]string{}
	for i, v := range reported {
		m[fmt.Sprint(i)] = encodeDigest(v)
	}
	data, err = json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal reported values: %v", err)
	}
	c.ReportedFile = writeFile(t, dir, "reported.json", data)

	return &testEnv{dir: dir, config: c, reported: reported}
}

func encodeDigest(d ar.Digest) string {
	return base64.StdEncoding.EncodeToString(d[:])
}

func readResult(t *testing.T, path string) *ar.VerificationResult {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read result: %v", err)
	}
	result := new(ar.VerificationResult)
	if err := json.Unmarshal(data, result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	return result
}

func TestRunVerify(t *testing.T) {
	env := setupEnv(t)
	c := env.config
	c.Db = filepath.Join(env.dir, "results.db")

	err := runVerify(c)
	if err != nil {
		t.Fatalf("runVerify() error = %v", err)
	}

	result := readResult(t, c.Out)
	if !result.Success || len(result.Registers) != ar.NumRtmrs || result.ReportedSource != sourceFile {
		t.Fatalf("runVerify() result = %+v", result)
	}
	if len(result.Selected) != 1 || !result.Selected[0].Success {
		t.Fatalf("runVerify() selected = %+v", result.Selected)
	}

	db, err := store.NewDb(c.Db, c.DbTable, c.DbMaxRows)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	stored, err := db.GetAllResults()
	if err != nil {
		t.Fatalf("failed to query database: %v", err)
	}
	if len(stored) != 1 || stored[0].Status != store.StatusSuccess {
		t.Fatalf("stored results = %+v", stored)
	}
}

func TestRunVerifyMismatch(t *testing.T) {
	env := setupEnv(t)
	c := env.config

	// Without runtime measurements RTMR2 must not match
	includeRuntime := false
	c.IncludeRuntime = &includeRuntime

	err := runVerify(c)
	if !errors.Is(err, errVerificationFailed) {
		t.Fatalf("runVerify() error = %v, want %v", err, errVerificationFailed)
	}

	result := readResult(t, c.Out)
	if result.Success || result.IncludeRuntime {
		t.Fatalf("runVerify() result = %+v", result)
	}
	for _, r := range result.Registers {
		if r.Success != (r.Index != ar.RuntimeRtmr) {
			t.Fatalf("unexpected register result %+v", r)
		}
	}
	if len(result.Selected) != 0 {
		t.Fatalf("selected measurements must not be verified on mismatch")
	}
}

func TestRunVerifyReportedFlags(t *testing.T) {
	env := setupEnv(t)
	c := env.config
	c.ReportedFile = ""
	c.Rtmrs = []int{0, 1}
	c.Reported = map[string]string{
		"0": encodeDigest(env.reported[0]),
		"1": encodeDigest(env.reported[1]),
	}

	err := runVerify(c)
	if err != nil {
		t.Fatalf("runVerify() error = %v", err)
	}
	result := readResult(t, c.Out)
	if !result.Success || result.ReportedSource != sourceFlags || len(result.Registers) != 2 {
		t.Fatalf("runVerify() result = %+v", result)
	}

	// A target without reported value is an error
	c.Rtmrs = []int{0, 1, 3}
	err = runVerify(c)
	if !errors.Is(err, ar.ErrMissingData) {
		t.Fatalf("runVerify() error = %v, want %v", err, ar.ErrMissingData)
	}
}

func TestRunReplay(t *testing.T) {
	env := setupEnv(t)
	c := env.config
	c.Format = "text"

	err := runReplay(c)
	if err != nil {
		t.Fatalf("runReplay() error = %v", err)
	}
	data, err := os.ReadFile(c.Out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) != ar.NumRtmrs {
		t.Fatalf("runReplay() output = %q", data)
	}
	want := fmt.Sprintf("RTMR2: %v", env.reported[2])
	if lines[2] != want {
		t.Fatalf("runReplay() line = %q, want %q", lines[2], want)
	}

	if _, err := formatBank(env.reported, "yaml"); err == nil {
		t.Fatalf("formatBank() expected error for unsupported format")
	}
}

func TestGenerateSchemas(t *testing.T) {
	schemas, err := generateSchemas()
	if err != nil {
		t.Fatalf("generateSchemas() error = %v", err)
	}
	for _, name := range []string{"VerificationResult", "ResultEnvelope", "Config"} {
		data, ok := schemas[name]
		if !ok || !json.Valid(data) {
			t.Fatalf("generateSchemas() missing valid schema %v", name)
		}
	}

	dir := filepath.Join(t.TempDir(), "schema")
	if err := runSchema(dir); err != nil {
		t.Fatalf("runSchema() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "VerificationResult.json")); err != nil {
		t.Fatalf("runSchema() did not write schema: %v", err)
	}
}

// buildQuote assembles a TDX quote carrying the given RTMR values and empty
// certification data
func buildQuote(t *testing.T, rtmrs ar.RegisterBank) []byte {
	t.Helper()

	header := quote.TdxQuoteHeader{Version: 4, AttestationKeyType: 2, TeeType: 0x81}
	var body quote.TdReportBody
	body.RtMr0 = rtmrs[0]
	body.RtMr1 = rtmrs[1]
	body.RtMr2 = rtmrs[2]
	body.RtMr3 = rtmrs[3]

	buf := new(bytes.Buffer)
	for _, v := range []any{
		header,
		body,
		uint32(64 + 64 + 2 + 4), // auth data length
		[64]byte{},              // signature
		[64]byte{},              // attestation key
		uint16(6),               // certification data type
		uint32(0),               // certification data size
	} {
		if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
			t.Fatalf("failed to build quote: %v", err)
		}
	}
	return buf.Bytes()
}

func TestRunVerifyQuote(t *testing.T) {
	tests := []struct {
		name      string
		quoteType string
		wantErr   error
	}{
		{"TDX", "TDX", nil},
		{"TDX Lower Case", "tdx", nil},
		{"TPM Unsupported", "tpm", ar.ErrUnsupportedQuote},
		{"Unknown Type", "snp", ar.ErrUnsupportedQuote},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupEnv(t)
			c := env.config
			c.ReportedFile = ""
			c.Quote = writeFile(t, env.dir, "quote.bin", buildQuote(t, env.reported))
			c.QuoteType = tt.quoteType

			err := runVerify(c)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("runVerify() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("runVerify() error = %v", err)
			}
			result := readResult(t, c.Out)
			if !result.Success || result.ReportedSource != sourceQuote {
				t.Fatalf("runVerify() result = %+v", result)
			}
		})
	}
}

func TestRunQuote(t *testing.T) {
	env := setupEnv(t)
	c := env.config
	c.Quote = writeFile(t, env.dir, "quote.bin", buildQuote(t, env.reported))
	c.Format = "text"

	err := runQuote(c)
	if err != nil {
		t.Fatalf("runQuote() error = %v", err)
	}
	data, err := os.ReadFile(c.Out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !strings.Contains(string(data), env.reported[2].String()) {
		t.Fatalf("runQuote() output misses RTMR2: %q", data)
	}

	c.QuoteType = "TPM"
	if err := runQuote(c); !errors.Is(err, ar.ErrUnsupportedQuote) {
		t.Fatalf("runQuote() error = %v, want %v", err, ar.ErrUnsupportedQuote)
	}
}
