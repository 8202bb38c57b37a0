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

package ima

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
	"github.com/sirupsen/logrus"
)

var (
	templateHash1 = strings.Repeat("a1", 48)
	templateHash2 = strings.Repeat("b2", 48)
)

func TestParseRuntimeLog(t *testing.T) {
	logrus.SetLevel(logrus.TraceLevel)

	tests := []struct {
		name    string
		data    string
		want    []ar.RuntimeEntry
		wantErr bool
	}{
		{
			name: "Valid",
			data: "10 2 " + templateHash1 + " ima-ng sha384:0011 boot_aggregate\n" +
				"\n" +
				"10 2 " + templateHash2 + " ima-ng sha384:2233 /usr/bin/my file\r\n",
			want: []ar.RuntimeEntry{
				{
					Index:        2,
					TemplateHash: templateHash1,
					TemplateName: "ima-ng",
					Payload:      []string{"sha384:0011", "boot_aggregate"},
					Raw:          "10 2 " + templateHash1 + " ima-ng sha384:0011 boot_aggregate",
				},
				{
					Index:        2,
					TemplateHash: templateHash2,
					TemplateName: "ima-ng",
					Payload:      []string{"sha384:2233", "/usr/bin/my", "file"},
					Raw:          "10 2 " + templateHash2 + " ima-ng sha384:2233 /usr/bin/my file",
				},
			},
		},
		{
			name:    "Short Template Hash",
			data:    "10 2 " + templateHash1[:94] + " ima-ng sha384:0011 boot_aggregate\n",
			wantErr: true,
		},
		{
			name:    "Non Hex Template Hash",
			data:    "10 2 " + strings.Repeat("zz", 48) + " ima-ng sha384:0011 boot_aggregate\n",
			wantErr: true,
		},
		{
			name:    "Invalid Index",
			data:    "10 x " + templateHash1 + " ima-ng sha384:0011 boot_aggregate\n",
			wantErr: true,
		},
		{
			name:    "Missing Fields",
			data:    "10 2 " + templateHash1 + "\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRuntimeLog([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRuntimeLog() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ar.ErrMalformedInput) {
					t.Errorf("ParseRuntimeLog() error = %v, want ErrMalformedInput", err)
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseRuntimeLog() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseReferenceLog(t *testing.T) {
	data := "# register template-hash template content-hash path\n" +
		"2 " + templateHash1 + " ima-ng sha384:0011 /usr/bin/bash\n" +
		"2 " + templateHash2 + " ima-ng\n"

	got, err := ParseReferenceLog([]byte(data))
	if err != nil {
		t.Fatalf("ParseReferenceLog() error = %v", err)
	}
	want := []ar.ReferenceEntry{
		{
			Index:        2,
			TemplateHash: templateHash1,
			TemplateName: "ima-ng",
			ContentHash:  "sha384:0011",
			Description:  "/usr/bin/bash",
		},
		{
			Index:        2,
			TemplateHash: templateHash2,
			TemplateName: "ima-ng",
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseReferenceLog() = %+v, want %+v", got, want)
	}

	if _, err := ParseReferenceLog([]byte("2 " + templateHash1 + "\n")); !errors.Is(err, ar.ErrMalformedInput) {
		t.Errorf("ParseReferenceLog() error = %v, want ErrMalformedInput", err)
	}
}

func TestReadRuntimeLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ascii_runtime_measurements")
	line := "10 2 " + templateHash1 + " ima-ng sha384:0011 boot_aggregate\n"
	if err := os.WriteFile(path, []byte(line), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	got, err := ReadRuntimeLog(path)
	if err != nil {
		t.Fatalf("ReadRuntimeLog() error = %v", err)
	}
	if len(got) != 1 || got[0].TemplateHash != templateHash1 {
		t.Errorf("ReadRuntimeLog() = %+v", got)
	}

	if _, err := ReadRuntimeLog(filepath.Join(dir, "missing")); err == nil {
		t.Errorf("ReadRuntimeLog() with missing file expected error")
	}
}

func TestRtmrEnabled(t *testing.T) {
	tests := []struct {
		name    string
		cmdline string
		want    bool
	}{
		{
			name:    "Enabled",
			cmdline: "BOOT_IMAGE=/vmlinuz root=/dev/vda1 ima_hash=sha384 console=ttyS0\n",
			want:    true,
		},
		{
			name:    "Other Hash",
			cmdline: "BOOT_IMAGE=/vmlinuz ima_hash=sha256",
			want:    false,
		},
		{
			name:    "Prefix Only",
			cmdline: "ima_hash=sha3840",
			want:    false,
		},
		{
			name:    "Empty",
			cmdline: "",
			want:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RtmrEnabled(tt.cmdline); got != tt.want {
				t.Errorf("RtmrEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}
