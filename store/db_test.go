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

package store

import (
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
	"github.com/sirupsen/logrus"
)

func testResult(n int, success bool) *ar.VerificationResult {
	return &ar.VerificationResult{
		Type:           ar.VerificationResultType,
		Success:        success,
		Created:        fmt.Sprintf("2025-01-01T00:00:%02dZ", n),
		Targets:        []int{0, 1},
		ReportedSource: "quote",
		Registers: []ar.RegisterResult{
			{Index: 0, Name: "RTMR0", Calculated: "00", Reported: "00", Success: true},
			{Index: 1, Name: "RTMR1", Calculated: "01", Reported: "02", Success: success},
		},
	}
}

func TestDb(t *testing.T) {
	logrus.SetLevel(logrus.TraceLevel)

	path := filepath.Join(t.TempDir(), "results.db")

	db, err := NewDb(path, DefaultTable, 2)
	if err != nil {
		t.Fatalf("NewDb() error = %v", err)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := db.InsertResult(testResult(i, i%2 == 0))
		if err != nil {
			t.Fatalf("InsertResult() error = %v", err)
		}
		if len(id) != 64 {
			t.Fatalf("InsertResult() returned invalid id %q", id)
		}
		ids = append(ids, id)
	}

	// Only the two latest results must be kept
	stats, err := db.GetAllStatistics()
	if err != nil {
		t.Fatalf("GetAllStatistics() error = %v", err)
	}
	if len(stats) != 2 || stats[0].Id != ids[1] || stats[1].Id != ids[2] {
		t.Fatalf("GetAllStatistics() = %+v", stats)
	}
	if stats[0].Status != StatusFail || stats[1].Status != StatusSuccess || stats[0].Result != nil {
		t.Fatalf("GetAllStatistics() unexpected envelopes %+v, %+v", stats[0], stats[1])
	}

	all, err := db.GetAllResults()
	if err != nil {
		t.Fatalf("GetAllResults() error = %v", err)
	}
	if len(all) != 2 || !reflect.DeepEqual(all[1].Result, testResult(2, true)) {
		t.Fatalf("GetAllResults() = %+v", all)
	}

	latest, err := db.GetLatestResult()
	if err != nil {
		t.Fatalf("GetLatestResult() error = %v", err)
	}
	if len(latest) != 1 || latest[0].Id != ids[2] || latest[0].Source != "quote" {
		t.Fatalf("GetLatestResult() = %+v", latest)
	}

	byId, err := db.GetResultById(ids[1])
	if err != nil {
		t.Fatalf("GetResultById() error = %v", err)
	}
	if len(byId) != 1 || !reflect.DeepEqual(byId[0].Result, testResult(1, false)) {
		t.Fatalf("GetResultById() = %+v", byId)
	}

	evicted, err := db.GetResultById(ids[0])
	if err != nil {
		t.Fatalf("GetResultById() error = %v", err)
	}
	if len(evicted) != 0 {
		t.Fatalf("GetResultById() returned evicted result")
	}

	db.Close()

	// Reopening must keep the existing table
	db, err = NewDb(path, DefaultTable, 2)
	if err != nil {
		t.Fatalf("NewDb() reopen error = %v", err)
	}
	defer db.Close()
	stats, err = db.GetAllStatistics()
	if err != nil || len(stats) != 2 {
		t.Fatalf("GetAllStatistics() after reopen = %v, %v", stats, err)
	}
}

func TestNewDbInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")

	tests := []struct {
		name    string
		table   string
		maxRows int
	}{
		{"Invalid Table", "results; DROP TABLE x", 10},
		{"Empty Table", "", 10},
		{"Invalid Max Rows", DefaultTable, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDb(path, tt.table, tt.maxRows)
			if err == nil {
				t.Fatalf("NewDb() expected error")
			}
		})
	}
}
