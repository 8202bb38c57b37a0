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

package tdxdriver

import (
	"encoding/hex"
	"fmt"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
	"github.com/Fraunhofer-AISEC/mrverify/quote"
	"github.com/google/go-configfs-tsm/configfs/linuxtsm"
	"github.com/google/go-configfs-tsm/report"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("service", "tdxdriver")

// Size of the TD quote REPORTDATA field
const ReportDataLen = 64

// Fetches a quote via the configfs TSM report interface
var getReport = func(req *report.Request) ([]byte, error) {
	resp, err := linuxtsm.GetReport(req)
	if err != nil {
		return nil, err
	}
	return resp.OutBlob, nil
}

// GetQuote retrieves a TDX quote for the running trust domain. The quote
// REPORTDATA is nonce || userData, padded with zeros.
func GetQuote(nonce, userData []byte) ([]byte, error) {

	reportData, err := ReportData(nonce, userData)
	if err != nil {
		return nil, err
	}

	log.Debugf("Fetching TDX quote via configfs with report data: %v", hex.EncodeToString(reportData))

	req := &report.Request{
		InBlob:     reportData,
		GetAuxBlob: false,
	}
	raw, err := getReport(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get TDX quote via configfs: %w", err)
	}

	log.Debugf("Fetched TDX quote (%v bytes)", len(raw))

	return raw, nil
}

// GetRegisters retrieves a live quote and returns its RTMRs
func GetRegisters(nonce, userData []byte) (ar.RegisterBank, error) {
	raw, err := GetQuote(nonce, userData)
	if err != nil {
		return nil, err
	}
	q, err := quote.Decode(quote.TypeTdx, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode live quote: %w", err)
	}
	return q.ReportedRegisters(), nil
}

// ReportData composes the 64 byte REPORTDATA from nonce and user data
func ReportData(nonce, userData []byte) ([]byte, error) {
	if len(nonce)+len(userData) > ReportDataLen {
		return nil, ar.NewInputError("report data", ar.ErrMalformedInput,
			"nonce (%v bytes) and user data (%v bytes) exceed %v bytes",
			len(nonce), len(userData), ReportDataLen)
	}
	reportData := make([]byte, ReportDataLen)
	n := copy(reportData, nonce)
	copy(reportData[n:], userData)
	return reportData, nil
}
