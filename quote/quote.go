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

package quote

import (
	"fmt"
	"strings"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("service", "quote")

// Type is the discriminant of the supported quote formats
type Type string

const (
	TypeTdx Type = "TDX"
	TypeTpm Type = "TPM"
)

// Quote is a decoded hardware quote which reports measurement register values
type Quote interface {
	Type() Type
	ReportedRegisters() ar.RegisterBank
}

// Field is a single named, printable quote field
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ParseType parses the quote type case-insensitively
func ParseType(s string) (Type, error) {
	switch Type(strings.ToUpper(strings.TrimSpace(s))) {
	case TypeTdx:
		return TypeTdx, nil
	case TypeTpm:
		return TypeTpm, nil
	default:
		return "", ar.NewInputError("quote type", ar.ErrUnsupportedQuote, "%q", s)
	}
}

// Decode decodes a raw quote of the given type
func Decode(typ Type, raw []byte) (Quote, error) {
	switch typ {
	case TypeTdx:
		q, err := DecodeTdx(raw)
		if err != nil {
			return nil, err
		}
		return q, nil
	case TypeTpm:
		q, err := DecodeTpm(raw)
		if err != nil {
			return nil, err
		}
		return q, nil
	default:
		return nil, fmt.Errorf("%w: %q", ar.ErrUnsupportedQuote, typ)
	}
}

// TpmQuote is a placeholder for TPM quotes. TPM PCRs cannot be compared
// against replayed RTMR values, thus decoding always fails.
type TpmQuote struct{}

func DecodeTpm(raw []byte) (*TpmQuote, error) {
	return nil, ar.NewInputError("quote", ar.ErrUnsupportedQuote,
		"TPM quotes (%v bytes) cannot be used for RTMR verification", len(raw))
}

func (q *TpmQuote) Type() Type {
	return TypeTpm
}

func (q *TpmQuote) ReportedRegisters() ar.RegisterBank {
	return ar.RegisterBank{}
}
