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
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
	"github.com/google/go-tdx-guest/abi"
	pb "github.com/google/go-tdx-guest/proto/tdx"
)

const (
	QuoteHeaderLen  = 48
	TdReportBodyLen = 584
	// Header, body and the auth data length field
	MinQuoteLen = QuoteHeaderLen + TdReportBodyLen + 4

	quoteSignatureLen = 64
	attestationKeyLen = 64
	// Signature, attestation key, certification data type and size
	authDataFixedLen = quoteSignatureLen + attestationKeyLen + 2 + 4

	quoteVersion4 = 4
	teeTypeTdx    = 0x81
)

// Sizes of the TD report body fields in wire order
var tdReportBodyFields = []struct {
	name string
	size int
}{
	{"TEE_TCB_SVN", 16},
	{"MRSEAM", 48},
	{"MRSIGNERSEAM", 48},
	{"SEAMATTRIBUTES", 8},
	{"TDATTRIBUTES", 8},
	{"XFAM", 8},
	{"MRTD", 48},
	{"MRCONFIGID", 48},
	{"MROWNER", 48},
	{"MROWNERCONFIG", 48},
	{"RTMR0", 48},
	{"RTMR1", 48},
	{"RTMR2", 48},
	{"RTMR3", 48},
	{"REPORTDATA", 64},
}

func init() {
	sum := 0
	for _, f := range tdReportBodyFields {
		sum += f.size
	}
	if sum != TdReportBodyLen {
		panic(fmt.Sprintf("TD report body fields sum up to %v bytes, expected %v", sum, TdReportBodyLen))
	}
	if s := binary.Size(TdReportBody{}); s != TdReportBodyLen {
		panic(fmt.Sprintf("TD report body struct has %v bytes, expected %v", s, TdReportBodyLen))
	}
	if s := binary.Size(TdxQuoteHeader{}); s != QuoteHeaderLen {
		panic(fmt.Sprintf("TDX quote header struct has %v bytes, expected %v", s, QuoteHeaderLen))
	}
}

// TDX quote V4: Intel TDX DCAP: Quote Generation Library and Quote Verification Library
// A.3.1. Quote Header (48 bytes)
type TdxQuoteHeader struct {
	Version            uint16
	AttestationKeyType uint16 // 2: ECDSA-256-with-P-256 curve
	TeeType            uint32 // 0x00000081: TDX
	QESVN              uint16 // RESERVED
	PCESVN             uint16 // RESERVED
	QEVendorID         [16]byte
	UserData           [20]byte
}

// A.3.2. TD Quote Body
type TdReportBody struct {
	TeeTcbSvn      [16]byte // Describes the TCB of TDX
	MrSeam         [48]byte // Measurement of the TDX Module
	MrSignerSeam   [48]byte // Zero for the Intel TDX Module
	SeamAttributes [8]byte
	TdAttributes   [8]byte
	XFAM           [8]byte
	MrTd           [48]byte // Measurements of the initial contents of the TD
	MrConfigId     [48]byte
	MrOwner        [48]byte
	MrOwnerConfig  [48]byte
	RtMr0          [48]byte
	RtMr1          [48]byte
	RtMr2          [48]byte
	RtMr3          [48]byte
	ReportData     [64]byte
}

// A.3.8. ECDSA 256-bit Quote Signature Data Structure. The certification
// data payload is kept opaque.
type TdxQuoteAuthData struct {
	QuoteSignature      [64]byte
	ECDSAAttestationKey [64]byte
	CertDataType        uint16
	CertDataSize        uint32
	CertData            []byte
}

// TdxQuote is a decoded TDX quote version 4
type TdxQuote struct {
	Header      TdxQuoteHeader
	Body        TdReportBody
	AuthDataLen uint32
	AuthData    TdxQuoteAuthData
	raw         []byte
}

// DecodeTdx decodes a TDX quote. The length of the quote must exactly match
// the sizes declared within the quote.
func DecodeTdx(raw []byte) (*TdxQuote, error) {

	if len(raw) < MinQuoteLen {
		return nil, ar.NewInputError("quote", ar.ErrMalformedQuote,
			"quote too short (%v bytes, expected at least %v)", len(raw), MinQuoteLen)
	}

	authLen := binary.LittleEndian.Uint32(raw[QuoteHeaderLen+TdReportBodyLen:])
	if uint64(len(raw)) != uint64(MinQuoteLen)+uint64(authLen) {
		return nil, ar.NewInputError("quote", ar.ErrMalformedQuote,
			"quote length %v does not match declared auth data length %v", len(raw), authLen)
	}
	if authLen < authDataFixedLen {
		return nil, ar.NewInputError("quote auth data", ar.ErrMalformedQuote,
			"auth data length %v too short (expected at least %v)", authLen, authDataFixedLen)
	}

	q := &TdxQuote{
		raw: append([]byte(nil), raw...),
	}

	buf := bytes.NewBuffer(raw)
	err := binary.Read(buf, binary.LittleEndian, &q.Header)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TDX quote header: %w", err)
	}
	if q.Header.Version != quoteVersion4 || q.Header.TeeType != teeTypeTdx {
		log.Warnf("Unexpected quote version %v / TEE type 0x%x (expected version %v, TEE type 0x%x)",
			q.Header.Version, q.Header.TeeType, quoteVersion4, teeTypeTdx)
	}

	err = binary.Read(buf, binary.LittleEndian, &q.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TD report body: %w", err)
	}

	err = binary.Read(buf, binary.LittleEndian, &q.AuthDataLen)
	if err != nil {
		return nil, fmt.Errorf("failed to decode auth data length: %w", err)
	}

	auth := &q.AuthData
	for _, v := range []any{&auth.QuoteSignature, &auth.ECDSAAttestationKey, &auth.CertDataType, &auth.CertDataSize} {
		if err := binary.Read(buf, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("failed to decode quote auth data: %w", err)
		}
	}

	if auth.CertDataSize != q.AuthDataLen-authDataFixedLen {
		return nil, ar.NewInputError("quote certification data", ar.ErrMalformedQuote,
			"declared size %v does not match remaining auth data size %v",
			auth.CertDataSize, q.AuthDataLen-authDataFixedLen)
	}
	auth.CertData = append([]byte(nil), buf.Next(int(auth.CertDataSize))...)

	log.Tracef("Decoded TDX quote: %v bytes, auth data %v bytes, certification data type %v",
		len(raw), q.AuthDataLen, auth.CertDataType)

	return q, nil
}

func (q *TdxQuote) Type() Type {
	return TypeTdx
}

// Raw returns a copy of the encoded quote
func (q *TdxQuote) Raw() []byte {
	return append([]byte(nil), q.raw...)
}

// Rtmrs returns the RTMR values in index order
func (q *TdxQuote) Rtmrs() [ar.NumRtmrs]ar.Digest {
	return [ar.NumRtmrs]ar.Digest{
		ar.Digest(q.Body.RtMr0),
		ar.Digest(q.Body.RtMr1),
		ar.Digest(q.Body.RtMr2),
		ar.Digest(q.Body.RtMr3),
	}
}

// ReportedRegisters returns all RTMRs of the quote
func (q *TdxQuote) ReportedRegisters() ar.RegisterBank {
	bank := ar.RegisterBank{}
	for i, v := range q.Rtmrs() {
		bank[i] = v
	}
	return bank
}

// Proto converts the quote into the go-tdx-guest protobuf representation.
// This requires well-formed QE certification data.
func (q *TdxQuote) Proto() (*pb.QuoteV4, error) {
	anyQuote, err := abi.QuoteToProto(q.raw)
	if err != nil {
		return nil, fmt.Errorf("failed to convert quote: %w", err)
	}
	switch v := anyQuote.(type) {
	case *pb.QuoteV4:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unexpected quote format %T", ar.ErrUnsupportedQuote, anyQuote)
	}
}

// Fields returns all named fields of the quote in wire order
func (q *TdxQuote) Fields() []Field {
	h := &q.Header
	b := &q.Body
	a := &q.AuthData
	return []Field{
		{"VERSION", fmt.Sprintf("%v", h.Version)},
		{"ATTESTATION_KEY_TYPE", fmt.Sprintf("%v", h.AttestationKeyType)},
		{"TEE_TYPE", fmt.Sprintf("0x%x", h.TeeType)},
		{"QE_SVN", fmt.Sprintf("%v", h.QESVN)},
		{"PCE_SVN", fmt.Sprintf("%v", h.PCESVN)},
		{"QE_VENDOR_ID", hex.EncodeToString(h.QEVendorID[:])},
		{"USER_DATA", hex.EncodeToString(h.UserData[:])},
		{"TEE_TCB_SVN", hex.EncodeToString(b.TeeTcbSvn[:])},
		{"MRSEAM", hex.EncodeToString(b.MrSeam[:])},
		{"MRSIGNERSEAM", hex.EncodeToString(b.MrSignerSeam[:])},
		{"SEAMATTRIBUTES", hex.EncodeToString(b.SeamAttributes[:])},
		{"TDATTRIBUTES", hex.EncodeToString(b.TdAttributes[:])},
		{"XFAM", hex.EncodeToString(b.XFAM[:])},
		{"MRTD", hex.EncodeToString(b.MrTd[:])},
		{"MRCONFIGID", hex.EncodeToString(b.MrConfigId[:])},
		{"MROWNER", hex.EncodeToString(b.MrOwner[:])},
		{"MROWNERCONFIG", hex.EncodeToString(b.MrOwnerConfig[:])},
		{"RTMR0", hex.EncodeToString(b.RtMr0[:])},
		{"RTMR1", hex.EncodeToString(b.RtMr1[:])},
		{"RTMR2", hex.EncodeToString(b.RtMr2[:])},
		{"RTMR3", hex.EncodeToString(b.RtMr3[:])},
		{"REPORTDATA", hex.EncodeToString(b.ReportData[:])},
		{"AUTH_DATA_LEN", fmt.Sprintf("%v", q.AuthDataLen)},
		{"QUOTE_SIGNATURE", hex.EncodeToString(a.QuoteSignature[:])},
		{"ATTESTATION_KEY", hex.EncodeToString(a.ECDSAAttestationKey[:])},
		{"CERT_DATA_TYPE", fmt.Sprintf("%v", a.CertDataType)},
		{"CERT_DATA_SIZE", fmt.Sprintf("%v", a.CertDataSize)},
	}
}
