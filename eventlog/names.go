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
)

// Event types of the TCG PC Client Platform Firmware Profile and the EFI
// extensions, plus the event type the CC event log uses for runtime entries
const (
	EvNoAction                   uint32 = 0x3
	EvImaNodeMeasurementEvent    uint32 = 0x14
	evEfiEventBase               uint32 = 0x80000000
	EvEfiVariableDriverConfig    uint32 = evEfiEventBase + 0x1
	EvEfiBootServicesApplication uint32 = evEfiEventBase + 0x3
	EvEfiPlatformFirmwareBlob2   uint32 = evEfiEventBase + 0xa
)

var eventTypeNames = map[uint32]string{
	0x0:                          "EV_PREBOOT_CERT",
	0x1:                          "EV_POST_CODE",
	0x2:                          "EV_UNUSED",
	EvNoAction:                   "EV_NO_ACTION",
	0x4:                          "EV_SEPARATOR",
	0x5:                          "EV_ACTION",
	0x6:                          "EV_EVENT_TAG",
	0x7:                          "EV_S_CRTM_CONTENTS",
	0x8:                          "EV_S_CRTM_VERSION",
	0x9:                          "EV_CPU_MICROCODE",
	0xa:                          "EV_PLATFORM_CONFIG_FLAGS",
	0xb:                          "EV_TABLE_OF_DEVICES",
	0xc:                          "EV_COMPACT_HASH",
	0xd:                          "EV_IPL",
	0xe:                          "EV_IPL_PARTITION_DATA",
	0xf:                          "EV_NONHOST_CODE",
	0x10:                         "EV_NONHOST_CONFIG",
	0x11:                         "EV_NONHOST_INFO",
	0x12:                         "EV_OMIT_BOOT_DEVICE_EVENTS",
	EvImaNodeMeasurementEvent:    "EV_IMA_NODE_MEASUREMENT_EVENT",
	EvEfiVariableDriverConfig:    "EV_EFI_VARIABLE_DRIVER_CONFIG",
	evEfiEventBase + 0x2:         "EV_EFI_VARIABLE_BOOT",
	EvEfiBootServicesApplication: "EV_EFI_BOOT_SERVICES_APPLICATION",
	evEfiEventBase + 0x4:         "EV_EFI_BOOT_SERVICES_DRIVER",
	evEfiEventBase + 0x5:         "EV_EFI_RUNTIME_SERVICES_DRIVER",
	evEfiEventBase + 0x6:         "EV_EFI_GPT_EVENT",
	evEfiEventBase + 0x7:         "EV_EFI_ACTION",
	evEfiEventBase + 0x8:         "EV_EFI_PLATFORM_FIRMWARE_BLOB",
	evEfiEventBase + 0x9:         "EV_EFI_HANDOFF_TABLES",
	EvEfiPlatformFirmwareBlob2:   "EV_EFI_PLATFORM_FIRMWARE_BLOB2",
	evEfiEventBase + 0xb:         "EV_EFI_HANDOFF_TABLES2",
	evEfiEventBase + 0xc:         "EV_EFI_VARIABLE_BOOT2",
	evEfiEventBase + 0xe0:        "EV_EFI_VARIABLE_AUTHORITY",
}

// EventTypeName returns the name of a TCG event type
func EventTypeName(t uint32) (string, bool) {
	name, ok := eventTypeNames[t]
	return name, ok
}

// Algorithm identifiers as defined by the TCG algorithm registry
const (
	AlgSha1   uint16 = 0xA
	AlgSha256 uint16 = 0xB
	AlgSha384 uint16 = 0xC
	AlgSha512 uint16 = 0xD
	AlgSm3256 uint16 = 0xE
)

type algorithm struct {
	name       string
	digestSize int
}

var algorithms = map[uint16]algorithm{
	AlgSha1:   {"TPM_ALG_SHA1", 20},
	AlgSha256: {"TPM_ALG_SHA256", 32},
	AlgSha384: {"TPM_ALG_SHA384", 48},
	AlgSha512: {"TPM_ALG_SHA512", 64},
	AlgSm3256: {"TPM_ALG_SM3_256", 32},
}

// AlgorithmName returns the name of a TCG algorithm identifier
func AlgorithmName(id uint16) string {
	if alg, ok := algorithms[id]; ok {
		return alg.name
	}
	return fmt.Sprintf("TPM_ALG(0x%x)", id)
}

// DigestSize returns the digest size in bytes of a TCG algorithm identifier
func DigestSize(id uint16) (int, error) {
	alg, ok := algorithms[id]
	if !ok {
		return 0, fmt.Errorf("unknown algorithm 0x%x", id)
	}
	return alg.digestSize, nil
}
