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
	"context"
	"encoding/json"
	"fmt"
	"strings"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
	"github.com/Fraunhofer-AISEC/mrverify/verifier"
	"github.com/urfave/cli/v3"
)

var replayCommand = &cli.Command{
	Name:  "replay",
	Usage: "Replays the event logs and prints the calculated RTMR values",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  formatFlag,
			Usage: "output format (text, json)",
		},
		&cli.StringFlag{
			Name:  outFlag,
			Usage: "output file (default: stdout)",
		},
	}, bootLogFlags()...),
	Action: func(ctx context.Context, cmd *cli.Command) error {
		c, err := getConfig(cmd)
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if !cmd.IsSet(formatFlag) {
			c.Format = "text"
		}
		return runReplay(c)
	},
}

func runReplay(c *Config) error {

	includeRuntime := c.includeRuntime()

	boot, err := readBootLog(c)
	if err != nil {
		return err
	}
	runtime, err := readRuntimeLog(c, includeRuntime)
	if err != nil {
		return err
	}

	bank, err := verifier.Replay(boot, runtime, c.Rtmrs, includeRuntime)
	if err != nil {
		return fmt.Errorf("failed to replay: %w", err)
	}

	data, err := formatBank(bank, c.Format)
	if err != nil {
		return err
	}
	return writeOutput(c.Out, data)
}

func formatBank(bank ar.RegisterBank, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "text":
		var sb strings.Builder
		for _, i := range bank.Indices() {
			fmt.Fprintf(&sb, "%v: %v\n", ar.RtmrName(i), bank[i])
		}
		return []byte(strings.TrimSuffix(sb.String(), "\n")), nil
	case "json":
		m := make(map[string]ar.Digest, len(bank))
		for i, v := range bank {
			m[ar.RtmrName(i)] = v
		}
		data, err := json.MarshalIndent(m, "", "    ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported format %q (possible: text, json)", format)
	}
}
