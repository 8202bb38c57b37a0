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
	"os"
	"strings"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
	"github.com/Fraunhofer-AISEC/mrverify/quote"
	"github.com/Fraunhofer-AISEC/mrverify/tdxdriver"
	"github.com/urfave/cli/v3"
	"google.golang.org/protobuf/encoding/protojson"
)

var quoteCommand = &cli.Command{
	Name:  "quote",
	Usage: "Decodes and prints a TDX quote",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  inFlag,
			Usage: "quote file",
		},
		newQuoteTypeFlag(),
		&cli.StringFlag{
			Name:  formatFlag,
			Usage: "output format (text, json, proto)",
		},
		&cli.StringFlag{
			Name:  outFlag,
			Usage: "output file (default: stdout)",
		},
	}, liveFlags()...),
	Action: func(ctx context.Context, cmd *cli.Command) error {
		c, err := getConfig(cmd)
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if !cmd.IsSet(formatFlag) {
			c.Format = "text"
		}
		return runQuote(c)
	},
}

func runQuote(c *Config) error {

	raw, err := readQuote(c)
	if err != nil {
		return err
	}

	typ := quote.TypeTdx
	if c.Quote != "" {
		typ, err = quote.ParseType(c.QuoteType)
		if err != nil {
			return err
		}
	}

	q, err := quote.Decode(typ, raw)
	if err != nil {
		return fmt.Errorf("failed to decode quote: %w", err)
	}

	tdxQuote, ok := q.(*quote.TdxQuote)
	if !ok {
		return fmt.Errorf("%w: cannot print %v quotes", ar.ErrUnsupportedQuote, q.Type())
	}

	data, err := formatQuote(tdxQuote, c.Format)
	if err != nil {
		return err
	}
	return writeOutput(c.Out, data)
}

func readQuote(c *Config) ([]byte, error) {
	if c.Quote != "" {
		data, err := os.ReadFile(c.Quote)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read quote: %v", ar.ErrMissingData, err)
		}
		return data, nil
	}
	if c.Live {
		nonce, err := getNonce(c)
		if err != nil {
			return nil, err
		}
		return tdxdriver.GetQuote(nonce, nil)
	}
	return nil, ar.NewInputError("quote", ar.ErrMissingData, "either --%v or --%v must be specified",
		inFlag, liveFlag)
}

func formatQuote(q *quote.TdxQuote, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "text":
		var sb strings.Builder
		for _, f := range q.Fields() {
			fmt.Fprintf(&sb, "%-22v: %v\n", f.Name, f.Value)
		}
		return []byte(strings.TrimSuffix(sb.String(), "\n")), nil
	case "json":
		data, err := json.MarshalIndent(q.Fields(), "", "    ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal quote: %w", err)
		}
		return data, nil
	case "proto":
		pb, err := q.Proto()
		if err != nil {
			return nil, err
		}
		data, err := protojson.MarshalOptions{Multiline: true, Indent: "    "}.Marshal(pb)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal quote: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported format %q (possible: text, json, proto)", format)
	}
}
