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
	"github.com/Fraunhofer-AISEC/mrverify/store"
	"github.com/urfave/cli/v3"
)

var historyCommand = &cli.Command{
	Name:  "history",
	Usage: "Lists the verification results stored in the database",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  dbFlag,
			Usage: "sqlite database with stored verification results",
		},
		&cli.StringFlag{
			Name:  idFlag,
			Usage: "only print the result with the given ID",
		},
		&cli.BoolFlag{
			Name:  fullFlag,
			Usage: "print the full results instead of a summary",
		},
		&cli.BoolFlag{
			Name:  latestFlag,
			Usage: "only print the most recent result",
		},
		&cli.StringFlag{
			Name:  importFlag,
			Usage: "store a JSON or CBOR verification result file before printing",
		},
		&cli.StringFlag{
			Name:  outFlag,
			Usage: "output file (default: stdout)",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		c, err := getConfig(cmd)
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		return runHistory(c, &historyOptions{
			id:         cmd.String(idFlag),
			full:       cmd.Bool(fullFlag),
			latest:     cmd.Bool(latestFlag),
			importFile: cmd.String(importFlag),
		})
	},
}

type historyOptions struct {
	id         string
	full       bool
	latest     bool
	importFile string
}

func runHistory(c *Config, opts *historyOptions) error {

	if c.Db == "" {
		return ar.NewInputError("db", ar.ErrMissingData, "no database specified (use --%v)", dbFlag)
	}

	db, err := store.NewDb(c.Db, c.DbTable, c.DbMaxRows)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if opts.importFile != "" {
		id, err := importResult(db, opts.importFile)
		if err != nil {
			return err
		}
		log.Infof("Imported result %v from %v", id, opts.importFile)
	}

	var results []*store.ResultEnvelope
	detailed := opts.id != "" || opts.latest || opts.full
	switch {
	case opts.id != "":
		results, err = db.GetResultById(opts.id)
	case opts.latest:
		results, err = db.GetLatestResult()
	case opts.full:
		results, err = db.GetAllResults()
	default:
		results, err = db.GetAllStatistics()
	}
	if err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}

	var data []byte
	if detailed {
		data, err = json.MarshalIndent(results, "", "    ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
	} else {
		var sb strings.Builder
		for _, r := range results {
			fmt.Fprintf(&sb, "%v  %-20v  %-7v  %v\n", r.Created, r.Source, r.Status, r.Id)
		}
		data = []byte(strings.TrimSuffix(sb.String(), "\n"))
	}

	log.Debugf("Found %v results", len(results))

	return writeOutput(c.Out, data)
}

// importResult stores a verification result file in either serialization
func importResult(db *store.Db, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read result: %v", ar.ErrMissingData, err)
	}

	s, err := ar.DetectSerialization(data)
	if err != nil {
		return "", ar.NewInputError("import", ar.ErrMalformedInput, "%v: %v", path, err)
	}
	log.Debugf("Detected %v serialization", s.String())

	result := new(ar.VerificationResult)
	err = s.Unmarshal(data, result)
	if err != nil {
		return "", ar.NewInputError("import", ar.ErrMalformedInput, "failed to unmarshal %v result: %v",
			s.String(), err)
	}
	if result.Type != ar.VerificationResultType {
		return "", ar.NewInputError("import", ar.ErrMalformedInput, "unexpected result type %q", result.Type)
	}

	return db.InsertResult(result)
}
