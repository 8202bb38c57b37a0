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
	"errors"
	"fmt"
	"os"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
	"github.com/Fraunhofer-AISEC/mrverify/store"
	"github.com/Fraunhofer-AISEC/mrverify/verifier"
	"github.com/urfave/cli/v3"
)

var errVerificationFailed = errors.New("verification failed")

var verifyCommand = &cli.Command{
	Name:  "verify",
	Usage: "Replays the event logs and verifies the result against the reported RTMR values",
	Flags: verifyFlags(),
	Action: func(ctx context.Context, cmd *cli.Command) error {
		c, err := getConfig(cmd)
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		return runVerify(c)
	},
}

func verifyFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  referenceFlag,
			Usage: "reference measurements which must be present in the runtime log",
		},
		&cli.StringSliceFlag{
			Name:  reportedFlag,
			Usage: "reported RTMR value as <index>=<base64>, can be repeated",
		},
		&cli.StringFlag{
			Name:  reportedFileFlag,
			Usage: "JSON file with reported RTMR values {\"<index>\": \"<base64>\"}",
		},
		&cli.StringFlag{
			Name:  quoteFlag,
			Usage: "quote file to take the reported RTMR values from",
		},
		newQuoteTypeFlag(),
		&cli.StringFlag{
			Name:  formatFlag,
			Usage: "result serialization format (json, cbor)",
		},
		&cli.StringFlag{
			Name:  outFlag,
			Usage: "output file for the verification result (default: stdout)",
		},
		&cli.StringFlag{
			Name:  dbFlag,
			Usage: "optional sqlite database to store the verification result in",
		},
	}
	flags = append(flags, bootLogFlags()...)
	return append(flags, liveFlags()...)
}

func runVerify(c *Config) error {

	s, err := ar.NewSerializer(c.Format)
	if err != nil {
		return err
	}

	in, err := getInput(c)
	if err != nil {
		return err
	}

	result, err := verifier.Verify(in)
	if err != nil {
		return fmt.Errorf("failed to verify: %w", err)
	}

	data, err := s.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	err = writeOutput(c.Out, data)
	if err != nil {
		return err
	}

	if c.Db != "" {
		err = storeResult(c, result)
		if err != nil {
			return err
		}
	}

	if !result.Success {
		return errVerificationFailed
	}
	if !result.SelectedSuccess() {
		log.Warn("Not all reference measurements were found in the runtime log")
	}

	return nil
}

func storeResult(c *Config, result *ar.VerificationResult) error {
	db, err := store.NewDb(c.Db, c.DbTable, c.DbMaxRows)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	id, err := db.InsertResult(result)
	if err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	log.Infof("Stored result %v in %v", id, c.Db)
	return nil
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	err := os.WriteFile(path, data, 0644)
	if err != nil {
		return fmt.Errorf("failed to write %v: %w", path, err)
	}
	log.Infof("Wrote %v", path)
	return nil
}
