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
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

var log = logrus.WithField("service", "mrverify")

func main() {
	cmd := &cli.Command{
		Name: "mrverify",
		Usage: "A tool to verify the Intel TDX Runtime Measurement Registers (RTMRs) of a trust domain " +
			"by replaying the boot and runtime event logs",
		Flags: globalFlags(),
		Commands: []*cli.Command{
			verifyCommand,
			replayCommand,
			quoteCommand,
			historyCommand,
			schemaCommand,
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Error(err)
	}
	closeLogFile()
	if err != nil {
		os.Exit(1)
	}
}
