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
	"path/filepath"
	"reflect"

	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
	"github.com/Fraunhofer-AISEC/mrverify/store"
	"github.com/invopop/jsonschema"
	"github.com/urfave/cli/v3"
)

var schemaObjects = []any{
	ar.VerificationResult{},
	ar.EventLogEntry{},
	ar.RuntimeEntry{},
	ar.ReferenceEntry{},
	store.ResultEnvelope{},
	Config{},
}

var schemaCommand = &cli.Command{
	Name:  "schema",
	Usage: "Generates JSON schema definitions for the result, log entry and configuration types",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  outFlag,
			Usage: "directory the schema definitions shall be written to (default: stdout)",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		c, err := getConfig(cmd)
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		return runSchema(c.Out)
	},
}

func runSchema(dir string) error {

	schemas, err := generateSchemas()
	if err != nil {
		return err
	}

	if dir == "" {
		for _, o := range schemaObjects {
			fmt.Println(string(schemas[getName(o)]))
		}
		return nil
	}

	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	for name, data := range schemas {
		f := filepath.Join(dir, fmt.Sprintf("%v.json", name))
		err = os.WriteFile(f, data, 0644)
		if err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		log.Debugf("Wrote %v", f)
	}
	return nil
}

func generateSchemas() (map[string][]byte, error) {
	r := &jsonschema.Reflector{
		ExpandedStruct:            false,
		Anonymous:                 true,
		DoNotReference:            false,
		AllowAdditionalProperties: true,
	}

	schemas := make(map[string][]byte, len(schemaObjects))
	for _, o := range schemaObjects {
		schema := r.Reflect(o)
		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schema: %w", err)
		}
		schemas[getName(o)] = data
	}
	return schemas, nil
}

func getName(v any) string {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
