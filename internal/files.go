// Copyright (c) 2021 Fraunhofer AISEC
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

package internal

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// GetFile reads a file from an absolute path or a path relative to the
// optional base path (usually the directory of the configuration file)
func GetFile(file string, base *string) ([]byte, error) {
	if file == "" {
		return nil, fmt.Errorf("empty filename passed")
	}
	f, err := GetFilePath(file, base)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %v: %w", f, err)
	}
	return data, nil
}

// GetFilePath resolves a file from an absolute path, a path relative to the
// optional base path or a path relative to the working directory
func GetFilePath(file string, base *string) (string, error) {

	if base != nil {
		log.Tracef("Get path of '%v' with optional base path '%v'", file, *base)
	} else {
		log.Tracef("Get path of '%v'", file)
	}

	if path.IsAbs(file) {
		if FileExists(file) {
			log.Tracef("Got: %v (absolute path)", file)
			return file, nil
		}
		return "", fmt.Errorf("file %v does not exist", file)
	}

	var rf string
	if base != nil {
		var err error
		rf, err = filepath.Abs(filepath.Join(*base, file))
		if err == nil && FileExists(rf) {
			log.Tracef("Got: %v (relative to base path)", rf)
			return rf, nil
		}
	}

	f, err := filepath.Abs(file)
	if err == nil && FileExists(f) {
		log.Tracef("Got: %v (relative to working directory)", f)
		return f, nil
	}

	if base == nil {
		return "", fmt.Errorf("failed to find file. Places searched: %v", f)
	}
	return "", fmt.Errorf("failed to find file. Places searched: %v, %v", rf, f)
}

func FileExists(f string) bool {
	_, err := os.Stat(f)
	return !errors.Is(err, os.ErrNotExist)
}
