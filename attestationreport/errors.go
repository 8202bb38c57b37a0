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

package attestationreport

import (
	"errors"
	"fmt"
)

// Fatal error classes of a verification run. A register mismatch is not an
// error but a negative result.
var (
	ErrMalformedInput   = errors.New("malformed input")
	ErrMissingData      = errors.New("missing data")
	ErrMalformedQuote   = fmt.Errorf("%w: malformed quote", ErrMalformedInput)
	ErrUnsupportedQuote = errors.New("unsupported quote type")
)

// InputError identifies the field which caused a fatal input error. It
// unwraps to one of the error classes above.
type InputError struct {
	Field string
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%v: %v", e.Field, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// NewInputError creates an InputError for field wrapping the given error class
func NewInputError(field string, class error, format string, args ...any) error {
	return &InputError{
		Field: field,
		Err:   fmt.Errorf("%w: %v", class, fmt.Sprintf(format, args...)),
	}
}
