// Copyright 2025 Kadir Pekel
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

package hell

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record lookup by ID misses.
	ErrNotFound = errors.New("ban record not found")

	// ErrLedgerClosed is returned by operations on a closed ledger.
	ErrLedgerClosed = errors.New("ban ledger is closed")
)

// LedgerError wraps a backend failure with the operation that hit it.
type LedgerError struct {
	Op  string
	Err error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ban ledger %s: %v", e.Op, e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

func ledgerErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &LedgerError{Op: op, Err: err}
}
