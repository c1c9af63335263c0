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

// Package hell is the escalating ban subsystem: a persisted ledger of ban
// records wrapped by the escalation state machine.
//
// An identity moves NONE -> DELAYED -> BLOCKED. DELAYED is a short soft
// penalty; BLOCKED is a hard deny with a long or permanent duration.
// Expiry is lazy: expired records are dropped on lookup or by the one-time
// startup sweep, never by a timer.
package hell

import "time"

// Mode is the ban tier of a record.
type Mode string

const (
	// ModeDelayed is the soft warning tier.
	ModeDelayed Mode = "DELAYED"

	// ModeBlocked is the hard deny tier.
	ModeBlocked Mode = "BLOCKED"
)

// Record is a persisted ban. SubjectValue is either an origin's fingerprint
// hash or a caller's identity value; at most one active record exists per
// subject at a time.
type Record struct {
	ID int64

	SubjectValue string

	Mode Mode

	// StartedAt is the ban start, epoch milliseconds.
	StartedAt int64

	// ExpiresAt is the ban end, epoch milliseconds. Zero never expires.
	ExpiresAt int64
}

// Expired reports whether the record's lifetime has passed.
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt != 0 && r.ExpiresAt <= now.UnixMilli()
}

// ExpiresTime returns the expiry as a time.Time. Only meaningful when
// ExpiresAt is nonzero.
func (r *Record) ExpiresTime() time.Time {
	return time.UnixMilli(r.ExpiresAt)
}
