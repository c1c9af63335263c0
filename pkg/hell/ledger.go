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

import "context"

// Ledger is the persistence contract for ban records.
//
// Upsert enforces SubjectValue uniqueness: writing a subject that already
// has a record replaces that record in place. FindBySubject returns
// (nil, nil) on a miss so callers can distinguish absence from failure.
type Ledger interface {
	// FindBySubject returns the record for the subject, or nil when none
	// exists.
	FindBySubject(ctx context.Context, subject string) (*Record, error)

	// Upsert inserts the record, replacing any existing record with the
	// same SubjectValue, and returns the stored copy with ID populated.
	Upsert(ctx context.Context, rec *Record) (*Record, error)

	// Update rewrites the mode and lifetime of the record with the given
	// ID and returns the updated copy. Returns ErrNotFound when the ID
	// does not exist.
	Update(ctx context.Context, id int64, mode Mode, startedAt, expiresAt int64) (*Record, error)

	// DeleteByID removes the record with the given ID. Deleting a missing
	// ID is not an error.
	DeleteByID(ctx context.Context, id int64) error

	// DeleteExpired removes every record whose expiry is at or before now
	// (epoch milliseconds) and returns the number removed. Permanent
	// records are never touched.
	DeleteExpired(ctx context.Context, now int64) (int64, error)

	// Close releases backend resources.
	Close() error
}
