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

// Package caller is the in-memory directory of active callers and their
// origins: per-identity bookkeeping for the admission engine.
//
// A caller is one identity (IP, footprint token, or API key). An origin is
// one device/browser combination under that caller, keyed by fingerprint.
// Each origin carries its own token bucket, strike budget and cached ban
// snapshot. All per-caller state is mutated under the caller's lock.
package caller

import (
	"sync"
	"time"

	"github.com/kadirpekel/archange/pkg/hell"
	"github.com/kadirpekel/archange/pkg/identity"
)

// Origin is one device/browser instance under a caller. Fields are guarded
// by the owning caller's lock.
type Origin struct {
	Fingerprint string
	ClientIP    string
	UserAgent   identity.UserAgent

	CreatedAt    time.Time
	LastAccessAt time.Time
	RequestCount int64

	// Token bucket state.
	TokensRemaining int
	WindowStartedAt time.Time

	// Strikes is the rolling soft-ban allowance consumed on bucket
	// exhaustion.
	Strikes hell.StrikeBudget

	// BanSnapshot caches the origin's active ban record. Nil means no
	// known ban; the ledger stays the source of truth.
	BanSnapshot *hell.Record
}

// Take runs the bucket algorithm for one request and reports admission.
//
// The bucket is a fixed-window counter with rollover forgiveness: a request
// arriving after the frame elapsed always gets a fresh window and is
// admitted regardless of the prior balance. Within the frame, the request
// is denied once the balance goes negative.
//
// Must be called under the owning caller's lock.
func (o *Origin) Take(capacity int, frame time.Duration, now time.Time) bool {
	o.LastAccessAt = now
	o.RequestCount++
	o.TokensRemaining--

	if now.Sub(o.WindowStartedAt) > frame {
		o.TokensRemaining = capacity - 1
		o.WindowStartedAt = now
		return true
	}

	return o.TokensRemaining >= 0
}

// Caller is one identity with its origins. Lock guards every origin and
// the caller-level ban snapshot.
type Caller struct {
	sync.Mutex

	IdentityValue string
	Kind          identity.Kind
	CreatedAt     time.Time

	// Authorized is false when the identity claimed by the request is not
	// backed by a registration. Unauthorized callers are denied outright.
	Authorized bool

	// BanSnapshot caches a ban on the identity value itself, as opposed
	// to the per-origin fingerprint bans.
	BanSnapshot *hell.Record

	origins map[string]*Origin
}

// Origin returns the origin with the given fingerprint, or nil.
// Must be called under the caller's lock.
func (c *Caller) Origin(fingerprint string) *Origin {
	return c.origins[fingerprint]
}

// OriginCount reports how many origins the caller has accumulated.
// Must be called under the caller's lock.
func (c *Caller) OriginCount() int {
	return len(c.origins)
}
