// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package session provides the cookie-backed session layer the admission
// engine reads its footprints from.
//
// A session carries two slots: an anonymous footprint issued by the engine
// the first time a client is only identifiable by IP, and an authenticated
// footprint set by the application's login flow. The classifier promotes
// callers between identity kinds based on these slots.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the per-client state carried across requests.
type Session struct {
	mu sync.Mutex

	id        string
	createdAt time.Time

	knownFootprint string
	authFootprint  string
	authExpiresAt  time.Time
}

// ID returns the opaque session identifier.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// KnownFootprint returns the anonymous footprint, or "" if none was issued.
func (s *Session) KnownFootprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.knownFootprint
}

// IssueKnownFootprint assigns a fresh anonymous footprint if the session
// does not already carry one, and returns it.
func (s *Session) IssueKnownFootprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.knownFootprint == "" {
		s.knownFootprint = uuid.NewString()
	}
	return s.knownFootprint
}

// AuthFootprint returns the authenticated footprint if it is set and not
// expired, or "" otherwise.
func (s *Session) AuthFootprint(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authFootprint == "" {
		return ""
	}
	if !s.authExpiresAt.IsZero() && now.After(s.authExpiresAt) {
		return ""
	}
	return s.authFootprint
}

// SetAuthFootprint stores an authenticated footprint with an expiry.
// A zero expiry never expires.
func (s *Session) SetAuthFootprint(footprint string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authFootprint = footprint
	s.authExpiresAt = expiresAt
}

// ClearAuthFootprint removes the authenticated footprint.
func (s *Session) ClearAuthFootprint() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authFootprint = ""
	s.authExpiresAt = time.Time{}
}

// Store is an in-memory session directory keyed by session ID.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Get returns the session with the given ID.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Create creates and registers a new session.
func (st *Store) Create() *Session {
	s := &Session{
		id:        uuid.NewString(),
		createdAt: time.Now(),
	}

	st.mu.Lock()
	st.sessions[s.id] = s
	st.mu.Unlock()

	return s
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
