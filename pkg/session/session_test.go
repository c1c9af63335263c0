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

package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kadirpekel/archange/pkg/config"
)

func TestIssueKnownFootprintIdempotent(t *testing.T) {
	s := NewStore().Create()

	first := s.IssueKnownFootprint()
	if first == "" {
		t.Fatal("expected a footprint to be issued")
	}
	second := s.IssueKnownFootprint()
	if first != second {
		t.Errorf("expected stable footprint, got %q then %q", first, second)
	}
}

func TestAuthFootprintExpiry(t *testing.T) {
	s := NewStore().Create()
	now := time.Now()

	s.SetAuthFootprint("token", now.Add(time.Hour))
	if got := s.AuthFootprint(now); got != "token" {
		t.Errorf("expected live footprint, got %q", got)
	}
	if got := s.AuthFootprint(now.Add(2 * time.Hour)); got != "" {
		t.Errorf("expected expired footprint to read empty, got %q", got)
	}

	s.SetAuthFootprint("token", time.Time{})
	if got := s.AuthFootprint(now.Add(1000 * time.Hour)); got != "token" {
		t.Errorf("expected zero expiry to never expire, got %q", got)
	}

	s.ClearAuthFootprint()
	if got := s.AuthFootprint(now); got != "" {
		t.Errorf("expected cleared footprint to read empty, got %q", got)
	}
}

func testSessionConfig() config.SessionConfig {
	cfg := config.SessionConfig{Secret: "test-secret"}
	cfg.SetDefaults()
	return cfg
}

func sessionHandler(t *testing.T, store *Store) (http.Handler, *[]*Session) {
	t.Helper()
	var seen []*Session
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, FromContext(r.Context()))
	})
	return Middleware(store, testSessionConfig(), false)(inner), &seen
}

func TestMiddlewareCreatesSessionAndCookie(t *testing.T) {
	store := NewStore()
	handler, seen := sessionHandler(t, store)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if len(*seen) != 1 || (*seen)[0] == nil {
		t.Fatal("expected a session in the request context")
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	if !cookies[0].HttpOnly {
		t.Error("expected HttpOnly cookie")
	}
}

func TestMiddlewareReusesValidCookie(t *testing.T) {
	store := NewStore()
	handler, seen := sessionHandler(t, store)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	second := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rr.Result().Cookies() {
		second.AddCookie(c)
	}
	handler.ServeHTTP(httptest.NewRecorder(), second)

	if (*seen)[0] != (*seen)[1] {
		t.Error("expected the same session across requests with the cookie")
	}
	if store.Len() != 1 {
		t.Errorf("expected one stored session, got %d", store.Len())
	}
}

func TestMiddlewareRejectsTamperedCookie(t *testing.T) {
	store := NewStore()
	handler, seen := sessionHandler(t, store)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	original := rr.Result().Cookies()[0]

	forged := httptest.NewRequest(http.MethodGet, "/", nil)
	forged.AddCookie(&http.Cookie{
		Name:  original.Name,
		Value: "forged-id." + original.Value[len(original.Value)-64:],
	})
	handler.ServeHTTP(httptest.NewRecorder(), forged)

	if (*seen)[0] == (*seen)[1] {
		t.Error("expected tampered cookie to get a fresh session")
	}
	if store.Len() != 2 {
		t.Errorf("expected 2 stored sessions, got %d", store.Len())
	}
}

func TestVerifyCookieValue(t *testing.T) {
	secret := []byte("test-secret")
	value := signCookieValue("abc", secret)

	id, ok := verifyCookieValue(value, secret)
	if !ok || id != "abc" {
		t.Errorf("expected valid signature for %q, got ok=%t id=%q", value, ok, id)
	}

	if _, ok := verifyCookieValue("abc.deadbeef", secret); ok {
		t.Error("expected bad signature to fail")
	}
	if _, ok := verifyCookieValue("no-separator", secret); ok {
		t.Error("expected malformed value to fail")
	}
}
