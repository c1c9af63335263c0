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

package admission

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kadirpekel/archange/pkg/caller"
	"github.com/kadirpekel/archange/pkg/config"
	"github.com/kadirpekel/archange/pkg/events"
	"github.com/kadirpekel/archange/pkg/hell"
	"github.com/kadirpekel/archange/pkg/identity"
)

func testEngine(t *testing.T, mutate func(*config.AdmissionConfig)) *Engine {
	t.Helper()

	cfg := &config.AdmissionConfig{}
	cfg.SetDefaults()
	if mutate != nil {
		mutate(cfg)
	}

	hub := events.NewHub()
	hub.SetExit(func(code int) {
		t.Fatalf("unexpected stop event, exit code %d", code)
	})

	h, err := hell.New(context.Background(), &cfg.Hell, hell.NewMemoryLedger(), hub)
	if err != nil {
		t.Fatalf("failed to create hell: %v", err)
	}

	return NewEngine(cfg, "/api", h, hub)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func apiRequest(ip string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	r.RemoteAddr = ip + ":40000"
	r.Header.Set("User-Agent", "curl/8.5.0")
	return r
}

func webRequest(ip string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/home", nil)
	r.RemoteAddr = ip + ":40000"
	r.Header.Set("User-Agent", "curl/8.5.0")
	return r
}

func TestElevenRequestsDenyTheEleventh(t *testing.T) {
	e := testEngine(t, nil)
	handler := e.Middleware()(okHandler())

	capacity := e.cfg.Bucket.Limit.IP
	for i := 0; i < capacity; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, apiRequest("10.0.0.1"))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, apiRequest("10.0.0.1"))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("over-limit request: expected 403, got %d", rr.Code)
	}

	var payload struct {
		Archange struct {
			State bool `json:"state"`
			Hell  struct {
				Mode string `json:"mode"`
				To   int64  `json:"to"`
			} `json:"hell"`
		} `json:"archange"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode deny body: %v", err)
	}
	if payload.Archange.State {
		t.Error("expected state false in deny body")
	}
	if payload.Archange.Hell.Mode != string(hell.ModeDelayed) {
		t.Errorf("expected DELAYED first offense, got %s", payload.Archange.Hell.Mode)
	}
	if payload.Archange.Hell.To == 0 {
		t.Error("expected finite ban expiry in deny body")
	}
}

func TestRepeatOffenseEscalatesToBlocked(t *testing.T) {
	e := testEngine(t, nil)
	handler := e.Middleware()(okHandler())

	capacity := e.cfg.Bucket.Limit.IP

	// First exhaustion lands DELAYED.
	for i := 0; i < capacity+1; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), apiRequest("10.0.0.1"))
	}

	// The frame is still live, so the next request exhausts again while
	// DELAYED is active and must land BLOCKED.
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, apiRequest("10.0.0.1"))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), string(hell.ModeBlocked)) {
		t.Errorf("expected BLOCKED escalation, body: %s", rr.Body.String())
	}

	// Once BLOCKED, every request is denied before the bucket runs.
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, apiRequest("10.0.0.1"))
	if rr.Code != http.StatusForbidden {
		t.Errorf("expected sustained 403 under BLOCKED, got %d", rr.Code)
	}
}

func TestWebDenyIsHumanReadable(t *testing.T) {
	e := testEngine(t, nil)
	handler := e.Middleware()(okHandler())

	capacity := e.cfg.Bucket.Limit.IP
	for i := 0; i < capacity+2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), webRequest("10.0.0.1"))
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, webRequest("10.0.0.1"))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "You have been banned from this app until ") {
		t.Errorf("unexpected web deny body: %s", body)
	}
	stamp := strings.TrimPrefix(body, "You have been banned from this app until ")
	if _, err := time.Parse(time.RFC3339, stamp); err != nil {
		t.Errorf("expected RFC 3339 timestamp in deny body, got %q: %v", stamp, err)
	}
}

func TestTrustedKeyBypassesBucket(t *testing.T) {
	e := testEngine(t, func(cfg *config.AdmissionConfig) {
		cfg.TrustedKeys = []config.APIKeyConfig{
			{Name: "internal", Key: "secret-key", Trusted: true},
		}
	})
	handler := e.Middleware()(okHandler())

	for i := 0; i < 100; i++ {
		r := apiRequest("10.0.0.1")
		r.Header.Set(identity.APIKeyHeader, "secret-key")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, r)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected trusted key to bypass bucket, got %d", i+1, rr.Code)
		}
	}
}

func TestUnregisteredKeyIsDenied(t *testing.T) {
	e := testEngine(t, nil)
	handler := e.Middleware()(okHandler())

	r := apiRequest("10.0.0.1")
	r.Header.Set(identity.APIKeyHeader, "never-issued")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, r)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unregistered key, got %d", rr.Code)
	}
	var payload struct {
		Archange struct {
			State bool `json:"state"`
		} `json:"archange"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode deny body: %v", err)
	}
	if payload.Archange.State {
		t.Error("expected state false for unauthorized caller")
	}
}

func TestDisabledAdmissionPassesEverything(t *testing.T) {
	e := testEngine(t, func(cfg *config.AdmissionConfig) {
		cfg.Enabled = config.BoolPtr(false)
	})
	handler := e.Middleware()(okHandler())

	for i := 0; i < 100; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, apiRequest("10.0.0.1"))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected pass-through when disabled, got %d", i+1, rr.Code)
		}
	}
}

func TestDistinctOriginsHaveIndependentBuckets(t *testing.T) {
	e := testEngine(t, nil)
	handler := e.Middleware()(okHandler())

	capacity := e.cfg.Bucket.Limit.IP
	for i := 0; i < capacity+1; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), apiRequest("10.0.0.1"))
	}

	// A different IP is a different caller with a fresh bucket.
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, apiRequest("10.0.0.2"))
	if rr.Code != http.StatusOK {
		t.Errorf("expected fresh identity to be admitted, got %d", rr.Code)
	}
}

func TestBlockedExpiryReadmitsAndDropsRecord(t *testing.T) {
	cfg := &config.AdmissionConfig{}
	cfg.SetDefaults()

	hub := events.NewHub()
	hub.SetExit(func(code int) {
		t.Fatalf("unexpected stop event, exit code %d", code)
	})

	ledger := hell.NewMemoryLedger()
	h, err := hell.New(context.Background(), &cfg.Hell, ledger, hub)
	if err != nil {
		t.Fatalf("failed to create hell: %v", err)
	}

	e := NewEngine(cfg, "/api", h, hub)
	handler := e.Middleware()(okHandler())
	ctx := context.Background()

	fingerprint := caller.Fingerprint("curl/8.5.0", "10.0.0.1", "10.0.0.1")
	stored, err := ledger.Upsert(ctx, &hell.Record{
		SubjectValue: fingerprint,
		Mode:         hell.ModeBlocked,
		StartedAt:    time.Now().Add(-time.Minute).UnixMilli(),
		ExpiresAt:    time.Now().Add(time.Hour).UnixMilli(),
	})
	if err != nil {
		t.Fatalf("failed to seed ledger: %v", err)
	}

	// The first request registers the caller; the ban snapshot arrives
	// through the async seed.
	handler.ServeHTTP(httptest.NewRecorder(), apiRequest("10.0.0.1"))
	e.registry.WaitSeeding()

	decode := func(rr *httptest.ResponseRecorder) (string, int64) {
		t.Helper()
		var payload struct {
			Archange struct {
				Hell struct {
					Mode string `json:"mode"`
					To   int64  `json:"to"`
				} `json:"hell"`
			} `json:"archange"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
			t.Fatalf("failed to decode deny body: %v", err)
		}
		return payload.Archange.Hell.Mode, payload.Archange.Hell.To
	}

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, apiRequest("10.0.0.1"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, apiRequest("10.0.0.1"))
	if first.Code != http.StatusForbidden || second.Code != http.StatusForbidden {
		t.Fatalf("expected sustained 403 under BLOCKED, got %d then %d", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Error("repeated denials must echo the same ban")
	}
	mode, to := decode(first)
	if mode != string(hell.ModeBlocked) {
		t.Errorf("expected BLOCKED deny, got %s", mode)
	}
	if to != stored.ExpiresAt {
		t.Errorf("expected deny to echo ban expiry %d, got %d", stored.ExpiresAt, to)
	}

	// The ban lapses.
	past := time.Now().Add(-time.Second).UnixMilli()
	if _, err := ledger.Update(ctx, stored.ID, stored.Mode, stored.StartedAt, past); err != nil {
		t.Fatalf("failed to expire record: %v", err)
	}
	c, o, _ := e.registry.GetOrCreate(e.Classify(apiRequest("10.0.0.1")))
	c.Lock()
	o.BanSnapshot.ExpiresAt = past
	c.Unlock()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, apiRequest("10.0.0.1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected readmission after ban expiry, got %d", rr.Code)
	}

	c.Lock()
	if o.BanSnapshot != nil {
		t.Error("expected snapshot refreshed to absent after expiry")
	}
	c.Unlock()

	if rec, err := ledger.FindBySubject(ctx, fingerprint); err != nil {
		t.Fatalf("ledger lookup failed: %v", err)
	} else if rec != nil {
		t.Errorf("expected expired record dropped from ledger, still present: %+v", rec)
	}
}
