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

// Package admission orchestrates the per-request trust decision: classify
// the request, resolve its caller and origin, consult the ban ledger, run
// the token bucket, and emit an allow or deny.
//
// Every request terminates in an explicit decision. Ledger outages degrade
// to "not banned"; classification always succeeds via fallbacks; nothing
// on this path is fatal to the process.
package admission

import (
	"net/http"
	"time"

	"github.com/kadirpekel/archange/pkg/caller"
	"github.com/kadirpekel/archange/pkg/config"
	"github.com/kadirpekel/archange/pkg/events"
	"github.com/kadirpekel/archange/pkg/hell"
	"github.com/kadirpekel/archange/pkg/identity"
	"github.com/kadirpekel/archange/pkg/session"
)

// Event messages emitted by the admission engine.
const (
	EventUsurpationSuspected = "archange usurpation suspected"
	EventRequestDenied       = "archange request denied"
	EventEngineReady         = "archange admission engine ready"
)

// Engine wires the classifier, caller registry and ban state machine into
// one request interceptor.
type Engine struct {
	cfg        *config.AdmissionConfig
	classifier *identity.Classifier
	registry   *caller.Registry
	hell       *hell.Hell
	hub        *events.Hub
	now        func() time.Time
}

// NewEngine assembles the admission engine around an initialized ban state
// machine.
func NewEngine(cfg *config.AdmissionConfig, apiPrefix string, h *hell.Hell, hub *events.Hub) *Engine {
	keys := identity.NewKeyRegistry(cfg.TrustedKeys)

	e := &Engine{
		cfg:        cfg,
		classifier: identity.NewClassifier(apiPrefix, keys),
		registry:   caller.NewRegistry(&cfg.Bucket, h, hub),
		hell:       h,
		hub:        hub,
		now:        time.Now,
	}

	hub.Info(events.CategoryArchange, EventEngineReady, map[string]any{
		"enabled":      cfg.IsEnabled(),
		"trusted_keys": keys.Len(),
	})

	return e
}

// Registry exposes the caller directory, for introspection handlers.
func (e *Engine) Registry() *caller.Registry {
	return e.registry
}

// Classify derives the identity descriptor for a request without touching
// admission state. Used by introspection handlers.
func (e *Engine) Classify(r *http.Request) identity.Origin {
	return e.classifier.Classify(r, session.FromContext(r.Context()))
}

// Middleware returns the admission interceptor. On allow the pipeline
// continues unmodified; on deny the response is a 403 with ban metadata.
func (e *Engine) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !e.cfg.IsEnabled() {
				next.ServeHTTP(w, r)
				return
			}

			if e.admit(w, r) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// admit runs the full decision sequence and reports whether the request
// may continue. On deny the response has already been written.
func (e *Engine) admit(w http.ResponseWriter, r *http.Request) bool {
	ctx := r.Context()
	now := e.now()

	sess := session.FromContext(ctx)
	origin := e.classifier.Classify(r, sess)

	// A raw-IP classification issues an anonymous footprint so the next
	// request from this session promotes to the "unknown" kind.
	if origin.Kind == identity.KindIP && sess != nil {
		sess.IssueKnownFootprint()
	}

	c, o, _ := e.registry.GetOrCreate(origin)

	if !c.Authorized {
		e.hub.Warning(events.CategoryArchange, EventUsurpationSuspected, map[string]any{
			"identity": origin.Value,
			"kind":     string(origin.Kind),
			"ip":       origin.ClientIP,
		})
		decisionsTotal.WithLabelValues(string(DecisionDenyUnauth), string(origin.Kind)).Inc()
		writeUnauthorizedDeny(w, origin.APIPath)
		return false
	}

	c.Lock()
	defer c.Unlock()

	if rec := e.activeBlock(r, c, o, now); rec != nil {
		decisionsTotal.WithLabelValues(string(DecisionDenyBanned), string(origin.Kind)).Inc()
		e.hub.Info(events.CategoryArchange, EventRequestDenied, map[string]any{
			"identity": origin.Value,
			"mode":     string(rec.Mode),
			"to":       rec.ExpiresAt,
		})
		writeBanDeny(w, origin.APIPath, rec)
		return false
	}

	if origin.Kind.Unlimited() {
		o.LastAccessAt = now
		o.RequestCount++
		decisionsTotal.WithLabelValues(string(DecisionAllow), string(origin.Kind)).Inc()
		return true
	}

	if o.Take(e.registry.Capacity(origin.Kind), e.registry.Frame(), now) {
		decisionsTotal.WithLabelValues(string(DecisionAllow), string(origin.Kind)).Inc()
		return true
	}

	// Bucket exhausted: escalate and deny this request with the
	// resulting ban.
	rec := e.hell.Punish(ctx, o.Fingerprint, o.BanSnapshot, &o.Strikes)
	o.BanSnapshot = rec

	bansTotal.WithLabelValues(string(rec.Mode)).Inc()
	decisionsTotal.WithLabelValues(string(DecisionDenyExceeded), string(origin.Kind)).Inc()
	e.hub.Info(events.CategoryArchange, EventRequestDenied, map[string]any{
		"identity": origin.Value,
		"mode":     string(rec.Mode),
		"to":       rec.ExpiresAt,
	})
	writeBanDeny(w, origin.APIPath, rec)
	return false
}

// activeBlock returns a BLOCKED record currently in force for the origin
// or the caller. Expired snapshots are refreshed from the ledger before
// deciding, so a lifted ban stops biting on its first request.
func (e *Engine) activeBlock(r *http.Request, c *caller.Caller, o *caller.Origin, now time.Time) *hell.Record {
	ctx := r.Context()

	if o.BanSnapshot != nil && o.BanSnapshot.Expired(now) {
		o.BanSnapshot = e.hell.Lookup(ctx, o.Fingerprint)
	}
	if rec := o.BanSnapshot; rec != nil && rec.Mode == hell.ModeBlocked && !rec.Expired(now) {
		return rec
	}

	if c.BanSnapshot != nil && c.BanSnapshot.Expired(now) {
		c.BanSnapshot = e.hell.Lookup(ctx, c.IdentityValue)
	}
	if rec := c.BanSnapshot; rec != nil && rec.Mode == hell.ModeBlocked && !rec.Expired(now) {
		return rec
	}

	return nil
}
