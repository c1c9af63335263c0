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

package caller

import (
	"context"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/kadirpekel/archange/pkg/config"
	"github.com/kadirpekel/archange/pkg/events"
	"github.com/kadirpekel/archange/pkg/hell"
	"github.com/kadirpekel/archange/pkg/identity"
)

// Event messages emitted by the caller registry.
const (
	EventCallerCreated = "archange caller created"
	EventOriginCreated = "archange origin created"
)

// seedTimeout bounds the background ledger lookup that fills a fresh
// origin's ban snapshot.
const seedTimeout = 5 * time.Second

// Registry is the in-memory directory of active callers. The sharded map
// makes lookup-or-create race-free across requests; everything inside one
// caller is serialized by that caller's lock.
type Registry struct {
	callers cmap.ConcurrentMap[string, *Caller]
	bucket  *config.BucketConfig
	hell    *hell.Hell
	hub     *events.Hub
	now     func() time.Time

	// seeding tracks in-flight snapshot lookups so tests can drain them.
	seeding sync.WaitGroup
}

// NewRegistry creates an empty registry.
func NewRegistry(bucket *config.BucketConfig, h *hell.Hell, hub *events.Hub) *Registry {
	return &Registry{
		callers: cmap.New[*Caller](),
		bucket:  bucket,
		hell:    h,
		hub:     hub,
		now:     time.Now,
	}
}

// Capacity returns the bucket capacity for an identity kind. Zero for
// kinds that bypass the bucket.
func (r *Registry) Capacity(kind identity.Kind) int {
	switch kind {
	case identity.KindIP:
		return r.bucket.Limit.IP
	case identity.KindUnknown:
		return r.bucket.Limit.Unknown
	case identity.KindAuthWeb:
		return r.bucket.Limit.AuthWeb
	case identity.KindAuthAPI:
		return r.bucket.Limit.AuthAPI
	}
	return 0
}

// Frame returns the shared bucket refill window.
func (r *Registry) Frame() time.Duration {
	return r.bucket.FrameLifetime()
}

// GetOrCreate resolves the caller and origin for a classified request,
// creating either on first sight. Exactly one caller wins creation under
// concurrency; duplicate fingerprints never produce duplicate origins.
//
// The returned caller is NOT locked; callers lock it themselves around the
// admission sequence.
func (r *Registry) GetOrCreate(origin identity.Origin) (*Caller, *Origin, bool) {
	now := r.now()

	c, ok := r.callers.Get(origin.Value)
	isNew := false
	if !ok {
		fresh := &Caller{
			IdentityValue: origin.Value,
			Kind:          origin.Kind,
			CreatedAt:     now,
			Authorized:    !origin.TrustInconsistent,
			origins:       make(map[string]*Origin, 1),
		}
		if r.callers.SetIfAbsent(origin.Value, fresh) {
			c = fresh
			isNew = true
			r.hub.Info(events.CategoryArchange, EventCallerCreated, map[string]any{
				"identity":   origin.Value,
				"kind":       string(origin.Kind),
				"authorized": fresh.Authorized,
			})
		} else {
			// Lost the race; the winner's caller is authoritative.
			c, _ = r.callers.Get(origin.Value)
		}
	}

	fingerprint := Fingerprint(origin.RawUserAgent, origin.Value, origin.ClientIP)

	c.Lock()

	if o := c.Origin(fingerprint); o != nil {
		c.Unlock()
		return c, o, isNew
	}

	// Single-origin kinds keep their first origin for good; a new
	// fingerprint maps back to it instead of growing the set.
	if !origin.Kind.MultiOrigin() && len(c.origins) > 0 {
		for _, o := range c.origins {
			c.Unlock()
			return c, o, isNew
		}
	}

	o := &Origin{
		Fingerprint:     fingerprint,
		ClientIP:        origin.ClientIP,
		UserAgent:       origin.UserAgent,
		CreatedAt:       now,
		LastAccessAt:    now,
		TokensRemaining: r.Capacity(origin.Kind),
		WindowStartedAt: now,
	}
	c.origins[fingerprint] = o
	first := len(c.origins) == 1
	c.Unlock()

	// Emitted outside the lock so listeners may touch the caller.
	r.hub.Info(events.CategoryArchange, EventOriginCreated, map[string]any{
		"identity":    origin.Value,
		"fingerprint": fingerprint,
		"browser":     origin.UserAgent.BrowserName,
		"os":          origin.UserAgent.OSName,
	})

	r.seeding.Add(1)
	go r.seedSnapshots(c, o, first)

	return c, o, isNew
}

// seedSnapshots fills a fresh origin's ban snapshot from the ledger, and
// the caller-level snapshot when this is the caller's first origin. Runs
// off the request path; the snapshot simply arrives when it arrives.
func (r *Registry) seedSnapshots(c *Caller, o *Origin, first bool) {
	defer r.seeding.Done()

	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()

	originBan := r.hell.Lookup(ctx, o.Fingerprint)

	var callerBan *hell.Record
	if first {
		callerBan = r.hell.Lookup(ctx, c.IdentityValue)
	}

	c.Lock()
	defer c.Unlock()
	// A request served while the lookup was in flight may have pushed a
	// fresher snapshot; the seed only fills empty slots.
	if originBan != nil && o.BanSnapshot == nil {
		o.BanSnapshot = originBan
	}
	if callerBan != nil && c.BanSnapshot == nil {
		c.BanSnapshot = callerBan
	}
}

// WaitSeeding blocks until all in-flight snapshot lookups finish. Intended
// for tests.
func (r *Registry) WaitSeeding() {
	r.seeding.Wait()
}

// Len reports the number of known callers.
func (r *Registry) Len() int {
	return r.callers.Count()
}
