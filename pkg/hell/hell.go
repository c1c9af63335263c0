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
	"context"
	"fmt"
	"time"

	"github.com/kadirpekel/archange/pkg/config"
	"github.com/kadirpekel/archange/pkg/events"
)

// Event messages emitted by the ban subsystem. Listeners key on these.
const (
	EventBanPushed         = "archange hell ban pushed"
	EventBanEscalated      = "archange hell ban escalated"
	EventBanDropped        = "archange hell expired ban dropped"
	EventSweepComplete     = "archange hell startup sweep complete"
	EventLedgerUnavailable = "archange hell ledger unavailable"
)

// StrikeBudget tracks soft-ban allowance inside a rolling window. When the
// budget runs out the next violation lands a hard BLOCKED ban instead of
// another DELAYED one. The window restarts lazily: the reset happens on the
// first violation after the window has elapsed, not on a timer.
type StrikeBudget struct {
	Remaining       int
	WindowStartedAt time.Time
}

// Hell is the escalation state machine over a ban ledger.
//
// Every ledger failure is reported as a warning event and treated as
// "not banned": a broken ledger degrades enforcement, it never blocks
// legitimate traffic.
type Hell struct {
	cfg    *config.HellConfig
	ledger Ledger
	hub    *events.Hub
	now    func() time.Time
}

// New wires the state machine and runs the one-time startup sweep that
// clears records whose lifetime passed while the process was down.
func New(ctx context.Context, cfg *config.HellConfig, ledger Ledger, hub *events.Hub) (*Hell, error) {
	if cfg == nil {
		return nil, fmt.Errorf("hell configuration is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ban ledger is required")
	}
	if hub == nil {
		return nil, fmt.Errorf("event hub is required")
	}

	h := &Hell{
		cfg:    cfg,
		ledger: ledger,
		hub:    hub,
		now:    time.Now,
	}
	h.sweep(ctx)

	return h, nil
}

// sweep drops every already-expired record and reports how many went.
func (h *Hell) sweep(ctx context.Context) {
	dropped, err := h.ledger.DeleteExpired(ctx, h.now().UnixMilli())
	if err != nil {
		h.hub.Warning(events.CategoryLedger, EventLedgerUnavailable, map[string]any{
			"op":    "sweep",
			"error": err.Error(),
		})
		return
	}
	h.hub.Info(events.CategoryLedger, EventSweepComplete, map[string]any{
		"dropped": dropped,
	})
}

// Lookup returns the active ban for the subject, or nil when the subject is
// clean. Expired records are deleted on the spot, so the ledger is
// self-cleaning under read traffic.
func (h *Hell) Lookup(ctx context.Context, subject string) *Record {
	rec, err := h.ledger.FindBySubject(ctx, subject)
	if err != nil {
		h.hub.Warning(events.CategoryLedger, EventLedgerUnavailable, map[string]any{
			"op":      "lookup",
			"subject": subject,
			"error":   err.Error(),
		})
		return nil
	}
	if rec == nil {
		return nil
	}

	if rec.Expired(h.now()) {
		if err := h.ledger.DeleteByID(ctx, rec.ID); err != nil {
			h.hub.Warning(events.CategoryLedger, EventLedgerUnavailable, map[string]any{
				"op":      "drop expired",
				"subject": subject,
				"error":   err.Error(),
			})
		}
		h.hub.Info(events.CategoryLedger, EventBanDropped, map[string]any{
			"subject": subject,
			"mode":    string(rec.Mode),
		})
		return nil
	}

	return rec
}

// Punish records a rate-limit violation by the subject and returns the
// resulting ban record.
//
// A violation while an unexpired DELAYED ban is in force escalates straight
// to BLOCKED for the repeat-offense lifetime. Otherwise the strike budget
// decides: while strikes remain the subject gets a short DELAYED ban; the
// strike that exhausts the budget lands a full BLOCKED ban and resets the
// budget for whatever comes after the ban.
//
// The current record and strike budget belong to the caller's origin and
// must be accessed under the caller's lock.
func (h *Hell) Punish(ctx context.Context, subject string, current *Record, strikes *StrikeBudget) *Record {
	now := h.now()

	if current != nil && current.Mode == ModeDelayed && !current.Expired(now) {
		return h.escalate(ctx, subject, current, now)
	}

	if strikes.WindowStartedAt.IsZero() || now.Sub(strikes.WindowStartedAt) > h.cfg.StrikeWindow() {
		strikes.Remaining = h.cfg.StrikeBudget
		strikes.WindowStartedAt = now
	}
	strikes.Remaining--

	rec := &Record{
		SubjectValue: subject,
		StartedAt:    now.UnixMilli(),
	}
	if strikes.Remaining > 0 {
		rec.Mode = ModeDelayed
		rec.ExpiresAt = now.Add(h.cfg.DelayedLifetime()).UnixMilli()
	} else {
		rec.Mode = ModeBlocked
		rec.ExpiresAt = now.Add(h.cfg.BlockedLifetime()).UnixMilli()
		strikes.Remaining = h.cfg.StrikeBudget
		strikes.WindowStartedAt = time.Time{}
	}

	stored, err := h.ledger.Upsert(ctx, rec)
	if err != nil {
		h.hub.Warning(events.CategoryLedger, EventLedgerUnavailable, map[string]any{
			"op":      "push",
			"subject": subject,
			"error":   err.Error(),
		})
		// Enforcement carries on from the in-memory snapshot even though
		// the ban did not persist.
		return rec
	}

	h.hub.Info(events.CategoryArchange, EventBanPushed, map[string]any{
		"subject": subject,
		"mode":    string(stored.Mode),
		"to":      stored.ExpiresAt,
	})

	return stored
}

// escalate upgrades an active DELAYED ban to BLOCKED.
func (h *Hell) escalate(ctx context.Context, subject string, current *Record, now time.Time) *Record {
	startedAt := now.UnixMilli()
	expiresAt := now.Add(h.cfg.RepeatOffenseLifetime()).UnixMilli()

	if current.ID != 0 {
		stored, err := h.ledger.Update(ctx, current.ID, ModeBlocked, startedAt, expiresAt)
		if err == nil {
			h.hub.Info(events.CategoryArchange, EventBanEscalated, map[string]any{
				"subject": subject,
				"to":      stored.ExpiresAt,
			})
			return stored
		}
		h.hub.Warning(events.CategoryLedger, EventLedgerUnavailable, map[string]any{
			"op":      "escalate",
			"subject": subject,
			"error":   err.Error(),
		})
	}

	rec := &Record{
		ID:           current.ID,
		SubjectValue: subject,
		Mode:         ModeBlocked,
		StartedAt:    startedAt,
		ExpiresAt:    expiresAt,
	}
	if current.ID == 0 {
		// The original push never persisted; try again with the upgrade.
		if stored, err := h.ledger.Upsert(ctx, rec); err == nil {
			h.hub.Info(events.CategoryArchange, EventBanEscalated, map[string]any{
				"subject": subject,
				"to":      stored.ExpiresAt,
			})
			return stored
		}
	}

	return rec
}

// Close releases the underlying ledger.
func (h *Hell) Close() error {
	return h.ledger.Close()
}
