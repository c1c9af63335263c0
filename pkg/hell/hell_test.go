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
	"errors"
	"testing"
	"time"

	"github.com/kadirpekel/archange/pkg/config"
	"github.com/kadirpekel/archange/pkg/events"
)

func testHellConfig() *config.HellConfig {
	cfg := &config.AdmissionConfig{}
	cfg.SetDefaults()
	return &cfg.Hell
}

func testHub(t *testing.T) *events.Hub {
	t.Helper()
	hub := events.NewHub()
	hub.SetExit(func(code int) {
		t.Fatalf("unexpected stop event, exit code %d", code)
	})
	return hub
}

func newTestHell(t *testing.T, ledger Ledger) *Hell {
	t.Helper()
	h, err := New(context.Background(), testHellConfig(), ledger, testHub(t))
	if err != nil {
		t.Fatalf("failed to create hell: %v", err)
	}
	return h
}

func TestPunishFirstStrikeIsDelayed(t *testing.T) {
	h := newTestHell(t, NewMemoryLedger())
	strikes := &StrikeBudget{}

	rec := h.Punish(context.Background(), "subject-a", nil, strikes)

	if rec.Mode != ModeDelayed {
		t.Errorf("expected DELAYED, got %s", rec.Mode)
	}
	if rec.ExpiresAt == 0 {
		t.Error("expected finite expiry")
	}
	if strikes.Remaining != testHellConfig().StrikeBudget-1 {
		t.Errorf("expected %d strikes remaining, got %d", testHellConfig().StrikeBudget-1, strikes.Remaining)
	}
}

func TestPunishExhaustedBudgetIsBlocked(t *testing.T) {
	ledger := NewMemoryLedger()
	h := newTestHell(t, ledger)
	ctx := context.Background()

	budget := testHellConfig().StrikeBudget
	strikes := &StrikeBudget{}

	// Burn through the budget. Each violation happens after the previous
	// ban expired, so the escalation fast path never triggers.
	var rec *Record
	for i := 0; i < budget; i++ {
		rec = h.Punish(ctx, "subject-a", nil, strikes)
		if i < budget-1 && rec.Mode != ModeDelayed {
			t.Fatalf("strike %d: expected DELAYED, got %s", i+1, rec.Mode)
		}
	}

	if rec.Mode != ModeBlocked {
		t.Errorf("final strike: expected BLOCKED, got %s", rec.Mode)
	}
	if strikes.Remaining != budget {
		t.Errorf("expected budget reset to %d after block, got %d", budget, strikes.Remaining)
	}
	if ledger.Len() != 1 {
		t.Errorf("expected a single record per subject, got %d", ledger.Len())
	}
}

func TestPunishDuringDelayedEscalatesToBlocked(t *testing.T) {
	h := newTestHell(t, NewMemoryLedger())
	ctx := context.Background()
	strikes := &StrikeBudget{}

	first := h.Punish(ctx, "subject-a", nil, strikes)
	if first.Mode != ModeDelayed {
		t.Fatalf("expected DELAYED, got %s", first.Mode)
	}

	second := h.Punish(ctx, "subject-a", first, strikes)
	if second.Mode != ModeBlocked {
		t.Errorf("expected escalation to BLOCKED, got %s", second.Mode)
	}

	wantLifetime := testHellConfig().RepeatOffenseLifetime()
	gotLifetime := time.Duration(second.ExpiresAt-second.StartedAt) * time.Millisecond
	if gotLifetime != wantLifetime {
		t.Errorf("expected repeat-offense lifetime %v, got %v", wantLifetime, gotLifetime)
	}
}

func TestPunishStrikeWindowResets(t *testing.T) {
	h := newTestHell(t, NewMemoryLedger())
	ctx := context.Background()

	base := time.Now()
	h.now = func() time.Time { return base }

	strikes := &StrikeBudget{}
	h.Punish(ctx, "subject-a", nil, strikes)
	before := strikes.Remaining

	// Next violation arrives after the rolling window has elapsed; the
	// budget refills before it is counted.
	h.now = func() time.Time {
		return base.Add(testHellConfig().StrikeWindow() + time.Minute)
	}
	h.Punish(ctx, "subject-a", nil, strikes)

	if strikes.Remaining != before {
		t.Errorf("expected refreshed budget %d, got %d", before, strikes.Remaining)
	}
}

func TestLookupDropsExpiredRecord(t *testing.T) {
	ledger := NewMemoryLedger()
	h := newTestHell(t, ledger)
	ctx := context.Background()

	base := time.Now()
	if _, err := ledger.Upsert(ctx, &Record{
		SubjectValue: "subject-a",
		Mode:         ModeBlocked,
		StartedAt:    base.Add(-2 * time.Hour).UnixMilli(),
		ExpiresAt:    base.Add(-time.Hour).UnixMilli(),
	}); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}

	if rec := h.Lookup(ctx, "subject-a"); rec != nil {
		t.Errorf("expected expired record to be treated as clean, got %+v", rec)
	}
	if ledger.Len() != 0 {
		t.Errorf("expected lazy deletion, ledger still holds %d records", ledger.Len())
	}
}

func TestLookupPermanentRecordNeverExpires(t *testing.T) {
	ledger := NewMemoryLedger()
	h := newTestHell(t, ledger)
	ctx := context.Background()

	if _, err := ledger.Upsert(ctx, &Record{
		SubjectValue: "subject-a",
		Mode:         ModeBlocked,
		StartedAt:    time.Now().Add(-24 * 365 * time.Hour).UnixMilli(),
		ExpiresAt:    0,
	}); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}

	rec := h.Lookup(ctx, "subject-a")
	if rec == nil {
		t.Fatal("expected permanent record to remain active")
	}
	if rec.Mode != ModeBlocked {
		t.Errorf("expected BLOCKED, got %s", rec.Mode)
	}
}

func TestStartupSweepDropsExpired(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()
	now := time.Now()

	seed := []*Record{
		{SubjectValue: "expired", Mode: ModeDelayed, StartedAt: now.Add(-time.Hour).UnixMilli(), ExpiresAt: now.Add(-time.Minute).UnixMilli()},
		{SubjectValue: "active", Mode: ModeBlocked, StartedAt: now.UnixMilli(), ExpiresAt: now.Add(time.Hour).UnixMilli()},
		{SubjectValue: "permanent", Mode: ModeBlocked, StartedAt: now.UnixMilli(), ExpiresAt: 0},
	}
	for _, rec := range seed {
		if _, err := ledger.Upsert(ctx, rec); err != nil {
			t.Fatalf("failed to seed record: %v", err)
		}
	}

	newTestHell(t, ledger)

	if ledger.Len() != 2 {
		t.Errorf("expected 2 surviving records, got %d", ledger.Len())
	}
	if rec, _ := ledger.FindBySubject(ctx, "expired"); rec != nil {
		t.Error("expected expired record to be swept")
	}
}

// failingLedger errors on every operation.
type failingLedger struct{}

var errLedgerDown = errors.New("ledger down")

func (failingLedger) FindBySubject(ctx context.Context, subject string) (*Record, error) {
	return nil, errLedgerDown
}

func (failingLedger) Upsert(ctx context.Context, rec *Record) (*Record, error) {
	return nil, errLedgerDown
}

func (failingLedger) Update(ctx context.Context, id int64, mode Mode, startedAt, expiresAt int64) (*Record, error) {
	return nil, errLedgerDown
}

func (failingLedger) DeleteByID(ctx context.Context, id int64) error { return errLedgerDown }

func (failingLedger) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	return 0, errLedgerDown
}

func (failingLedger) Close() error { return nil }

func TestLookupFailsOpenOnLedgerError(t *testing.T) {
	h := newTestHell(t, failingLedger{})

	if rec := h.Lookup(context.Background(), "subject-a"); rec != nil {
		t.Errorf("expected fail-open nil on ledger error, got %+v", rec)
	}
}

func TestPunishSurvivesLedgerError(t *testing.T) {
	h := newTestHell(t, failingLedger{})
	strikes := &StrikeBudget{}

	rec := h.Punish(context.Background(), "subject-a", nil, strikes)
	if rec == nil {
		t.Fatal("expected in-memory record despite ledger error")
	}
	if rec.Mode != ModeDelayed {
		t.Errorf("expected DELAYED, got %s", rec.Mode)
	}
}

func TestMemoryLedgerUpsertReplacesBySubject(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	first, err := ledger.Upsert(ctx, &Record{SubjectValue: "subject-a", Mode: ModeDelayed})
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	second, err := ledger.Upsert(ctx, &Record{SubjectValue: "subject-a", Mode: ModeBlocked})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("expected upsert to keep ID %d, got %d", first.ID, second.ID)
	}
	if ledger.Len() != 1 {
		t.Errorf("expected 1 record, got %d", ledger.Len())
	}

	rec, err := ledger.FindBySubject(ctx, "subject-a")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if rec.Mode != ModeBlocked {
		t.Errorf("expected replaced mode BLOCKED, got %s", rec.Mode)
	}
}

func TestMemoryLedgerUpdateMissingID(t *testing.T) {
	ledger := NewMemoryLedger()

	_, err := ledger.Update(context.Background(), 42, ModeBlocked, 0, 0)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
