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
	"sync"
)

// MemoryLedger keeps ban records in process memory. Bans do not survive a
// restart; intended for development and tests.
type MemoryLedger struct {
	mu      sync.RWMutex
	byID    map[int64]*Record
	bySubj  map[string]*Record
	nextID  int64
	closed  bool
}

// Compile-time interface check.
var _ Ledger = (*MemoryLedger)(nil)

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		byID:   make(map[int64]*Record),
		bySubj: make(map[string]*Record),
		nextID: 1,
	}
}

func (l *MemoryLedger) FindBySubject(ctx context.Context, subject string) (*Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrLedgerClosed
	}
	rec, ok := l.bySubj[subject]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (l *MemoryLedger) Upsert(ctx context.Context, rec *Record) (*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrLedgerClosed
	}

	stored := *rec
	if prev, ok := l.bySubj[rec.SubjectValue]; ok {
		stored.ID = prev.ID
	} else {
		stored.ID = l.nextID
		l.nextID++
	}
	l.byID[stored.ID] = &stored
	l.bySubj[stored.SubjectValue] = &stored

	cp := stored
	return &cp, nil
}

func (l *MemoryLedger) Update(ctx context.Context, id int64, mode Mode, startedAt, expiresAt int64) (*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrLedgerClosed
	}
	rec, ok := l.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Mode = mode
	rec.StartedAt = startedAt
	rec.ExpiresAt = expiresAt

	cp := *rec
	return &cp, nil
}

func (l *MemoryLedger) DeleteByID(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLedgerClosed
	}
	if rec, ok := l.byID[id]; ok {
		delete(l.bySubj, rec.SubjectValue)
		delete(l.byID, id)
	}
	return nil
}

func (l *MemoryLedger) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, ErrLedgerClosed
	}
	var dropped int64
	for id, rec := range l.byID {
		if rec.ExpiresAt != 0 && rec.ExpiresAt <= now {
			delete(l.bySubj, rec.SubjectValue)
			delete(l.byID, id)
			dropped++
		}
	}
	return dropped, nil
}

func (l *MemoryLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Len reports the number of stored records. Test helper.
func (l *MemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byID)
}
