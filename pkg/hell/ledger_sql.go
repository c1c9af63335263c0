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
	"database/sql"
	"fmt"
	"time"
)

// SQLLedger is a SQL-backed implementation of Ledger.
// It supports Postgres, MySQL, and SQLite.
type SQLLedger struct {
	db      *sql.DB
	dialect string
}

// Compile-time interface check.
var _ Ledger = (*SQLLedger)(nil)

// NewSQLLedger creates a new SQL-backed ledger and initializes its schema.
// Supported dialects: "postgres", "mysql", "sqlite".
func NewSQLLedger(db *sql.DB, dialect string) (*SQLLedger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	switch dialect {
	case "postgres", "mysql", "sqlite":
		// Valid dialects
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	l := &SQLLedger{
		db:      db,
		dialect: dialect,
	}

	if err := l.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return l, nil
}

// initSchema creates the ban table. The ID column definition differs per
// dialect, so the full statement is picked by dialect.
func (l *SQLLedger) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var idColumn string
	switch l.dialect {
	case "postgres":
		idColumn = "id BIGSERIAL PRIMARY KEY"
	case "mysql":
		idColumn = "id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY"
	default:
		// SQLite
		idColumn = "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	createTable := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS hell_bans (
    %s,
    subject_value VARCHAR(255) NOT NULL UNIQUE,
    mode VARCHAR(16) NOT NULL,
    started_at BIGINT NOT NULL,
    expires_at BIGINT NOT NULL DEFAULT 0
)`, idColumn)

	if _, err := l.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create hell_bans table: %w", err)
	}

	// MySQL has no CREATE INDEX IF NOT EXISTS; the expiry sweep runs once
	// at startup, so a missing index there is acceptable.
	if l.dialect != "mysql" {
		createIndex := `CREATE INDEX IF NOT EXISTS idx_hell_bans_expires_at ON hell_bans(expires_at)`
		if _, err := l.db.ExecContext(ctx, createIndex); err != nil {
			return fmt.Errorf("failed to create expiry index: %w", err)
		}
	}

	return nil
}

func (l *SQLLedger) FindBySubject(ctx context.Context, subject string) (*Record, error) {
	query := `SELECT id, subject_value, mode, started_at, expires_at FROM hell_bans WHERE subject_value = ?`
	if l.dialect == "postgres" {
		query = `SELECT id, subject_value, mode, started_at, expires_at FROM hell_bans WHERE subject_value = $1`
	}

	var rec Record
	var mode string
	err := l.db.QueryRowContext(ctx, query, subject).Scan(&rec.ID, &rec.SubjectValue, &mode, &rec.StartedAt, &rec.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, ledgerErr("find", err)
	}
	rec.Mode = Mode(mode)

	return &rec, nil
}

func (l *SQLLedger) Upsert(ctx context.Context, rec *Record) (*Record, error) {
	var query string
	switch l.dialect {
	case "postgres":
		query = `
			INSERT INTO hell_bans (subject_value, mode, started_at, expires_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (subject_value)
			DO UPDATE SET mode = EXCLUDED.mode, started_at = EXCLUDED.started_at, expires_at = EXCLUDED.expires_at
		`
	case "mysql":
		query = `
			INSERT INTO hell_bans (subject_value, mode, started_at, expires_at)
			VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE mode = VALUES(mode), started_at = VALUES(started_at), expires_at = VALUES(expires_at)
		`
	default:
		// SQLite
		query = `
			INSERT INTO hell_bans (subject_value, mode, started_at, expires_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (subject_value)
			DO UPDATE SET mode = excluded.mode, started_at = excluded.started_at, expires_at = excluded.expires_at
		`
	}

	if _, err := l.db.ExecContext(ctx, query, rec.SubjectValue, string(rec.Mode), rec.StartedAt, rec.ExpiresAt); err != nil {
		return nil, ledgerErr("upsert", err)
	}

	// Re-read to pick up the row ID regardless of insert vs. replace.
	stored, err := l.FindBySubject(ctx, rec.SubjectValue)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ledgerErr("upsert", ErrNotFound)
	}

	return stored, nil
}

func (l *SQLLedger) Update(ctx context.Context, id int64, mode Mode, startedAt, expiresAt int64) (*Record, error) {
	query := `UPDATE hell_bans SET mode = ?, started_at = ?, expires_at = ? WHERE id = ?`
	if l.dialect == "postgres" {
		query = `UPDATE hell_bans SET mode = $1, started_at = $2, expires_at = $3 WHERE id = $4`
	}

	result, err := l.db.ExecContext(ctx, query, string(mode), startedAt, expiresAt, id)
	if err != nil {
		return nil, ledgerErr("update", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, ledgerErr("update", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	query = `SELECT id, subject_value, mode, started_at, expires_at FROM hell_bans WHERE id = ?`
	if l.dialect == "postgres" {
		query = `SELECT id, subject_value, mode, started_at, expires_at FROM hell_bans WHERE id = $1`
	}

	var rec Record
	var modeStr string
	if err := l.db.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.SubjectValue, &modeStr, &rec.StartedAt, &rec.ExpiresAt); err != nil {
		return nil, ledgerErr("update", err)
	}
	rec.Mode = Mode(modeStr)

	return &rec, nil
}

func (l *SQLLedger) DeleteByID(ctx context.Context, id int64) error {
	query := `DELETE FROM hell_bans WHERE id = ?`
	if l.dialect == "postgres" {
		query = `DELETE FROM hell_bans WHERE id = $1`
	}

	if _, err := l.db.ExecContext(ctx, query, id); err != nil {
		return ledgerErr("delete", err)
	}

	return nil
}

func (l *SQLLedger) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	query := `DELETE FROM hell_bans WHERE expires_at != 0 AND expires_at <= ?`
	if l.dialect == "postgres" {
		query = `DELETE FROM hell_bans WHERE expires_at != 0 AND expires_at <= $1`
	}

	result, err := l.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, ledgerErr("delete expired", err)
	}
	dropped, err := result.RowsAffected()
	if err != nil {
		return 0, ledgerErr("delete expired", err)
	}

	return dropped, nil
}

// Close closes the ledger.
// Note: This does NOT close the underlying database connection,
// as that connection may be shared with other components.
func (l *SQLLedger) Close() error {
	return nil
}

// Dialect returns the SQL dialect (for testing).
func (l *SQLLedger) Dialect() string {
	return l.dialect
}
