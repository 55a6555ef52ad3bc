// SPDX-License-Identifier: AGPL-3.0-only
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/velonavasiliki/youtube-agent/internal/model"

	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

// SQLiteStore implements model.TurnStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure the parent directory exists.
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveTurn persists a completed conversation turn.
func (s *SQLiteStore) SaveTurn(record *model.TurnRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO turns (session_id, prompt, reply, tool_cycles, error, start_time, end_time, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.SessionID,
		record.Prompt,
		record.Reply,
		record.ToolCycles,
		record.Error,
		record.StartTime.Format(timeFormat),
		record.EndTime.Format(timeFormat),
		record.Duration,
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// GetTurns returns up to limit turns for the given session ID, ordered
// by start_time descending (most recent first).
func (s *SQLiteStore) GetTurns(sessionID string, limit int) ([]*model.TurnRecord, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	rows, err := s.db.Query(`
		SELECT session_id, prompt, reply, tool_cycles, error, start_time, end_time, duration
		FROM turns
		WHERE session_id = ?
		ORDER BY start_time DESC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var records []*model.TurnRecord
	for rows.Next() {
		var r model.TurnRecord
		var startStr, endStr string
		if err := rows.Scan(
			&r.SessionID, &r.Prompt, &r.Reply, &r.ToolCycles,
			&r.Error, &startStr, &endStr, &r.Duration,
		); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		r.StartTime, _ = time.Parse(timeFormat, startStr)
		r.EndTime, _ = time.Parse(timeFormat, endStr)
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}

	return records, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
