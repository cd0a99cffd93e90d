// Package eventlog keeps an append-only SQLite record of every game event.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/aaronzipp/avalon-alone/internal/eventlog/migrations"
	"github.com/aaronzipp/avalon-alone/internal/observer"
)

// DefaultLimit caps List when no limit is given.
const DefaultLimit = 500

// Record is one stored event. Data keeps the payload JSON as written.
type Record struct {
	ID        string             `json:"id"`
	GameID    string             `json:"game_id"`
	Seq       uint64             `json:"seq"`
	Name      observer.EventName `json:"event"`
	Audience  observer.Audience  `json:"audience"`
	Recipient string             `json:"recipient,omitempty"`
	At        time.Time          `json:"at"`
	Data      json.RawMessage    `json:"data"`
}

// Store persists events in SQLite and implements observer.Sink.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) the event log at path and applies
// embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Notify appends event. Re-delivery of an already stored event is a no-op.
func (s *Store) Notify(ctx context.Context, event observer.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if event.ID == "" || event.GameID == "" {
		return fmt.Errorf("event id and game id are required")
	}

	data, err := event.DataJSON()
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event.Name, err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO events (id, game_id, seq, name, audience, recipient, at, data)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.GameID,
		int64(event.Seq),
		string(event.Name),
		string(event.Audience),
		event.Recipient,
		event.At.UTC().UnixMilli(),
		string(data),
	)
	if err != nil {
		if isConstraintError(err) {
			return nil
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// List returns events of gameID with seq greater than afterSeq, oldest first.
func (s *Store) List(ctx context.Context, gameID string, afterSeq uint64, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, game_id, seq, name, audience, recipient, at, data
FROM events
WHERE game_id = ? AND seq > ?
ORDER BY seq ASC
LIMIT ?`, gameID, int64(afterSeq), limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			rec      Record
			seq      int64
			name     string
			audience string
			at       int64
			data     string
		)
		if err := rows.Scan(&rec.ID, &rec.GameID, &seq, &name, &audience, &rec.Recipient, &at, &data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		rec.Seq = uint64(seq)
		rec.Name = observer.EventName(name)
		rec.Audience = observer.Audience(audience)
		rec.At = time.UnixMilli(at).UTC()
		rec.Data = json.RawMessage(data)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return records, nil
}

// Count returns how many events are stored for gameID.
func (s *Store) Count(ctx context.Context, gameID string) (int, error) {
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM events WHERE game_id = ?", gameID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
