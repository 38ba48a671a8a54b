// Package eventlog persists structured operation events to a relational
// table. Recording is fire and forget: a store failure is downgraded to a
// local warning and never reaches the calling operation.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Recorder is the logging collaborator contract consumed by the coin service
// and adapters. Implementations must never fail the caller.
type Recorder interface {
	Record(ctx context.Context, level, message string, fields map[string]any)
}

// Event is one persisted log row.
type Event struct {
	ID      int64          `json:"id"`
	At      time.Time      `json:"at"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Store writes events to a sql database. The driver is chosen by DSN shape:
// a "mysql:" prefix selects the mysql driver, anything else is treated as a
// sqlite path or URI.
type Store struct {
	db *sql.DB
}

func NewStore(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("event log dsn is required")
	}
	driver := "sqlite"
	if rest, ok := strings.CutPrefix(dsn, "mysql:"); ok {
		driver = "mysql"
		dsn = rest
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := createSchema(db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB, driver string) error {
	schema := `CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		fields TEXT NOT NULL
	)`
	if driver == "mysql" {
		schema = `CREATE TABLE IF NOT EXISTS events (
			id BIGINT PRIMARY KEY AUTO_INCREMENT,
			at VARCHAR(64) NOT NULL,
			level VARCHAR(16) NOT NULL,
			message TEXT NOT NULL,
			fields TEXT NOT NULL
		)`
	}
	_, err := db.Exec(schema)
	return err
}

// Write inserts one event row. Used by the async recorder; direct callers
// that need the error can use it too.
func (s *Store) Write(ctx context.Context, level, message string, fields map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if fields == nil {
		fields = map[string]any{}
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (at, level, message, fields) VALUES (?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano), level, message, string(encoded))
	return err
}

// Recent returns the newest events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, at, level, message, fields FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event     Event
			at        string
			fieldsRaw string
		)
		if err := rows.Scan(&event.ID, &at, &event.Level, &event.Message, &fieldsRaw); err != nil {
			return nil, err
		}
		if parsed, err := time.Parse(time.RFC3339Nano, at); err == nil {
			event.At = parsed
		}
		if err := json.Unmarshal([]byte(fieldsRaw), &event.Fields); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
