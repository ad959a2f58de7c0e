// Package store persists extracted events and token usage in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/agendex/agendex/dbopen"
	"github.com/agendex/agendex/extract"
	"github.com/agendex/agendex/idgen"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	date       TEXT NOT NULL,
	time       TEXT,
	tag        TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_user_date ON events(user_id, date);

CREATE TABLE IF NOT EXISTS token_usage (
	user_id TEXT NOT NULL,
	month   TEXT NOT NULL,
	tokens  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, month)
);
`

// StoredEvent is a persisted calendar event.
type StoredEvent struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	Name      string  `json:"name"`
	Date      string  `json:"date"`
	Time      *string `json:"time"`
	Tag       *string `json:"tag"`
	CreatedAt string  `json:"created_at"`
}

// ListFilter narrows ListEvents results. Zero values mean no constraint.
type ListFilter struct {
	UserID string
	From   string // inclusive, YYYY-MM-DD
	To     string // inclusive, YYYY-MM-DD
	Limit  int
}

// Store owns the events and token_usage tables.
type Store struct {
	db     *sql.DB
	newID  idgen.Generator
	logger *slog.Logger
	now    func() time.Time
}

// Config configures a Store.
type Config struct {
	NewID  idgen.Generator
	Logger *slog.Logger

	// Now overrides the clock (tests). Nil means time.Now.
	Now func() time.Time
}

// Open opens (or creates) the store at path and applies the schema.
func Open(path string, cfg Config) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return wrap(db, cfg), nil
}

// New wraps an already-opened database. The schema must be applied by the
// caller (dbopen.WithSchema(Schema)).
func New(db *sql.DB, cfg Config) *Store {
	return wrap(db, cfg)
}

// Schema is the store's DDL, exported for callers that open the database
// themselves.
const Schema = schema

func wrap(db *sql.DB, cfg Config) *Store {
	if cfg.NewID == nil {
		cfg.NewID = idgen.Prefixed("evt_", idgen.UUIDv7())
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{db: db, newID: cfg.NewID, logger: cfg.Logger, now: cfg.Now}
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for components that share the database.
func (s *Store) DB() *sql.DB { return s.db }

// InsertEvents stores a parse result for a user. All rows commit or none do.
// It returns the stored rows with their assigned IDs.
func (s *Store) InsertEvents(ctx context.Context, userID string, events []extract.ParsedEvent) ([]StoredEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}

	stored := make([]StoredEvent, len(events))
	createdAt := s.now().UTC().Format(time.RFC3339)

	err := dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO events (id, user_id, name, date, time, tag, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, ev := range events {
			id := s.newID()
			if _, err := stmt.ExecContext(ctx, id, userID, ev.Name, ev.Date, ev.Time, ev.Tag, createdAt); err != nil {
				return fmt.Errorf("insert event %q: %w", ev.Name, err)
			}
			stored[i] = StoredEvent{
				ID:        id,
				UserID:    userID,
				Name:      ev.Name,
				Date:      ev.Date,
				Time:      ev.Time,
				Tag:       ev.Tag,
				CreatedAt: createdAt,
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	s.logger.Debug("events stored", "user", userID, "count", len(stored))
	return stored, nil
}

// ListEvents returns events matching the filter, ordered by date, then time
// (events without a time sort last within their day), then name.
func (s *Store) ListEvents(ctx context.Context, f ListFilter) ([]StoredEvent, error) {
	query := `SELECT id, user_id, name, date, time, tag, created_at FROM events WHERE 1=1`
	var args []any

	if f.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if f.From != "" {
		query += ` AND date >= ?`
		args = append(args, f.From)
	}
	if f.To != "" {
		query += ` AND date <= ?`
		args = append(args, f.To)
	}
	query += ` ORDER BY date, COALESCE(time, '23:59'), name`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list events: %w", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var ev StoredEvent
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Name, &ev.Date, &ev.Time, &ev.Tag, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// DeleteEvent removes one event owned by userID. Deleting a missing or
// foreign event reports sql.ErrNoRows.
func (s *Store) DeleteEvent(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("store: delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete event: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
