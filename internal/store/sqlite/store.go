package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/moodtherapist/backend/internal/model/chat"
	"github.com/moodtherapist/backend/internal/model/chatlog"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store provides SQLite-backed persistence for chat log records.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Single connection; concurrent writers would hit SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db)
}

// New returns a Store bound to an existing, migrated database handle.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Store{db: db}, nil
}

// Insert appends one record.
func (s *Store) Insert(ctx context.Context, record chatlog.Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	var userID any
	if record.UserID != nil {
		userID = *record.UserID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chatlog (id, user_id, user_message, bot_response, detected_mood, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID, userID, record.UserMessage, record.BotResponse, string(record.DetectedMood),
		record.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert chat log: %w", err)
	}
	return nil
}

// List returns records matching q, newest first. An empty UserID matches every user.
func (s *Store) List(ctx context.Context, q chatlog.Query) ([]chatlog.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, user_message, bot_response, detected_mood, created_at
		 FROM chatlog
		 WHERE (? = '' OR user_id = ?) AND created_at >= ?
		 ORDER BY created_at DESC`,
		q.UserID, q.UserID, q.Since.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("list chat log: query: %w", err)
	}
	defer rows.Close()

	var records []chatlog.Record
	for rows.Next() {
		var (
			record    chatlog.Record
			userID    sql.NullString
			mood      string
			createdAt string
		)
		if err := rows.Scan(&record.ID, &userID, &record.UserMessage, &record.BotResponse, &mood, &createdAt); err != nil {
			return nil, fmt.Errorf("list chat log: scan: %w", err)
		}
		if userID.Valid {
			id := userID.String
			record.UserID = &id
		}
		record.DetectedMood = chat.Mood(mood)
		record.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("list chat log: parse created_at %q: %w", createdAt, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list chat log: rows: %w", err)
	}
	return records, nil
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
