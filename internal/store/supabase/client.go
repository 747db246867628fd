// Package supabase persists chat logs through Supabase's PostgREST interface.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/tidwall/gjson"

	"github.com/moodtherapist/backend/internal/config"
	"github.com/moodtherapist/backend/internal/model/chat"
	"github.com/moodtherapist/backend/internal/model/chatlog"
)

// ErrNotConfigured is returned when no project URL or key is set.
var ErrNotConfigured = errors.New("supabase not configured")

const listColumns = "id,user_id,user_message,bot_response,detected_mood,created_at"

// created_at may be timestamptz or a plain timestamp column; the latter is read as UTC.
var createdAtLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999"}

// Store writes to and reads from the chat log table.
type Store struct {
	client *postgrest.Client
	table  string
}

// New creates a store against {cfg.URL}/rest/v1 using the write key.
func New(cfg config.SupabaseConfig) (*Store, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	table := cfg.Table
	if table == "" {
		table = "chatlog"
	}

	key := cfg.WriteKey()
	client := postgrest.NewClient(cfg.URL+"/rest/v1", "public", map[string]string{
		"apikey":        key,
		"Authorization": "Bearer " + key,
	})
	if client.ClientError != nil {
		return nil, fmt.Errorf("create postgrest client: %w", client.ClientError)
	}
	return &Store{client: client, table: table}, nil
}

type insertRow struct {
	UserID       *string   `json:"user_id"`
	UserMessage  string    `json:"user_message"`
	BotResponse  string    `json:"bot_response"`
	DetectedMood chat.Mood `json:"detected_mood"`
}

// Insert appends one row. The table assigns id and created_at.
func (s *Store) Insert(ctx context.Context, record chatlog.Record) error {
	row := insertRow{
		UserID:       record.UserID,
		UserMessage:  record.UserMessage,
		BotResponse:  record.BotResponse,
		DetectedMood: record.DetectedMood,
	}
	_, err := execute(ctx, "insert", s.client.From(s.table).Insert(row, false, "", "minimal", ""))
	return err
}

// List returns rows matching q, newest first.
func (s *Store) List(ctx context.Context, q chatlog.Query) ([]chatlog.Record, error) {
	query := s.client.From(s.table).Select(listColumns, "", false)
	if q.UserID != "" {
		query = query.Eq("user_id", q.UserID)
	}
	if !q.Since.IsZero() {
		query = query.Gte("created_at", q.Since.UTC().Format(time.RFC3339))
	}
	query = query.Order("created_at", &postgrest.OrderOpts{Ascending: false})

	body, err := execute(ctx, "list", query)
	if err != nil {
		return nil, err
	}
	return parseRecords(body)
}

// Ping issues a one-row read to prove the table is reachable with the configured key.
func (s *Store) Ping(ctx context.Context) error {
	_, err := execute(ctx, "ping", s.client.From(s.table).Select("id", "", false).Limit(1, ""))
	return err
}

// execute runs the query and gives up when ctx ends first; the postgrest client has no
// context plumbing of its own.
func execute(ctx context.Context, op string, query *postgrest.FilterBuilder) ([]byte, error) {
	type result struct {
		body []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, _, err := query.Execute()
		done <- result{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("supabase %s: %w", op, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("supabase %s: %w", op, res.err)
		}
		return res.body, nil
	}
}

func parseRecords(body []byte) ([]chatlog.Record, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("supabase list: invalid JSON")
	}

	var records []chatlog.Record
	var parseErr error
	gjson.ParseBytes(body).ForEach(func(_, row gjson.Result) bool {
		record := chatlog.Record{
			ID:           row.Get("id").String(),
			UserMessage:  row.Get("user_message").String(),
			BotResponse:  row.Get("bot_response").String(),
			DetectedMood: chat.Mood(row.Get("detected_mood").String()),
		}
		if uid := row.Get("user_id"); uid.Exists() && uid.Type != gjson.Null {
			id := uid.String()
			record.UserID = &id
		}
		created, err := parseCreatedAt(row.Get("created_at").String())
		if err != nil {
			parseErr = fmt.Errorf("supabase list: parse created_at: %w", err)
			return false
		}
		record.CreatedAt = created
		records = append(records, record)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return records, nil
}

func parseCreatedAt(raw string) (time.Time, error) {
	var firstErr error
	for _, layout := range createdAtLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
