// Package redisstream fans chat log records out to a Redis stream for downstream consumers.
package redisstream

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/moodtherapist/backend/internal/model/chatlog"
)

// Sink appends records with XADD. It has no read side.
type Sink struct {
	rdb    *redis.Client
	stream string
}

// Dial parses redisURL and returns a sink writing to stream.
func Dial(redisURL, stream string) (*Sink, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return New(redis.NewClient(opts), stream), nil
}

// New wraps an existing client.
func New(rdb *redis.Client, stream string) *Sink {
	if stream == "" {
		stream = "chatlog"
	}
	return &Sink{rdb: rdb, stream: stream}
}

// Insert appends record to the stream.
func (s *Sink) Insert(ctx context.Context, record chatlog.Record) error {
	userID := ""
	if record.UserID != nil {
		userID = *record.UserID
	}

	err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"id":            record.ID,
			"user_id":       userID,
			"user_message":  record.UserMessage,
			"bot_response":  record.BotResponse,
			"detected_mood": string(record.DetectedMood),
			"created_at":    record.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// Ping checks the connection.
func (s *Sink) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the client.
func (s *Sink) Close() error {
	return s.rdb.Close()
}
