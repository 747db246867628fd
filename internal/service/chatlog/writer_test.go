package chatlog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodtherapist/backend/internal/logging"
	"github.com/moodtherapist/backend/internal/model/chat"
	chatlogmodel "github.com/moodtherapist/backend/internal/model/chatlog"
)

type memorySink struct {
	mu      sync.Mutex
	records []chatlogmodel.Record
	err     error
	block   chan struct{}
}

func (s *memorySink) Insert(ctx context.Context, record chatlogmodel.Record) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

func (s *memorySink) all() []chatlogmodel.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chatlogmodel.Record(nil), s.records...)
}

func quietLog() *logrus.Entry { return logging.Component(logging.Discard(), "chatlog") }

func TestWriterPersistsAndDrainsOnClose(t *testing.T) {
	sink := &memorySink{}
	w := NewWriter(sink, Options{QueueSize: 8, WriteTimeout: time.Second}, quietLog())

	userID := "user-1"
	for i := 0; i < 3; i++ {
		assert.True(t, w.Submit(chatlogmodel.Record{UserID: &userID, UserMessage: "hi", DetectedMood: chat.MoodNeutral}))
	}
	require.NoError(t, w.Close(context.Background()))

	records := sink.all()
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.NotEmpty(t, rec.ID)
		assert.False(t, rec.CreatedAt.IsZero())
	}
	stats := w.Stats()
	assert.EqualValues(t, 3, stats.Submitted)
	assert.EqualValues(t, 3, stats.Succeeded)
	assert.Zero(t, stats.Failed)
	assert.Zero(t, stats.Pending)
}

func TestWriterCountsFailures(t *testing.T) {
	w := NewWriter(&memorySink{err: errors.New("db down")}, Options{QueueSize: 4}, quietLog())

	assert.True(t, w.Submit(chatlogmodel.Record{UserMessage: "hi"}))
	require.NoError(t, w.Close(context.Background()))

	stats := w.Stats()
	assert.EqualValues(t, 1, stats.Failed)
	assert.Zero(t, stats.Succeeded)
}

func TestWriterDropsWhenFull(t *testing.T) {
	sink := &memorySink{block: make(chan struct{})}
	w := NewWriter(sink, Options{QueueSize: 1, WriteTimeout: time.Second}, quietLog())

	// the worker holds one record, the queue holds one more
	accepted := 0
	for i := 0; i < 5; i++ {
		if w.Submit(chatlogmodel.Record{UserMessage: "hi"}) {
			accepted++
		}
	}
	assert.LessOrEqual(t, accepted, 2)
	assert.EqualValues(t, 5-accepted, w.Stats().Dropped)

	close(sink.block)
	require.NoError(t, w.Close(context.Background()))
	assert.Len(t, sink.all(), accepted)
}

func TestWriterRejectsAfterClose(t *testing.T) {
	w := NewWriter(&memorySink{}, Options{}, quietLog())
	require.NoError(t, w.Close(context.Background()))

	assert.False(t, w.Submit(chatlogmodel.Record{UserMessage: "late"}))
	assert.EqualValues(t, 1, w.Stats().Dropped)
	assert.ErrorIs(t, w.Close(context.Background()), ErrWriterClosed)
}
