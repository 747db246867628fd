package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodtherapist/backend/internal/model/chat"
	"github.com/moodtherapist/backend/internal/model/chatlog"
)

func rec(at time.Time, mood chat.Mood) chatlog.Record {
	return chatlog.Record{CreatedAt: at, DetectedMood: mood}
}

func TestComputeEmpty(t *testing.T) {
	stats := Compute(nil, nil)
	assert.Zero(t, stats.TotalChats)
	assert.Zero(t, stats.TotalDays)
	assert.Equal(t, "0", stats.AverageChatsPerDay)
	assert.Equal(t, "No data", stats.MostFrequentMood)
	assert.NotNil(t, stats.Daily)
	assert.Empty(t, stats.MoodDistribution)
}

func TestComputeAggregates(t *testing.T) {
	day := func(d, h int) time.Time { return time.Date(2025, 3, d, h, 0, 0, 0, time.UTC) }
	records := []chatlog.Record{
		rec(day(3, 9), chat.MoodNegative),
		rec(day(1, 9), chat.MoodPositive),
		rec(day(1, 18), chat.MoodNegative),
		rec(day(3, 20), chat.MoodNegative),
		rec(day(2, 12), chat.MoodNeutral),
	}

	stats := Compute(records, time.UTC)
	assert.Equal(t, 5, stats.TotalChats)
	assert.Equal(t, 3, stats.TotalDays)
	assert.Equal(t, "1.7", stats.AverageChatsPerDay)
	assert.Equal(t, "negative", stats.MostFrequentMood)
	assert.Equal(t, []chatlog.MoodCount{
		{Name: "positive", Value: 1},
		{Name: "neutral", Value: 1},
		{Name: "negative", Value: 3},
	}, stats.MoodDistribution)
	assert.Equal(t, []chatlog.DailyCount{
		{Date: "Mar 01", Conversations: 2},
		{Date: "Mar 02", Conversations: 1},
		{Date: "Mar 03", Conversations: 2},
	}, stats.Daily)
	assert.Equal(t, chatlog.DailyMoodCount{Date: "Mar 03", Negative: 2}, stats.MoodTrend[2])
}

func TestComputeKeepsLastSevenDays(t *testing.T) {
	var records []chatlog.Record
	for d := 1; d <= 10; d++ {
		records = append(records, rec(time.Date(2025, 4, d, 12, 0, 0, 0, time.UTC), chat.MoodNeutral))
	}

	stats := Compute(records, time.UTC)
	assert.Equal(t, 10, stats.TotalDays)
	require.Len(t, stats.Daily, 7)
	assert.Equal(t, "Apr 04", stats.Daily[0].Date)
	assert.Equal(t, "Apr 10", stats.Daily[6].Date)
	assert.Len(t, stats.MoodTrend, 7)
}

func TestComputeTieBreaksInDisplayOrder(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	stats := Compute([]chatlog.Record{rec(at, chat.MoodNegative), rec(at, chat.MoodPositive)}, time.UTC)
	assert.Equal(t, "positive", stats.MostFrequentMood)
}

func TestComputeUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	at := time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)
	stats := Compute([]chatlog.Record{rec(at, chat.MoodNeutral)}, loc)
	assert.Equal(t, "Jan 02", stats.Daily[0].Date)
}

type fakeReader struct {
	query   chatlog.Query
	records []chatlog.Record
	err     error
}

func (f *fakeReader) List(_ context.Context, q chatlog.Query) ([]chatlog.Record, error) {
	f.query = q
	return f.records, f.err
}

func TestServiceStats(t *testing.T) {
	now := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	reader := &fakeReader{records: []chatlog.Record{rec(now, chat.MoodPositive)}}
	svc := NewService(reader, nil)
	svc.now = func() time.Time { return now }

	stats, err := svc.Stats(context.Background(), "user-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalChats)
	assert.Equal(t, "user-1", reader.query.UserID)
	assert.Equal(t, now.AddDate(0, 0, -DefaultDays), reader.query.Since)

	_, err = svc.Stats(context.Background(), "user-1", 10000)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -MaxDays), reader.query.Since)

	reader.err = errors.New("boom")
	_, err = svc.Stats(context.Background(), "user-1", 7)
	assert.Error(t, err)
}

func TestServiceUnavailable(t *testing.T) {
	svc := NewService(nil, nil)
	assert.False(t, svc.Available())
	_, err := svc.Stats(context.Background(), "u", 30)
	assert.ErrorIs(t, err, ErrUnavailable)
}
