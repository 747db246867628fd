package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/moodtherapist/backend/internal/model/chat"
	"github.com/moodtherapist/backend/internal/model/chatlog"
	chatlogsvc "github.com/moodtherapist/backend/internal/service/chatlog"
)

// ErrUnavailable is returned when the configured backend has no read side.
var ErrUnavailable = errors.New("chat log backend is not readable")

const (
	DefaultDays = 30
	MaxDays     = 365
	chartDays   = 7
	noData      = "No data"
)

// Service computes per-user analytics from the chat log.
type Service struct {
	reader chatlogsvc.Reader
	loc    *time.Location
	now    func() time.Time
}

// NewService creates a service. reader may be nil, in which case Stats reports ErrUnavailable.
func NewService(reader chatlogsvc.Reader, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{reader: reader, loc: loc, now: time.Now}
}

// Available reports whether a reader is wired.
func (s *Service) Available() bool {
	return s.reader != nil
}

// Stats summarises the user's last days of conversations.
func (s *Service) Stats(ctx context.Context, userID string, days int) (chatlog.Stats, error) {
	if s.reader == nil {
		return chatlog.Stats{}, ErrUnavailable
	}
	if days <= 0 {
		days = DefaultDays
	}
	if days > MaxDays {
		days = MaxDays
	}

	records, err := s.reader.List(ctx, chatlog.Query{
		UserID: userID,
		Since:  s.now().AddDate(0, 0, -days),
	})
	if err != nil {
		return chatlog.Stats{}, fmt.Errorf("load chat log: %w", err)
	}
	return Compute(records, s.loc), nil
}

// Compute derives dashboard statistics from records in any order.
func Compute(records []chatlog.Record, loc *time.Location) chatlog.Stats {
	if loc == nil {
		loc = time.UTC
	}
	stats := chatlog.Stats{
		TotalChats:         len(records),
		AverageChatsPerDay: "0",
		MostFrequentMood:   noData,
		MoodDistribution:   []chatlog.MoodCount{},
		Daily:              []chatlog.DailyCount{},
		MoodTrend:          []chatlog.DailyMoodCount{},
	}
	if len(records) == 0 {
		return stats
	}

	moodCounts := make(map[chat.Mood]int)
	type day struct {
		start time.Time
		total int
		moods map[chat.Mood]int
	}
	days := make(map[string]*day)

	for _, rec := range records {
		moodCounts[rec.DetectedMood]++

		local := rec.CreatedAt.In(loc)
		key := local.Format("2006-01-02")
		d, ok := days[key]
		if !ok {
			d = &day{
				start: time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc),
				moods: make(map[chat.Mood]int),
			}
			days[key] = d
		}
		d.total++
		d.moods[rec.DetectedMood]++
	}

	stats.TotalDays = len(days)
	stats.AverageChatsPerDay = strconv.FormatFloat(float64(len(records))/float64(len(days)), 'f', 1, 64)
	stats.MoodDistribution = distribution(moodCounts)
	if len(stats.MoodDistribution) > 0 {
		stats.MostFrequentMood = mostFrequent(stats.MoodDistribution)
	}

	ordered := make([]*day, 0, len(days))
	for _, d := range days {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].start.Before(ordered[j].start) })
	if len(ordered) > chartDays {
		ordered = ordered[len(ordered)-chartDays:]
	}

	for _, d := range ordered {
		label := d.start.Format("Jan 02")
		stats.Daily = append(stats.Daily, chatlog.DailyCount{Date: label, Conversations: d.total})
		stats.MoodTrend = append(stats.MoodTrend, chatlog.DailyMoodCount{
			Date:     label,
			Positive: d.moods[chat.MoodPositive],
			Neutral:  d.moods[chat.MoodNeutral],
			Negative: d.moods[chat.MoodNegative],
		})
	}
	return stats
}

// distribution lists known moods in display order, then any unexpected labels by name.
func distribution(counts map[chat.Mood]int) []chatlog.MoodCount {
	out := make([]chatlog.MoodCount, 0, len(counts))
	for _, m := range chat.Moods {
		if n := counts[m]; n > 0 {
			out = append(out, chatlog.MoodCount{Name: string(m), Value: n})
		}
	}

	var extra []string
	for m := range counts {
		if !m.Valid() && m != "" {
			extra = append(extra, string(m))
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out = append(out, chatlog.MoodCount{Name: name, Value: counts[chat.Mood(name)]})
	}
	return out
}

// mostFrequent returns the largest bucket; ties go to the earlier entry.
func mostFrequent(dist []chatlog.MoodCount) string {
	best := dist[0]
	for _, mc := range dist[1:] {
		if mc.Value > best.Value {
			best = mc
		}
	}
	return best.Name
}
