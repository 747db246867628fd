package chatlog

// Stats summarises a user's chat log for the dashboard.
type Stats struct {
	TotalChats         int              `json:"totalChats"`
	TotalDays          int              `json:"totalDays"`
	AverageChatsPerDay string           `json:"averageChatsPerDay"`
	MostFrequentMood   string           `json:"mostFrequentMood"`
	MoodDistribution   []MoodCount      `json:"moodDistribution"`
	Daily              []DailyCount     `json:"daily"`
	MoodTrend          []DailyMoodCount `json:"moodTrend"`
}

// MoodCount is one slice of the mood distribution chart.
type MoodCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// DailyCount is the number of conversations on one day.
type DailyCount struct {
	Date          string `json:"date"`
	Conversations int    `json:"conversations"`
}

// DailyMoodCount splits one day's conversations by mood.
type DailyMoodCount struct {
	Date     string `json:"date"`
	Positive int    `json:"positive"`
	Neutral  int    `json:"neutral"`
	Negative int    `json:"negative"`
}
