package render

// MoodCheck is the JSON object the model returns for a mood check-in.
type MoodCheck struct {
	Acknowledgement string   `json:"acknowledgement" jsonschema:"required"`
	Questions       []string `json:"questions" jsonschema:"required,minItems=3,maxItems=3"`
	Coping          []string `json:"coping" jsonschema:"required,minItems=2,maxItems=2"`
	Summary         string   `json:"summary" jsonschema:"required"`
}

// Affirmation is one element of the affirmations array.
type Affirmation struct {
	Affirmation string `json:"affirmation" jsonschema:"required"`
	Explanation string `json:"explanation" jsonschema:"required"`
}

// Affirmation count bounds accepted from the model.
const (
	MinAffirmations = 3
	MaxAffirmations = 5
)
