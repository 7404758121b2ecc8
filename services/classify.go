package services

// Label is the categorical verdict reported to the frontend.
type Label string

const (
	LabelAI      Label = "ai"
	LabelHuman   Label = "human"
	LabelMixed   Label = "mixed"
	LabelUnknown Label = "unknown"
)

// Classification thresholds. The deliberate band between them exists
// because provider scores near 0.5 are unreliable discriminators; a single
// midpoint split would report confident verdicts the score cannot support.
const (
	aiThreshold    = 0.65
	humanThreshold = 0.35
)

// Classify maps a normalized AI score in [0,1] to a label. It never
// returns LabelUnknown: that label is reserved for the caller's
// absent-score fallback.
func Classify(aiScore float64) Label {
	switch {
	case aiScore >= aiThreshold:
		return LabelAI
	case aiScore <= humanThreshold:
		return LabelHuman
	}
	return LabelMixed
}

// DetectionResult is the normalized outcome embedded in the HTTP response.
type DetectionResult struct {
	AIScore float64 `json:"ai_score"`
	Label   Label   `json:"label"`
}
