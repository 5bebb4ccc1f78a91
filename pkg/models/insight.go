package models

// QuestionInsight is the per-question slice of an InsightBlob.
type QuestionInsight struct {
	QuestionIndex int      `json:"question_index"`
	Question      string   `json:"question"`
	IdeaScore     float64  `json:"idea_score"`
	Consensus     float64  `json:"consensus"`
	AvgSentiment  float64  `json:"avg_sentiment"`
	TopQuotes     []Quote  `json:"top_quotes"`
	Participants  []string `json:"participants"`
}

// Quote is a ranked response excerpt surfaced as supporting evidence.
type Quote struct {
	PersonaID string  `json:"persona_id"`
	Text      string  `json:"text"`
	Sentiment float64 `json:"sentiment"`
}

// Theme is a top keyword extracted from the full response corpus, with one
// representative quote (the first response containing it).
type Theme struct {
	Keyword             string `json:"keyword"`
	Count               int    `json:"count"`
	RepresentativeQuote string `json:"representative_quote"`
}

// EngagementMetrics summarizes response latency and completion.
type EngagementMetrics struct {
	MeanResponseLatencyMS float64 `json:"mean_response_latency_ms"`
	CompletionRate        float64 `json:"completion_rate"`
	MeanConsistencyScore  float64 `json:"mean_consistency_score,omitempty"`
}

// OverallInsight is the aggregate slice of an InsightBlob.
type OverallInsight struct {
	IdeaScore    float64 `json:"idea_score"`
	Grade        string  `json:"grade"`
	Consensus    float64 `json:"consensus"`
	AvgSentiment float64 `json:"avg_sentiment"`

	PositiveRatio float64 `json:"positive_ratio"`
	NegativeRatio float64 `json:"negative_ratio"`
	NeutralRatio  float64 `json:"neutral_ratio"`

	KeyThemes  []Theme           `json:"key_themes"`
	Engagement EngagementMetrics `json:"engagement"`

	// PersonaEngagement maps persona id to its mean |sentiment| across
	// all of its responses, a simple proxy for participation intensity.
	PersonaEngagement map[string]float64 `json:"persona_engagement"`
}

// InsightBlob is the derived, per-focus-group analytical artifact.
type InsightBlob struct {
	FocusGroupID string            `json:"focus_group_id"`
	PerQuestion  []QuestionInsight `json:"per_question"`
	Overall      OverallInsight    `json:"overall"`
}
