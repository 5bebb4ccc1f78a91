package insight

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panelforge/pkg/core/llm"
	"panelforge/pkg/models"
)

func response(personaID, text string) models.PersonaResponse {
	return models.PersonaResponse{PersonaID: personaID, QuestionIndex: 0, Question: "q1", ResponseText: text}
}

func TestAggregateOnUnanimousPositiveResponses(t *testing.T) {
	fg := &models.FocusGroup{ID: "fg-1"}
	responses := []models.PersonaResponse{
		response("p1", "I love it"),
		response("p2", "I love it"),
		response("p3", "I love it"),
		response("p4", "I love it"),
		response("p5", "I love it"),
	}

	blob := Aggregate(context.Background(), llm.NewMockEmbeddingClient(16), rand.New(rand.NewSource(1)), fg, 5, responses, nil)

	require.Len(t, blob.PerQuestion, 1)
	q := blob.PerQuestion[0]
	assert.GreaterOrEqual(t, q.Consensus, 0.9)
	assert.Greater(t, q.AvgSentiment, 0.0)
	assert.GreaterOrEqual(t, q.IdeaScore, 70.0)
}

func TestAggregateOnPolarizedResponses(t *testing.T) {
	fg := &models.FocusGroup{ID: "fg-2"}
	responses := []models.PersonaResponse{
		response("p1", "I love it, amazing"),
		response("p2", "I love it, amazing"),
		response("p3", "I hate it, awful"),
		response("p4", "I hate it, awful"),
		response("p5", "I hate it, awful"),
	}

	blob := Aggregate(context.Background(), llm.NewMockEmbeddingClient(16), rand.New(rand.NewSource(1)), fg, 5, responses, nil)

	require.Len(t, blob.PerQuestion, 1)
	q := blob.PerQuestion[0]
	assert.LessOrEqual(t, q.Consensus, 0.5)
	assert.InDelta(t, 0.0, q.AvgSentiment, 0.3)
}

func TestAggregateOnEmptyResponsesReturnsZeroFilledBlob(t *testing.T) {
	fg := &models.FocusGroup{ID: "fg-3"}
	blob := Aggregate(context.Background(), llm.NewMockEmbeddingClient(16), rand.New(rand.NewSource(1)), fg, 3, nil, nil)

	assert.Empty(t, blob.PerQuestion)
	assert.Equal(t, 0.0, blob.Overall.IdeaScore)
}

func TestApplySideEffectsDerivesPolarizationFromIdeaScore(t *testing.T) {
	fg := &models.FocusGroup{ID: "fg-4"}
	blob := models.InsightBlob{Overall: models.OverallInsight{IdeaScore: 80}}
	ApplySideEffects(fg, blob)
	assert.InDelta(t, 0.8, fg.PolarizationScore, 1e-9)
	assert.NotNil(t, fg.Summary["insight_blob"])
}

func TestSentimentScoreIsZeroWhenNoKeywordsPresent(t *testing.T) {
	assert.Equal(t, 0.0, sentimentScore("the quick brown fox jumps"))
}

func TestSentimentScoreIsPositiveAndNegative(t *testing.T) {
	assert.Greater(t, sentimentScore("I love this, it's great"), 0.0)
	assert.Less(t, sentimentScore("I hate this, it's terrible"), 0.0)
}
