package graph

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panelforge/pkg/core/llm"
	"panelforge/pkg/models"
)

type stubPersonaLookup struct {
	personas map[string]models.Persona
}

func (s stubPersonaLookup) GetByIDs(ctx context.Context, ids []string) ([]*models.Persona, error) {
	var out []*models.Persona
	for _, id := range ids {
		if p, ok := s.personas[id]; ok {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

type stubResponseSource struct {
	responses []models.PersonaResponse
}

func (s stubResponseSource) ListByFocusGroup(ctx context.Context, focusGroupID string) ([]models.PersonaResponse, error) {
	var out []models.PersonaResponse
	for _, r := range s.responses {
		if r.FocusGroupID == focusGroupID {
			out = append(out, r)
		}
	}
	return out, nil
}

func newFourPersonaLookup() stubPersonaLookup {
	return stubPersonaLookup{personas: map[string]models.Persona{
		"p1": {ID: "p1", FullName: "Alice", Demographic: models.DemographicProfile{Age: 30, Occupation: "Engineer"}},
		"p2": {ID: "p2", FullName: "Bob", Demographic: models.DemographicProfile{Age: 40, Occupation: "Teacher"}},
		"p3": {ID: "p3", FullName: "Carol", Demographic: models.DemographicProfile{Age: 50, Occupation: "Nurse"}},
		"p4": {ID: "p4", FullName: "Dave", Demographic: models.DemographicProfile{Age: 25, Occupation: "Designer"}},
	}}
}

// TestBuildFromFocusGroupFlagsControversialConcept covers the case where a
// 2 personas strongly mention "Quality" positively, 2 strongly negatively;
// with >=3 mentions, the concept must surface in ControversialConcepts with
// polarization > 0.4 and non-empty supporters/critics.
func TestBuildFromFocusGroupFlagsControversialConcept(t *testing.T) {
	responses := []models.PersonaResponse{
		{FocusGroupID: "fg-polarized", PersonaID: "p1", QuestionIndex: 0, Question: "q", ResponseText: "I love the quality, it's great."},
		{FocusGroupID: "fg-polarized", PersonaID: "p2", QuestionIndex: 0, Question: "q", ResponseText: "I love the quality too, excellent."},
		{FocusGroupID: "fg-polarized", PersonaID: "p3", QuestionIndex: 0, Question: "q", ResponseText: "I hate the quality, terrible and awful."},
		{FocusGroupID: "fg-polarized", PersonaID: "p4", QuestionIndex: 0, Question: "q", ResponseText: "I hate the quality too, bad and poor."},
	}

	chat := &llm.MockChatClient{JSONFunc: func(systemPrompt, userPrompt string) (string, error) {
		if strings.Contains(userPrompt, "love") {
			return `{"concepts":["Quality"],"emotions":["Satisfied"],"sentiment":0.9,"key_phrases":["great quality"]}`, nil
		}
		return `{"concepts":["Quality"],"emotions":["Frustrated"],"sentiment":-0.9,"key_phrases":["bad quality"]}`, nil
	}}

	store := NewInMemoryStore()
	builder := NewBuilder(newFourPersonaLookup(), stubResponseSource{responses: responses}, chat, store)

	err := builder.BuildFromFocusGroup(context.Background(), "fg-polarized")
	require.NoError(t, err)

	snapshot, ok := store.Get("fg-polarized")
	require.True(t, ok)

	controversial := ControversialConcepts(snapshot)
	require.NotEmpty(t, controversial)

	var quality *ControversialConcept
	for i := range controversial {
		if controversial[i].Concept == "Quality" {
			quality = &controversial[i]
		}
	}
	require.NotNil(t, quality, "Quality should be flagged as controversial")
	assert.Greater(t, quality.Polarization, 0.4)
	assert.NotEmpty(t, quality.Supporters)
	assert.NotEmpty(t, quality.Critics)
}

// TestBuildFromFocusGroupIsIdempotent covers rebuilding from the
// same transcript yields the same node/edge sets modulo float epsilon.
func TestBuildFromFocusGroupIsIdempotent(t *testing.T) {
	responses := []models.PersonaResponse{
		{FocusGroupID: "fg-idem", PersonaID: "p1", QuestionIndex: 0, Question: "q", ResponseText: "I really like the onboarding flow."},
		{FocusGroupID: "fg-idem", PersonaID: "p2", QuestionIndex: 0, Question: "q", ResponseText: "The onboarding flow confused me."},
	}
	chat := &llm.MockChatClient{JSONFunc: func(systemPrompt, userPrompt string) (string, error) {
		return `{"concepts":["Onboarding"],"emotions":["Satisfied"],"sentiment":0.4,"key_phrases":["onboarding flow"]}`, nil
	}}

	store := NewInMemoryStore()
	builder := NewBuilder(newFourPersonaLookup(), stubResponseSource{responses: responses}, chat, store)

	require.NoError(t, builder.BuildFromFocusGroup(context.Background(), "fg-idem"))
	first, _ := store.Get("fg-idem")
	firstData := GraphData(first, "")

	require.NoError(t, builder.BuildFromFocusGroup(context.Background(), "fg-idem"))
	second, _ := store.Get("fg-idem")
	secondData := GraphData(second, "")

	require.Len(t, secondData.Nodes, len(firstData.Nodes))
	require.Len(t, secondData.Links, len(firstData.Links))
	for i := range firstData.Nodes {
		assert.Equal(t, firstData.Nodes[i].ID, secondData.Nodes[i].ID)
		assert.InDelta(t, firstData.Nodes[i].Sentiment, secondData.Nodes[i].Sentiment, 1e-9)
	}
}

func TestExtractConceptsFallsBackWhenChatIsNil(t *testing.T) {
	ext := ExtractConcepts(context.Background(), nil, "This is great, I love it, very helpful and easy.")
	assert.Greater(t, ext.Sentiment, 0.0)
	assert.NotEmpty(t, ext.Concepts)
}

func TestExtractConceptsFallsBackOnUnparseableResponse(t *testing.T) {
	chat := &llm.MockChatClient{JSONFunc: func(systemPrompt, userPrompt string) (string, error) {
		return "not json at all", nil
	}}
	ext := ExtractConcepts(context.Background(), chat, "I hate this, terrible and confusing.")
	assert.Less(t, ext.Sentiment, 0.0)
}

func TestNormalizeListDedupesCaseInsensitivelyPreservingFirstOccurrence(t *testing.T) {
	out := normalizeList([]string{"quality", "Quality", " QUALITY ", "price"})
	assert.Equal(t, []string{"Quality", "Price"}, out)
}

func TestMentionsEdgeSentimentIsRunningAverageOnRepeat(t *testing.T) {
	snapshot := models.NewKnowledgeGraphSnapshot("fg-running-avg")
	mergeConceptNode(snapshot, "Quality")
	mergeMentionsEdge(snapshot, "p1", "Quality", 1.0)
	mergeMentionsEdge(snapshot, "p1", "Quality", 0.0)

	require.Len(t, snapshot.Mentions, 1)
	assert.Equal(t, 2, snapshot.Mentions[0].Count)
	assert.InDelta(t, 0.5, snapshot.Mentions[0].Sentiment, 1e-9)
}

func TestGraphDataInfluenceFilterKeepsOnlyWellConnectedPersonas(t *testing.T) {
	snapshot := models.NewKnowledgeGraphSnapshot("fg-filter")
	snapshot.Personas["p1"] = &models.GraphNode{ID: "p1", Kind: models.NodePersona, Label: "Alice"}
	snapshot.Personas["p2"] = &models.GraphNode{ID: "p2", Kind: models.NodePersona, Label: "Bob"}
	mergeConceptNode(snapshot, "A")
	mergeConceptNode(snapshot, "B")
	mergeConceptNode(snapshot, "C")
	mergeMentionsEdge(snapshot, "p1", "A", 0.5)
	mergeMentionsEdge(snapshot, "p1", "B", 0.5)
	mergeMentionsEdge(snapshot, "p1", "C", 0.5)
	mergeMentionsEdge(snapshot, "p2", "A", 0.5)

	data := GraphData(snapshot, "influence")
	var ids []string
	for _, n := range data.Nodes {
		if n.Type == "persona" {
			ids = append(ids, n.ID)
		}
	}
	assert.Contains(t, ids, "p1")
	assert.NotContains(t, ids, "p2")
}

func TestAnswerQuestionRoutesToControversy(t *testing.T) {
	snapshot := models.NewKnowledgeGraphSnapshot("fg-answer")
	snapshot.Personas["p1"] = &models.GraphNode{ID: "p1", Kind: models.NodePersona, Label: "Alice"}
	snapshot.Personas["p2"] = &models.GraphNode{ID: "p2", Kind: models.NodePersona, Label: "Bob"}
	snapshot.Personas["p3"] = &models.GraphNode{ID: "p3", Kind: models.NodePersona, Label: "Carol"}
	mergeConceptNode(snapshot, "Pricing")
	mergeMentionsEdge(snapshot, "p1", "Pricing", 0.9)
	mergeMentionsEdge(snapshot, "p2", "Pricing", -0.9)
	mergeMentionsEdge(snapshot, "p3", "Pricing", -0.8)

	answer := AnswerQuestion(snapshot, "Is there anything controversial?")
	assert.Contains(t, answer.Text, "Pricing")
	assert.NotEmpty(t, answer.SuggestedQuestions)
}
