package persona

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panelforge/pkg/core/llm"
	"panelforge/pkg/core/panelerr"
	"panelforge/pkg/core/sampler"
)

const canned = `{
 "full_name": "Jordan Reyes",
 "occupation": "Product Manager",
 "persona_title": "The Pragmatic Upgrader",
 "headline": "38-year-old product manager who weighs every purchase twice.",
 "background_story": "Paragraph one.\n\nParagraph two about career.\n\nParagraph three about family.",
 "values": ["honesty", "efficiency", "family", "craft", "curiosity"],
 "interests": ["cycling", "cooking", "reading", "chess", "hiking"],
 "communication_style": "direct but warm",
 "decision_making_style": "research-driven",
 "typical_concerns": ["price", "durability", "support"]
}`

func TestGenerateProducesASanitizedPersona(t *testing.T) {
	chat := &llm.MockChatClient{
		JSONFunc: func(system, user string) (string, error) { return canned, nil },
	}
	rng := rand.New(rand.NewSource(1))
	shell := sampler.Profile{AgeGroup: "35-44", Gender: "female", EducationLevel: "bachelor", IncomeBracket: "middle", Location: "urban"}

	promptText, p, err := Generate(context.Background(), nil, chat, rng, "proj-1", shell, nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, promptText)
	assert.Equal(t, "proj-1", p.ProjectID)
	assert.Equal(t, "female", p.Demographic.Gender)
	assert.GreaterOrEqual(t, p.Demographic.Age, 35)
	assert.LessOrEqual(t, p.Demographic.Age, 44)
	assert.Equal(t, "Jordan Reyes", p.FullName)
	assert.Equal(t, "Product Manager", p.Demographic.Occupation)
	assert.Contains(t, p.BackgroundStory, "\n\n")
	assert.Len(t, p.Values, 5)
}

func TestGenerateWrapsParseFailureAsSynthesisFailed(t *testing.T) {
	chat := &llm.MockChatClient{
		JSONFunc: func(system, user string) (string, error) { return "not json at all {{{", nil },
	}
	rng := rand.New(rand.NewSource(1))
	shell := sampler.Profile{AgeGroup: "25-34", Gender: "male", EducationLevel: "master", IncomeBracket: "high", Location: "suburban"}

	_, _, err := Generate(context.Background(), nil, chat, rng, "proj-1", shell, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, panelerr.ErrSynthesisFailed)
}

func TestGenerateRejectsResponseMissingRequiredFields(t *testing.T) {
	chat := &llm.MockChatClient{
		JSONFunc: func(system, user string) (string, error) { return `{"full_name": "X"}`, nil },
	}
	rng := rand.New(rand.NewSource(1))
	shell := sampler.Profile{AgeGroup: "65+", Gender: "male", EducationLevel: "doctorate", IncomeBracket: "high", Location: "rural"}

	_, _, err := Generate(context.Background(), nil, chat, rng, "proj-1", shell, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, panelerr.ErrSynthesisFailed)
}

func TestResolveAgeStaysWithinBand(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 100; i++ {
		age := resolveAge(rng, "45-54")
		assert.GreaterOrEqual(t, age, 45)
		assert.LessOrEqual(t, age, 54)
	}
}

func TestResolveAgeHandlesOpenEndedBand(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	age := resolveAge(rng, "65+")
	assert.GreaterOrEqual(t, age, 65)
}
