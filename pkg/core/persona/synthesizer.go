// Package persona synthesizes narrative virtual-respondent records from a
// sampled demographic shell, via an LLM call with defensive JSON parsing.
// Grounded on original_source's persona_generator_langchain.py
// (`generate_persona_personality`, `_create_persona_prompt`, `_sanitize_text`)
// and on utils.SmartParse / markdown-fence handling
// (pkg/core/debate/orchestrator.go).
package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"regexp"

	"panelforge/pkg/core/llm"
	"panelforge/pkg/core/panelerr"
	"panelforge/pkg/core/platform"
	"panelforge/pkg/core/sampler"
	"panelforge/pkg/core/utils"
	"panelforge/pkg/models"
)

var jsonFence = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// generatedFields is the shape expected back from the chat model; fields
// absent from required checking (occupation, persona_title, communication
// style, etc.) degrade gracefully to empty strings rather than failing
// synthesis.
type generatedFields struct {
	FullName            string   `json:"full_name"`
	Occupation          string   `json:"occupation"`
	PersonaTitle        string   `json:"persona_title"`
	Headline            string   `json:"headline"`
	BackgroundStory     string   `json:"background_story"`
	Values              []string `json:"values"`
	Interests           []string `json:"interests"`
	CommunicationStyle  string   `json:"communication_style"`
	DecisionMakingStyle string   `json:"decision_making_style"`
	TypicalConcerns     []string `json:"typical_concerns"`
}

// Generate synthesizes a full Persona for one sampled demographic profile.
// It returns the exact prompt text sent to the model alongside the
// synthesized record, so callers can audit provenance.
func Generate(ctx context.Context, pctx *platform.Context, chat llm.ChatClient, rng *rand.Rand, projectID string, shell sampler.Profile, skew *TraitSkew, brief *BriefContext) (string, *models.Persona, error) {
	demographic := models.DemographicProfile{
		Age:            resolveAge(rng, shell.AgeGroup),
		Gender:         shell.Gender,
		Location:       shell.Location,
		EducationLevel: shell.EducationLevel,
		IncomeBracket:  shell.IncomeBracket,
	}
	traits := SampleBigFive(rng, skew)
	dims := SampleHofstedeDimensions(rng)

	promptText := composePrompt(demographic, traits, dims, brief)

	temperature := 0.7
	if pctx != nil && pctx.Config != nil {
		temperature = pctx.Config.LLMTemperature
	}

	raw, err := chat.GenerateJSON(ctx, systemPrompt, promptText, temperature)
	if err != nil {
		return promptText, nil, fmt.Errorf("%w: %v", panelerr.ErrSynthesisFailed, err)
	}

	fields, err := parseGeneratedFields(raw)
	if err != nil {
		return promptText, nil, fmt.Errorf("%w: %v", panelerr.ErrSynthesisFailed, err)
	}

	persona := &models.Persona{
		ProjectID:   projectID,
		Demographic: demographic, // override: never trust the model's echo of the constraints
		Traits:      traits,
		Dimensions:  dims,

		FullName:        sanitizeText(fields.FullName, false),
		Headline:        sanitizeText(fields.Headline, false),
		BackgroundStory: sanitizeText(fields.BackgroundStory, true),
		Values:          fields.Values,
		Interests:       fields.Interests,
	}
	persona.Demographic.Occupation = sanitizeText(fields.Occupation, false)

	if !persona.RequiredFieldsPresent() {
		return promptText, nil, fmt.Errorf("%w: model response missing required narrative fields", panelerr.ErrSynthesisFailed)
	}

	return promptText, persona, nil
}

// parseGeneratedFields defensively extracts the JSON object from a chat
// response: strips a markdown code fence if present, then repairs/parses via
// utils.SmartParse before falling back to a strict json.Unmarshal.
func parseGeneratedFields(raw string) (*generatedFields, error) {
	body := raw
	if matches := jsonFence.FindStringSubmatch(body); len(matches) > 1 {
		body = matches[1]
	}

	var fields generatedFields
	if _, err := utils.SmartParse(body, &fields); err != nil {
		if jsonErr := json.Unmarshal([]byte(body), &fields); jsonErr != nil {
			return nil, fmt.Errorf("unparseable persona response: %w", err)
		}
	}
	return &fields, nil
}
