package orchestrator

import (
	"fmt"
	"strings"

	"panelforge/pkg/models"
)

// formatPersonaProfile builds the condensed persona profile embedded in
// every task prompt, grounded on focus_group_service_langchain.py's
// `_format_persona_profile`.
func formatPersonaProfile(p *models.Persona) string {
	parts := []string{
		fmt.Sprintf("Name: %s", orDefault(p.FullName, "Participant")),
		fmt.Sprintf("Age: %d", p.Demographic.Age),
		fmt.Sprintf("Gender: %s", orDefault(p.Demographic.Gender, "n/a")),
		fmt.Sprintf("Location: %s", orDefault(p.Demographic.Location, "n/a")),
		fmt.Sprintf("Occupation: %s", orDefault(p.Demographic.Occupation, "n/a")),
		fmt.Sprintf("Education: %s", orDefault(p.Demographic.EducationLevel, "n/a")),
		fmt.Sprintf("Big Five: openness=%.2f conscientiousness=%.2f extraversion=%.2f agreeableness=%.2f neuroticism=%.2f",
			p.Traits.Openness, p.Traits.Conscientiousness, p.Traits.Extraversion, p.Traits.Agreeableness, p.Traits.Neuroticism),
		fmt.Sprintf("Key values: %s", orDefault(strings.Join(p.Values, ", "), "none stated")),
		fmt.Sprintf("Background: %s", orDefault(p.BackgroundStory, "no background available")),
	}
	return strings.Join(parts, " | ")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// createPersonaPrompt composes the system and user messages sent for one
// (persona, question) task. contextLines is the rendered retrieval context
// from the persona's event history.
func createPersonaPrompt(p *models.Persona, question, focusGroupDescription string, mode models.FocusGroupMode, contextLines []string) (systemPrompt, userPrompt string) {
	toneInstruction := "Stay in character, answer naturally and concisely."
	if mode == models.ModeAdversarial {
		toneInstruction = "Stay in character. Be skeptical and push back on the premise of the question where your persona would realistically disagree."
	}

	systemPrompt = fmt.Sprintf(
		"You are a simulated persona taking part in a market-research focus group. %s Session description: %s",
		toneInstruction, orDefault(focusGroupDescription, "none given."),
	)

	contextBlock := "No prior context."
	if len(contextLines) > 0 {
		contextBlock = strings.Join(contextLines, "\n")
	}

	userPrompt = fmt.Sprintf(
		"Participant profile:\n%s\n\nConversation context:\n%s\n\nCurrent question: %s\nAnswer in 2-4 sentences, staying true to the persona's perspective.",
		formatPersonaProfile(p), contextBlock, question,
	)
	return systemPrompt, userPrompt
}
