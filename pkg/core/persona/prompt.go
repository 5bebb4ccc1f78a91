package persona

import (
	"fmt"
	"strings"

	"panelforge/pkg/models"
)

// traitGuidance turns a single Big-Five value into qualitative guidance text,
// the same three-band framing original_source leaves to the model's own
// numeric interpretation but that we spell out explicitly since our prompt
// carries no few-shot examples to anchor it.
func traitGuidance(name string, value float64, low, high string) string {
	switch {
	case value >= 0.65:
		return fmt.Sprintf("%s: high (%.2f) — %s", name, value, high)
	case value <= 0.35:
		return fmt.Sprintf("%s: low (%.2f) — %s", name, value, low)
	default:
		return fmt.Sprintf("%s: balanced (%.2f)", name, value)
	}
}

// BriefContext carries the optional contextual material this system allows a
// caller to fold into persona synthesis: a short product/research brief and
// a retrieval snippet from an external knowledge source.
type BriefContext struct {
	Brief            string
	RetrievalSnippet string
}

// composePrompt builds the full user-message text sent to the chat model.
// The demographic profile is framed as hard constraints;
// Big-Five values are translated into qualitative guidance (item ii); the
// brief/snippet are embedded only when present (item iii).
func composePrompt(demographic models.DemographicProfile, traits models.BigFive, dims models.HofstedeDimensions, ctx *BriefContext) string {
	var b strings.Builder

	b.WriteString("Create a realistic synthetic market-research persona as a single JSON object.\n\n")

	b.WriteString("HARD CONSTRAINTS (must appear verbatim in the generated fields, never contradicted):\n")
	fmt.Fprintf(&b, "- Age: %d\n", demographic.Age)
	fmt.Fprintf(&b, "- Gender: %s\n", demographic.Gender)
	fmt.Fprintf(&b, "- Location: %s\n", demographic.Location)
	fmt.Fprintf(&b, "- Education level: %s\n", demographic.EducationLevel)
	fmt.Fprintf(&b, "- Income bracket: %s\n", demographic.IncomeBracket)
	b.WriteString("\n")

	b.WriteString("PERSONALITY GUIDANCE (Big Five, use to shape tone and choices, never state numbers in the output):\n")
	b.WriteString("- " + traitGuidance("Openness", traits.Openness, "conventional, prefers the familiar", "curious, drawn to novelty and ideas") + "\n")
	b.WriteString("- " + traitGuidance("Conscientiousness", traits.Conscientiousness, "spontaneous, loose with plans", "organized, disciplined, detail-oriented") + "\n")
	b.WriteString("- " + traitGuidance("Extraversion", traits.Extraversion, "reserved, energized by solitude", "outgoing, energized by people") + "\n")
	b.WriteString("- " + traitGuidance("Agreeableness", traits.Agreeableness, "skeptical, direct, competitive", "empathetic, cooperative, trusting") + "\n")
	b.WriteString("- " + traitGuidance("Neuroticism", traits.Neuroticism, "emotionally steady", "sensitive to stress, reactive") + "\n\n")

	b.WriteString("CULTURAL DIMENSIONS (Hofstede, background texture only):\n")
	fmt.Fprintf(&b, "- power_distance=%.2f individualism=%.2f masculinity=%.2f uncertainty_avoidance=%.2f long_term_orientation=%.2f indulgence=%.2f\n\n",
		dims.PowerDistance, dims.Individualism, dims.Masculinity, dims.UncertaintyAvoidance, dims.LongTermOrientation, dims.Indulgence)

	if ctx != nil && ctx.Brief != "" {
		fmt.Fprintf(&b, "RESEARCH BRIEF (for context, do not quote verbatim): %s\n\n", ctx.Brief)
	}
	if ctx != nil && ctx.RetrievalSnippet != "" {
		fmt.Fprintf(&b, "BACKGROUND CONTEXT (retrieved, for texture only): %s\n\n", ctx.RetrievalSnippet)
	}

	b.WriteString(`Respond with ONLY a single JSON object, no markdown fences, with exactly these keys:
{
 "full_name": "<realistic full name consistent with location/gender>",
 "occupation": "<specific job title consistent with education/income>",
 "persona_title": "<short role label, e.g. 'The Budget-Conscious Parent'>",
 "headline": "<one sentence: age, occupation, one distinctive motivation>",
 "background_story": "<3-5 paragraphs: this person's life, career, challenges, aspirations>",
 "values": ["<5-7 values>"],
 "interests": ["<5-7 hobbies/interests>"],
 "communication_style": "<how they communicate>",
 "decision_making_style": "<how they make decisions>",
 "typical_concerns": ["<3-5 specific worries/priorities>"]
}`)

	return b.String()
}

const systemPrompt = "You are a market-research expert crafting realistic synthetic personas. Always respond with valid JSON only."
