package models

import "time"

// BigFive holds the five-trait OCEAN personality model, each value in [0,1].
type BigFive struct {
	Openness          float64 `json:"openness"`
	Conscientiousness float64 `json:"conscientiousness"`
	Extraversion      float64 `json:"extraversion"`
	Agreeableness     float64 `json:"agreeableness"`
	Neuroticism       float64 `json:"neuroticism"`
}

// HofstedeDimensions holds the six Hofstede cultural dimensions, each in [0,1].
type HofstedeDimensions struct {
	PowerDistance        float64 `json:"power_distance"`
	Individualism        float64 `json:"individualism"`
	Masculinity          float64 `json:"masculinity"`
	UncertaintyAvoidance float64 `json:"uncertainty_avoidance"`
	LongTermOrientation  float64 `json:"long_term_orientation"`
	Indulgence           float64 `json:"indulgence"`
}

// DemographicProfile is the hard-constrained shell a Persona must preserve
// verbatim from the sampler, regardless of what the LLM returns.
type DemographicProfile struct {
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	Location       string `json:"location"`
	EducationLevel string `json:"education_level"`
	IncomeBracket  string `json:"income_bracket"`
	Occupation     string `json:"occupation"`
}

// Persona is a synthesized virtual respondent belonging to a Project.
type Persona struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`

	Demographic DemographicProfile `json:"demographic"`
	Traits      BigFive            `json:"traits"`
	Dimensions  HofstedeDimensions `json:"dimensions"`

	FullName        string   `json:"full_name"`
	Headline        string   `json:"headline"`
	BackgroundStory string   `json:"background_story"`
	Values          []string `json:"values"`
	Interests       []string `json:"interests"`

	CreatedAt time.Time `json:"created_at"`
}

// RequiredFieldsPresent reports whether the required narrative fields
// are non-empty. Missing any of them is a SynthesisFailed condition.
func (p *Persona) RequiredFieldsPresent() bool {
	return p.FullName != "" && p.BackgroundStory != "" && len(p.Values) > 0 && len(p.Interests) > 0
}
