// Package models holds the row-shaped entities shared across the research
// pipeline engine: projects, personas, focus groups, responses, events and
// the derived artifacts built on top of them.
package models

import "time"

// DemographicDistribution describes the target joint categorical distribution
// for a research project. Each axis maps a label to a weight; weights within
// an axis need not already sum to 1 — callers normalize before sampling.
type DemographicDistribution struct {
	AgeGroups       map[string]float64 `json:"age_groups"`
	Genders         map[string]float64 `json:"genders"`
	EducationLevels map[string]float64 `json:"education_levels"`
	IncomeBrackets  map[string]float64 `json:"income_brackets"`
	Locations       map[string]float64 `json:"locations"`
}

// Axes returns the distribution's five axes keyed by name, in a stable order.
func (d DemographicDistribution) Axes() []AxisDistribution {
	return []AxisDistribution{
		{Name: "age_groups", Weights: d.AgeGroups},
		{Name: "genders", Weights: d.Genders},
		{Name: "education_levels", Weights: d.EducationLevels},
		{Name: "income_brackets", Weights: d.IncomeBrackets},
		{Name: "locations", Weights: d.Locations},
	}
}

// AxisDistribution pairs an axis name with its weight mapping.
type AxisDistribution struct {
	Name    string
	Weights map[string]float64
}

// Project is the top-level container for a research engagement: an owner,
// a target demographic distribution, and a target sample size. It cascades
// ownership of Personas and FocusGroups.
type Project struct {
	ID                 string                  `json:"id"`
	OwnerID            string                  `json:"owner_id"`
	Name               string                  `json:"name"`
	TargetDistribution DemographicDistribution `json:"target_distribution"`
	TargetSampleSize   int                     `json:"target_sample_size"`
	StatisticallyValid bool                    `json:"statistically_valid"`
	DeletedAt          *time.Time              `json:"deleted_at,omitempty"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

// IsDeleted reports whether the project has been soft-deleted.
func (p *Project) IsDeleted() bool {
	return p.DeletedAt != nil
}
