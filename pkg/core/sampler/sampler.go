// Package sampler implements the constrained demographic sampler: it draws
// persona profiles conforming to a target joint categorical
// distribution, axis by axis, via inverse-CDF sampling on a seeded
// pseudorandom stream. Grounded on original_source's
// persona_generator_langchain.py (`sample_demographic_profile`,
// `_weighted_sample`, `_prepare_distribution`).
package sampler

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"panelforge/pkg/core/panelerr"
	"panelforge/pkg/models"
)

// Profile is one sampled demographic shell: one label per axis.
type Profile struct {
	AgeGroup       string
	Gender         string
	EducationLevel string
	IncomeBracket  string
	Location       string
}

// Sample draws n independent profiles from distribution, falling back to
// platform defaults per axis as needed, using rng as the pseudorandom
// stream. rng should be seeded from configuration so runs are reproducible.
func Sample(rng *rand.Rand, distribution models.DemographicDistribution, n int) ([]Profile, error) {
	ageGroups, err := normalizeAxis(distribution.AgeGroups, DefaultAgeGroups)
	if err != nil {
		return nil, fmt.Errorf("sampler: age_groups: %w", err)
	}
	genders, err := normalizeAxis(distribution.Genders, DefaultGenders)
	if err != nil {
		return nil, fmt.Errorf("sampler: genders: %w", err)
	}
	educationLevels, err := normalizeAxis(distribution.EducationLevels, DefaultEducationLevels)
	if err != nil {
		return nil, fmt.Errorf("sampler: education_levels: %w", err)
	}
	incomeBrackets, err := normalizeAxis(distribution.IncomeBrackets, DefaultIncomeBrackets)
	if err != nil {
		return nil, fmt.Errorf("sampler: income_brackets: %w", err)
	}
	locations, err := normalizeAxis(distribution.Locations, DefaultLocations)
	if err != nil {
		return nil, fmt.Errorf("sampler: locations: %w", err)
	}

	profiles := make([]Profile, n)
	for i := 0; i < n; i++ {
		profiles[i] = Profile{
			AgeGroup:       weightedSample(rng, ageGroups),
			Gender:         weightedSample(rng, genders),
			EducationLevel: weightedSample(rng, educationLevels),
			IncomeBracket:  weightedSample(rng, incomeBrackets),
			Location:       weightedSample(rng, locations),
		}
	}
	return profiles, nil
}

// normalizeAxis validates, drops non-positive entries and renormalizes a
// single axis, falling back to the platform default when the caller's axis
// is empty or entirely non-positive after validation.
func normalizeAxis(weights map[string]float64, fallback map[string]float64) (map[string]float64, error) {
	if err := rejectInvalid(weights); err != nil {
		return nil, err
	}

	positive := dropNonPositive(weights)
	if len(positive) == 0 {
		if err := rejectInvalid(fallback); err != nil {
			return nil, err
		}
		positive = dropNonPositive(fallback)
		if len(positive) == 0 {
			return nil, panelerr.ErrInvalidDistribution
		}
	}
	return normalizeTwoPass(positive), nil
}

// rejectInvalid reports ErrInvalidDistribution if any weight is negative or
// NaN. Zero weights are legal (dropped later), only sign/NaN are hard errors.
func rejectInvalid(weights map[string]float64) error {
	for _, w := range weights {
		if math.IsNaN(w) || w < 0 {
			return panelerr.ErrInvalidDistribution
		}
	}
	return nil
}

func dropNonPositive(weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	for k, w := range weights {
		if w > 0 {
			out[k] = w
		}
	}
	return out
}

// normalizeTwoPass renormalizes so weights sum to 1, then renormalizes a
// second time to absorb floating-point drift from the first pass.
func normalizeTwoPass(weights map[string]float64) map[string]float64 {
	total := sum(weights)
	first := make(map[string]float64, len(weights))
	for k, w := range weights {
		first[k] = w / total
	}
	total = sum(first)
	if math.Abs(total-1.0) < 1e-12 {
		return first
	}
	second := make(map[string]float64, len(first))
	for k, w := range first {
		second[k] = w / total
	}
	return second
}

func sum(weights map[string]float64) float64 {
	var total float64
	for _, w := range weights {
		total += w
	}
	return total
}

// weightedSample draws one category via inverse-CDF sampling. Categories are
// visited in a fixed (sorted) order so the same rng stream always maps to
// the same draw regardless of Go's randomized map iteration order.
func weightedSample(rng *rand.Rand, weights map[string]float64) string {
	categories := make([]string, 0, len(weights))
	for k := range weights {
		categories = append(categories, k)
	}
	sort.Strings(categories)

	r := rng.Float64()
	var cumulative float64
	for _, c := range categories {
		cumulative += weights[c]
		if r <= cumulative {
			return c
		}
	}
	// Floating point drift may leave r fractionally above the final
	// cumulative sum; fall back to the last category.
	return categories[len(categories)-1]
}
