// Package validator checks whether a sampled panel statistically matches
// its target demographic distribution, via a per-axis Pearson's
// chi-square goodness-of-fit test. Grounded on original_source's
// persona_generator_langchain.py (`validate_distribution`, `_chi_square_test`),
// reimplemented on gonum's distuv.ChiSquared instead of scipy.stats.chisquare.
package validator

import (
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"panelforge/pkg/core/sampler"
	"panelforge/pkg/models"
)

// SignificanceThreshold is the p-value cutoff above which an axis is
// considered a statistically acceptable fit.
const SignificanceThreshold = 0.05

// AxisResult is the chi-square outcome for a single demographic axis.
type AxisResult struct {
	ChiSquareStatistic float64
	PValue             float64
	DegreesOfFreedom   int
	Observed           map[string]int
	Expected           map[string]float64
	SampleSize         int
}

// Report is the full validation outcome across every tested axis.
type Report struct {
	Age       *AxisResult
	Gender    *AxisResult
	Education *AxisResult
	Income    *AxisResult
	Location  *AxisResult
	Valid     bool
}

// Validate runs the goodness-of-fit test for every axis that target
// specifies a non-empty distribution for, and aggregates `overall_valid`
// (true iff every tested axis has p > 0.05; true vacuously if none tested).
func Validate(profiles []sampler.Profile, target models.DemographicDistribution) Report {
	var report Report
	var pValues []float64

	if len(target.AgeGroups) > 0 {
		report.Age = chiSquareTest(target.AgeGroups, extract(profiles, func(p sampler.Profile) string { return p.AgeGroup }))
		pValues = append(pValues, report.Age.PValue)
	}
	if len(target.Genders) > 0 {
		report.Gender = chiSquareTest(target.Genders, extract(profiles, func(p sampler.Profile) string { return p.Gender }))
		pValues = append(pValues, report.Gender.PValue)
	}
	if len(target.EducationLevels) > 0 {
		report.Education = chiSquareTest(target.EducationLevels, extract(profiles, func(p sampler.Profile) string { return p.EducationLevel }))
		pValues = append(pValues, report.Education.PValue)
	}
	if len(target.IncomeBrackets) > 0 {
		report.Income = chiSquareTest(target.IncomeBrackets, extract(profiles, func(p sampler.Profile) string { return p.IncomeBracket }))
		pValues = append(pValues, report.Income.PValue)
	}
	if len(target.Locations) > 0 {
		report.Location = chiSquareTest(target.Locations, extract(profiles, func(p sampler.Profile) string { return p.Location }))
		pValues = append(pValues, report.Location.PValue)
	}

	report.Valid = true
	for _, p := range pValues {
		if p <= SignificanceThreshold {
			report.Valid = false
			break
		}
	}
	return report
}

func extract(profiles []sampler.Profile, field func(sampler.Profile) string) []string {
	out := make([]string, len(profiles))
	for i, p := range profiles {
		out[i] = field(p)
	}
	return out
}

// chiSquareTest runs Pearson's chi-square goodness-of-fit test for one axis:
// expectedDist need not sum to 1 and may contain non-positive entries, which
// are filtered out before normalization (mirrors the source's
// `_chi_square_test` filtering of invalid categories).
func chiSquareTest(expectedDist map[string]float64, observedValues []string) *AxisResult {
	categories := make([]string, 0, len(expectedDist))
	for category, weight := range expectedDist {
		if weight > 0 {
			categories = append(categories, category)
		}
	}
	sort.Strings(categories)

	if len(categories) == 0 {
		return &AxisResult{PValue: 1.0, DegreesOfFreedom: 0, Observed: map[string]int{}, Expected: map[string]float64{}}
	}

	var totalWeight float64
	for _, c := range categories {
		totalWeight += expectedDist[c]
	}
	normalized := make(map[string]float64, len(categories))
	for _, c := range categories {
		normalized[c] = expectedDist[c] / totalWeight
	}

	observedCounts := make(map[string]int, len(categories))
	for _, c := range categories {
		observedCounts[c] = 0
	}
	validSamples := 0
	for _, v := range observedValues {
		if _, ok := observedCounts[v]; ok {
			observedCounts[v]++
			validSamples++
		}
	}

	if validSamples == 0 {
		expected := make(map[string]float64, len(categories))
		for _, c := range categories {
			expected[c] = 0
		}
		return &AxisResult{
			PValue:           1.0,
			DegreesOfFreedom: len(categories) - 1,
			Observed:         observedCounts,
			Expected:         expected,
		}
	}

	expectedCounts := make(map[string]float64, len(categories))
	for _, c := range categories {
		expectedCounts[c] = normalized[c] * float64(validSamples)
	}

	var chiSquare float64
	for _, c := range categories {
		o := float64(observedCounts[c])
		e := expectedCounts[c]
		if e == 0 {
			continue
		}
		diff := o - e
		chiSquare += diff * diff / e
	}

	df := len(categories) - 1
	pValue := 1.0
	if df > 0 {
		pValue = 1.0 - distuv.ChiSquared{K: float64(df)}.CDF(chiSquare)
	}

	return &AxisResult{
		ChiSquareStatistic: chiSquare,
		PValue:             pValue,
		DegreesOfFreedom:   df,
		Observed:           observedCounts,
		Expected:           expectedCounts,
		SampleSize:         validSamples,
	}
}
