package sampler

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panelforge/pkg/core/panelerr"
	"panelforge/pkg/models"
)

func TestSampleConvergesToTargetDistribution(t *testing.T) {
	dist := models.DemographicDistribution{
		AgeGroups: map[string]float64{"18-24": 0.2, "25-34": 0.8},
		Genders:   map[string]float64{"male": 0.5, "female": 0.5},
	}
	rng := rand.New(rand.NewSource(42))

	profiles, err := Sample(rng, dist, 20000)
	require.NoError(t, err)
	require.Len(t, profiles, 20000)

	counts := map[string]int{}
	for _, p := range profiles {
		counts[p.AgeGroup]++
	}
	total := float64(len(profiles))
	assert.InDelta(t, 0.2, float64(counts["18-24"])/total, 0.02)
	assert.InDelta(t, 0.8, float64(counts["25-34"])/total, 0.02)
}

func TestSampleIsReproducibleForAFixedSeed(t *testing.T) {
	dist := models.DemographicDistribution{
		AgeGroups: map[string]float64{"18-24": 0.3, "25-34": 0.7},
	}

	a, err := Sample(rand.New(rand.NewSource(7)), dist, 500)
	require.NoError(t, err)
	b, err := Sample(rand.New(rand.NewSource(7)), dist, 500)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestSampleFallsBackToDefaultsWhenAxisEmpty(t *testing.T) {
	dist := models.DemographicDistribution{} // every axis unset
	rng := rand.New(rand.NewSource(1))

	profiles, err := Sample(rng, dist, 10)
	require.NoError(t, err)
	for _, p := range profiles {
		assert.Contains(t, DefaultAgeGroups, p.AgeGroup)
		assert.Contains(t, DefaultGenders, p.Gender)
	}
}

func TestSampleFallsBackWhenAxisIsAllZeroWeight(t *testing.T) {
	dist := models.DemographicDistribution{
		AgeGroups: map[string]float64{"18-24": 0, "25-34": 0},
	}
	rng := rand.New(rand.NewSource(3))

	profiles, err := Sample(rng, dist, 5)
	require.NoError(t, err)
	for _, p := range profiles {
		assert.Contains(t, DefaultAgeGroups, p.AgeGroup)
	}
}

func TestSampleRejectsNegativeWeight(t *testing.T) {
	dist := models.DemographicDistribution{
		AgeGroups: map[string]float64{"18-24": -0.1, "25-34": 1.1},
	}
	_, err := Sample(rand.New(rand.NewSource(1)), dist, 5)
	require.ErrorIs(t, err, panelerr.ErrInvalidDistribution)
}

func TestSampleRejectsNaNWeight(t *testing.T) {
	dist := models.DemographicDistribution{
		Genders: map[string]float64{"male": math.NaN(), "female": 0.5},
	}
	_, err := Sample(rand.New(rand.NewSource(1)), dist, 5)
	require.ErrorIs(t, err, panelerr.ErrInvalidDistribution)
}

func TestNormalizeTwoPassSumsToOne(t *testing.T) {
	out := normalizeTwoPass(map[string]float64{"a": 1, "b": 3})
	assert.InDelta(t, 1.0, sum(out), 1e-9)
	assert.InDelta(t, 0.25, out["a"], 1e-9)
	assert.InDelta(t, 0.75, out["b"], 1e-9)
}

func TestWeightedSampleIsDeterministicPerSeed(t *testing.T) {
	weights := map[string]float64{"x": 0.5, "y": 0.5}
	r1 := rand.New(rand.NewSource(99))
	r2 := rand.New(rand.NewSource(99))

	for i := 0; i < 50; i++ {
		assert.Equal(t, weightedSample(r1, weights), weightedSample(r2, weights))
	}
}
