package validator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panelforge/pkg/core/sampler"
	"panelforge/pkg/models"
)

func TestValidateAcceptsAPanelDrawnFromTheSameDistribution(t *testing.T) {
	dist := models.DemographicDistribution{
		AgeGroups: map[string]float64{"18-24": 0.3, "25-34": 0.7},
		Genders:   map[string]float64{"male": 0.5, "female": 0.5},
	}
	rng := rand.New(rand.NewSource(11))
	profiles, err := sampler.Sample(rng, dist, 2000)
	require.NoError(t, err)

	report := Validate(profiles, dist)

	require.NotNil(t, report.Age)
	require.NotNil(t, report.Gender)
	assert.Nil(t, report.Education)
	assert.Greater(t, report.Age.PValue, SignificanceThreshold)
	assert.Greater(t, report.Gender.PValue, SignificanceThreshold)
	assert.True(t, report.Valid)
}

func TestValidateRejectsAClearlySkewedPanel(t *testing.T) {
	target := map[string]float64{"18-24": 0.5, "25-34": 0.5}
	// Every profile lands in the same bucket: a maximally skewed panel.
	profiles := make([]sampler.Profile, 500)
	for i := range profiles {
		profiles[i] = sampler.Profile{AgeGroup: "18-24"}
	}

	report := Validate(profiles, models.DemographicDistribution{AgeGroups: target})

	require.NotNil(t, report.Age)
	assert.Less(t, report.Age.PValue, SignificanceThreshold)
	assert.False(t, report.Valid)
}

func TestValidateOnEmptyPanelIsVacuouslyValid(t *testing.T) {
	target := models.DemographicDistribution{
		AgeGroups: map[string]float64{"18-24": 0.5, "25-34": 0.5},
	}
	report := Validate(nil, target)

	require.NotNil(t, report.Age)
	assert.Equal(t, 1.0, report.Age.PValue)
	assert.True(t, report.Valid)
}

func TestValidateSkipsAxesWithNoTarget(t *testing.T) {
	report := Validate([]sampler.Profile{{AgeGroup: "18-24"}}, models.DemographicDistribution{})

	assert.Nil(t, report.Age)
	assert.Nil(t, report.Gender)
	assert.True(t, report.Valid)
}
