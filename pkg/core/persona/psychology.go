package persona

import (
	"math/rand"

	"panelforge/pkg/models"
)

const traitStdDev = 0.15
const dimensionStdDev = 0.2

// clip01 truncates v into [0,1], the clipping half of the truncated-normal
// draws used throughout this package.
func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// TraitSkew optionally shifts the mean of each Big-Five trait away from the
// neutral 0.5; callers leave a field at zero to use the default.
type TraitSkew struct {
	Openness          *float64
	Conscientiousness *float64
	Extraversion      *float64
	Agreeableness     *float64
	Neuroticism       *float64
}

// SampleBigFive draws the five OCEAN traits from truncated normals, mean 0.5
// (or skew, clipped to [0,1]) and sigma 0.15, clipped to [0,1].
func SampleBigFive(rng *rand.Rand, skew *TraitSkew) models.BigFive {
	mean := func(override *float64) float64 {
		if override == nil {
			return 0.5
		}
		return clip01(*override)
	}
	var o, c, e, a, n *float64
	if skew != nil {
		o, c, e, a, n = skew.Openness, skew.Conscientiousness, skew.Extraversion, skew.Agreeableness, skew.Neuroticism
	}
	return models.BigFive{
		Openness:          clip01(rng.NormFloat64()*traitStdDev + mean(o)),
		Conscientiousness: clip01(rng.NormFloat64()*traitStdDev + mean(c)),
		Extraversion:      clip01(rng.NormFloat64()*traitStdDev + mean(e)),
		Agreeableness:     clip01(rng.NormFloat64()*traitStdDev + mean(a)),
		Neuroticism:       clip01(rng.NormFloat64()*traitStdDev + mean(n)),
	}
}

// SampleHofstedeDimensions draws the six cultural dimensions from truncated
// normals, mean 0.5 and sigma 0.2, clipped to [0,1].
func SampleHofstedeDimensions(rng *rand.Rand) models.HofstedeDimensions {
	draw := func() float64 { return clip01(rng.NormFloat64()*dimensionStdDev + 0.5) }
	return models.HofstedeDimensions{
		PowerDistance:        draw(),
		Individualism:        draw(),
		Masculinity:          draw(),
		UncertaintyAvoidance: draw(),
		LongTermOrientation:  draw(),
		Indulgence:           draw(),
	}
}
