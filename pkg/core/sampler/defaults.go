package sampler

// Platform default distributions, used when a project leaves an axis
// unspecified or supplies an all-zero/empty weighting. Grounded
// on original_source's persona_generator_langchain.py constants module,
// generalized to an English-language default panel; operators can override
// per project by supplying an explicit DemographicDistribution axis.
var (
	DefaultAgeGroups = map[string]float64{
		"18-24": 0.15,
		"25-34": 0.25,
		"35-44": 0.22,
		"45-54": 0.18,
		"55-64": 0.12,
		"65+": 0.08,
	}

	DefaultGenders = map[string]float64{
		"male": 0.49,
		"female": 0.49,
		"other": 0.02,
	}

	DefaultEducationLevels = map[string]float64{
		"high_school": 0.35,
		"bachelor": 0.35,
		"master": 0.20,
		"doctorate": 0.10,
	}

	DefaultIncomeBrackets = map[string]float64{
		"low": 0.25,
		"middle": 0.45,
		"high": 0.30,
	}

	DefaultLocations = map[string]float64{
		"urban": 0.55,
		"suburban": 0.30,
		"rural": 0.15,
	}
)
