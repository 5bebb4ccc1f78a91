// Package platform holds the process-wide configuration surface and the
// explicit Context that replaces the module-level singletons of the source
// system (Design Note 9): settings, LLM client, embedding client and the
// seeded RNG are bundled here once at process start and threaded through
// every constructor.
package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration surface.
type Config struct {
	WorkerParallelism     int                 `mapstructure:"worker_parallelism"`
	LLMTimeoutMS          int                 `mapstructure:"llm_timeout_ms"`
	LLMTemperature        float64             `mapstructure:"llm_temperature"`
	EmbeddingHalfLifeDays float64             `mapstructure:"embedding_half_life_days"`
	RandomSeed            int64               `mapstructure:"random_seed"`
	SLOTotalMS            int64               `mapstructure:"slo_total_ms"`
	SLOAvgMS              int64               `mapstructure:"slo_avg_ms"`
	TopKRetrieval         int                 `mapstructure:"top_k_retrieval"`
	StopwordSets          map[string][]string `mapstructure:"stopword_sets"`
	GraphBackend          string              `mapstructure:"graph_backend"` // "external" | "in_memory"
}

// GraphBackendExternal and GraphBackendInMemory are the only legal values
// of Config.GraphBackend.
const (
	GraphBackendExternal = "external"
	GraphBackendInMemory = "in_memory"
)

// DefaultConfig returns the platform defaults used when no config file or
// environment overrides are present.
func DefaultConfig() *Config {
	return &Config{
		WorkerParallelism:     20,
		LLMTimeoutMS:          15_000,
		LLMTemperature:        0.8,
		EmbeddingHalfLifeDays: 30,
		RandomSeed:            42,
		SLOTotalMS:            30_000,
		SLOAvgMS:              3_000,
		TopKRetrieval:         5,
		StopwordSets:          defaultStopwords(),
		GraphBackend:          GraphBackendInMemory,
	}
}

// LoadConfig reads `config.yaml` (current directory, then ./config, then
// $HOME/.panelforge)
// via viper, falling back silently to DefaultConfig when no file is found,
// and applies the PANELFORGE_-prefixed environment overrides on top.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".panelforge"))
	}

	setDefaults(v)
	v.SetEnvPrefix("PANELFORGE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("platform: error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("platform: error unmarshaling config: %w", err)
	}
	if len(cfg.StopwordSets) == 0 {
		cfg.StopwordSets = defaultStopwords()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("platform: invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("worker_parallelism", d.WorkerParallelism)
	v.SetDefault("llm_timeout_ms", d.LLMTimeoutMS)
	v.SetDefault("llm_temperature", d.LLMTemperature)
	v.SetDefault("embedding_half_life_days", d.EmbeddingHalfLifeDays)
	v.SetDefault("random_seed", d.RandomSeed)
	v.SetDefault("slo_total_ms", d.SLOTotalMS)
	v.SetDefault("slo_avg_ms", d.SLOAvgMS)
	v.SetDefault("top_k_retrieval", d.TopKRetrieval)
	v.SetDefault("graph_backend", d.GraphBackend)
}

// Validate rejects configuration combinations that would make every
// downstream component misbehave silently.
func (c *Config) Validate() error {
	if c.WorkerParallelism < 1 {
		return fmt.Errorf("worker_parallelism must be >= 1")
	}
	if c.LLMTimeoutMS < 1 {
		return fmt.Errorf("llm_timeout_ms must be >= 1")
	}
	if c.TopKRetrieval < 1 {
		return fmt.Errorf("top_k_retrieval must be >= 1")
	}
	if c.GraphBackend != GraphBackendExternal && c.GraphBackend != GraphBackendInMemory {
		return fmt.Errorf("graph_backend must be 'external' or 'in_memory'")
	}
	if c.SLOTotalMS < 1 || c.SLOAvgMS < 1 {
		return fmt.Errorf("slo_total_ms and slo_avg_ms must be >= 1")
	}
	return nil
}

func defaultStopwords() map[string][]string {
	return map[string][]string{
		"en": {
			"the", "a", "an", "and", "or", "but", "is", "are", "was", "were",
			"it", "this", "that", "these", "those", "i", "you", "he", "she",
			"we", "they", "to", "of", "in", "on", "for", "with", "as", "at",
			"by", "about", "into", "like", "through", "after", "over",
			"between", "out", "against", "during", "without", "before",
			"under", "around", "among", "be", "been", "being", "have", "has",
			"had", "do", "does", "did", "will", "would", "could", "should",
			"very", "really", "just", "so", "my", "me", "not", "no",
		},
		"pl": {
			"i", "w", "z", "na", "do", "nie", "to", "że", "się", "jest",
			"są", "był", "była", "było", "jak", "dla", "ale", "czy", "o",
			"od", "po", "za", "tak", "bardzo",
		},
	}
}
