package platform

import (
	"math/rand"
)

// Context bundles everything the source system kept as module-level
// singletons (settings, LLM client, embedding client, RNG) into one value
// created at process start and passed into every constructor (Design Note 9).
type Context struct {
	Config *Config
	RNG    *rand.Rand

	// Chat and Embedding are left as `any` here to avoid a dependency from
	// platform -> llm; callers type-assert to llm.ChatClient / llm.EmbeddingClient.
	// This mirrors agent.Manager holding llm.Provider instances
	// behind an interface seam (pkg/core/agent/manager.go).
	Chat      any
	Embedding any
}

// NewContext seeds the RNG deterministically from Config.RandomSeed, so
// sampler draws are reproducible across runs.
func NewContext(cfg *Config, chat, embedding any) *Context {
	return &Context{
		Config:    cfg,
		RNG:       rand.New(rand.NewSource(cfg.RandomSeed)),
		Chat:      chat,
		Embedding: embedding,
	}
}
