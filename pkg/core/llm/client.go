// Package llm provides the chat-completion and embedding collaborators the
// core calls out to. Implementations are swappable behind
// narrow interfaces (Design Note 9: "duck-typed optional memory service" →
// a single capability-set interface chosen at wiring time).
package llm

import "context"

// ChatClient is a text-in/text-out chat-completion endpoint. Implementations
// enforce "JSON only" purely by prompt composition (GenerateJSON); the core
// is responsible for parsing defensively.
type ChatClient interface {
	// GenerateText issues a free-form completion, used by the orchestrator
	// for persona discussion turns.
	GenerateText(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error)

	// GenerateJSON issues a completion constrained to a single JSON object,
	// used by the persona synthesizer and the concept extractor.
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error)
}

// EmbeddingClient turns text into a fixed-dimension vector. All vectors
// produced within one deployment must share the same dimension and come
// from the same model.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimension() int
}
