// Package panelerr defines the error taxonomy shared by every core
// component. Callers use errors.Is against these sentinels;
// components that need to attach detail wrap them with fmt.Errorf("...: %w").
package panelerr

import "errors"

var (
	// ErrInvalidDistribution is returned by the sampler when an axis has a
	// negative or NaN weight, or when an empty or all-zero axis has no usable
	// platform default either.
	ErrInvalidDistribution = errors.New("panelforge: invalid distribution")

	// ErrNoPersonas is returned by the orchestrator when a focus group
	// resolves to an empty persona set.
	ErrNoPersonas = errors.New("panelforge: no personas resolved for focus group")

	// ErrIllegalState is returned when Run is invoked on a focus group that
	// is not in the pending state.
	ErrIllegalState = errors.New("panelforge: illegal focus group state transition")

	// ErrSynthesisFailed is returned by the persona synthesizer when the
	// model output is unparseable or missing required fields. Retryable.
	ErrSynthesisFailed = errors.New("panelforge: persona synthesis failed")

	// ErrExtractionFailed is returned by the knowledge-graph concept
	// extractor when the model output is unparseable. Retryable.
	ErrExtractionFailed = errors.New("panelforge: concept extraction failed")

	// ErrLLMTimeout is returned when a chat-completion call exceeds its
	// per-call deadline.
	ErrLLMTimeout = errors.New("panelforge: llm call timed out")

	// ErrLLMUnavailable is returned when the chat-completion backend is
	// unreachable or returns a non-retryable transport error.
	ErrLLMUnavailable = errors.New("panelforge: llm backend unavailable")

	// ErrEmbeddingUnavailable is returned when the embedding backend cannot
	// be reached; callers degrade to a null-embedding append or a no-op
	// retrieval rather than failing the caller's operation.
	ErrEmbeddingUnavailable = errors.New("panelforge: embedding backend unavailable")

	// ErrPersistenceFailed wraps a failed transactional write; callers
	// roll back the affected batch.
	ErrPersistenceFailed = errors.New("panelforge: persistence failed")

	// ErrGraphBuildFailed is logged and treated as non-fatal to the focus
	// group that triggered it.
	ErrGraphBuildFailed = errors.New("panelforge: graph build failed")
)
