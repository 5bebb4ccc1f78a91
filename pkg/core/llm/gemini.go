package llm

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// GeminiChatClient implements ChatClient using the official Google GenAI SDK,
// the same backend the source system drove through
// langchain_google_genai.ChatGoogleGenerativeAI (original_source's
// focus_group_service_langchain.py and persona_generator_langchain.py both
// call Gemini for generation).
type GeminiChatClient struct {
	Model string // e.g. "gemini-2.0-flash-exp"
}

var _ ChatClient = (*GeminiChatClient)(nil)

// NewGeminiChatClient returns a client for the given model, defaulting to
// "gemini-2.0-flash-exp" when model is empty.
func NewGeminiChatClient(model string) *GeminiChatClient {
	if model == "" {
		model = "gemini-2.0-flash-exp"
	}
	return &GeminiChatClient{Model: model}
}

func (c *GeminiChatClient) client(ctx context.Context) (*genai.Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func (c *GeminiChatClient) generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64, jsonMode bool) (string, error) {
	client, err := c.client(ctx)
	if err != nil {
		return "", err
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temperature)),
	}
	if jsonMode {
		cfg.ResponseMIMEType = "application/json"
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}

	result, err := client.Models.GenerateContent(ctx, c.Model, genai.Text(userPrompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	return result.Text(), nil
}

// GenerateText issues a free-form completion.
func (c *GeminiChatClient) GenerateText(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	return c.generate(ctx, systemPrompt, userPrompt, temperature, false)
}

// GenerateJSON issues a JSON-constrained completion.
func (c *GeminiChatClient) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	return c.generate(ctx, systemPrompt, userPrompt, temperature, true)
}

// GeminiEmbeddingClient implements EmbeddingClient using Gemini's
// text-embedding model.
type GeminiEmbeddingClient struct {
	Model string
	Dim   int
}

var _ EmbeddingClient = (*GeminiEmbeddingClient)(nil)

// NewGeminiEmbeddingClient returns a client for the given model, defaulting
// to "text-embedding-004" (768 dimensions) when model is empty.
func NewGeminiEmbeddingClient(model string) *GeminiEmbeddingClient {
	if model == "" {
		model = "text-embedding-004"
	}
	return &GeminiEmbeddingClient{Model: model, Dim: 768}
}

func (c *GeminiEmbeddingClient) Dimension() int { return c.Dim }

// Embed requests a single embedding vector for text.
func (c *GeminiEmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	result, err := client.Models.EmbedContent(ctx, c.Model, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding failed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("gemini embedding returned no vectors")
	}
	values := result.Embeddings[0].Values
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out, nil
}
