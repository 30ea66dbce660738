package core

import "context"

// EmbeddingProvider turns text into vectors using a hosted model.
// Embedding computation is fully delegated to the provider.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMProvider generates completions with a hosted model. Name
// identifies the configured provider in responses.
type LLMProvider interface {
	Name() string
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
