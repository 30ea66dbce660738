// Package llm hosts the supported answer/embedding providers behind
// the core interfaces. Provider selection happens once at startup.
package llm

import (
	"context"

	"github.com/docqueryhq/docquery/internal/apperr"
	"github.com/docqueryhq/docquery/internal/config"
	"github.com/docqueryhq/docquery/internal/core"
)

// New resolves the configured provider pair. The config has already
// validated that the matching credentials are present.
func New(ctx context.Context, cfg *config.Config) (core.LLMProvider, core.EmbeddingProvider, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		gen, err := NewGeminiLLM(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, apperr.Wrap(apperr.Configuration, "init gemini client", err)
		}
		emb, err := NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbedModel)
		if err != nil {
			return nil, nil, apperr.Wrap(apperr.Configuration, "init gemini embedder", err)
		}
		return gen, emb, nil
	case config.ProviderOpenAI:
		return NewOpenAILLM(cfg.OpenAIAPIKey, cfg.OpenAIModel),
			NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbedModel), nil
	}
	return nil, nil, apperr.Newf(apperr.Configuration, "unknown LLM provider %q", cfg.LLMProvider)
}
