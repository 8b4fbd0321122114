// Package llm abstracts the interchangeable review backends behind one
// streaming query contract. A provider is chosen once at startup and kept
// for the life of the process.
package llm

import (
	"context"
	"time"

	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/config"
)

// Provider is the uniform capability set every backend implements.
// QueryStream delivers incremental chunks through onChunk and returns the
// concatenated full text. Callers that only want the final text may pass a
// nil onChunk. CheckAvailability is a best-effort startup probe; it never
// returns an error, only a verdict.
type Provider interface {
	Name() string
	QueryStream(ctx context.Context, prompt string, onChunk func(string)) (string, error)
	CheckAvailability(ctx context.Context) bool
}

// New builds the provider selected by the configuration. The config layer
// has already rejected unknown provider names.
func New(cfg *config.Config) Provider {
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIBaseURL, cfg.LLM.OpenAIModel)
	case config.ProviderCodex:
		return NewCodex(cfg.LLM.CodexCLIPath, time.Duration(cfg.LLM.CodexTimeoutSeconds)*time.Second)
	default:
		return NewOllama(cfg.LLM.OllamaURL, cfg.LLM.OllamaModel, time.Duration(cfg.LLM.OllamaTimeoutSeconds)*time.Second)
	}
}
