package llm

import (
	"fmt"
	"strings"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// NewClient creates an LLM client based on provider configuration.
func NewClient(provider string, opts Options) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderOpenAI:
		return NewOpenAIClient(opts)
	case ProviderOllama:
		return NewOllamaClient(opts)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
