package provider

import (
	"strings"

	"github.com/rotisserie/eris"
)

// New creates a provider by name. An empty name returns nil with no error,
// meaning the capability is disabled.
func New(name string, config Config) (Provider, error) {
	switch strings.ToLower(name) {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "huggingface", "hf":
		return NewHuggingFaceProvider(config)

	case "":
		return nil, nil

	default:
		return nil, eris.Errorf("unknown provider: %s (supported: openai, anthropic, ollama, huggingface)", name)
	}
}
