package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/firecheck/internal/model"
)

// ParseModelID splits a "provider:model" identifier. The model part may itself
// contain colons (e.g. "ollama:llama3.1:8b").
func ParseModelID(id string) (provider, name string, err error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "", model.MissingSetting("llm.model")
	}

	provider, name, found := strings.Cut(id, ":")
	provider = strings.ToLower(strings.TrimSpace(provider))
	name = strings.TrimSpace(name)
	if !found || provider == "" || name == "" {
		return "", "", &model.ConfigurationError{
			Field:  "llm.model",
			Reason: fmt.Sprintf("%q is not of the form provider:model", id),
		}
	}

	return provider, name, nil
}

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	var (
		provider Provider
		err      error
	)

	switch strings.ToLower(config.Provider) {
	case "openai":
		provider, err = asProvider(NewOpenAIProvider(config))

	case "google", "gemini":
		provider, err = asProvider(NewGeminiProvider(config))

	case "anthropic", "claude":
		provider, err = asProvider(NewAnthropicProvider(config))

	case "ollama":
		provider, err = asProvider(NewOllamaProvider(config))

	default:
		err = &model.ConfigurationError{
			Field:  "llm.model",
			Reason: fmt.Sprintf("unknown LLM provider %q (supported: openai, google, anthropic, ollama)", config.Provider),
		}
	}

	if err != nil {
		return nil, err
	}
	return provider, nil
}

// asProvider keeps a failed constructor from yielding a non-nil interface
// holding a nil pointer
func asProvider[P Provider](p P, err error) (Provider, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ConfigFromModel converts model configuration to provider configuration
func ConfigFromModel(llmConfig model.LLMConfig, httpConfig model.HTTPConfig) (Config, error) {
	provider, name, err := ParseModelID(llmConfig.Model)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Provider:    provider,
		Model:       name,
		APIKey:      llmConfig.APIKey,
		BaseURL:     llmConfig.BaseURL,
		Timeout:     llmConfig.Timeout,
		MaxTokens:   llmConfig.MaxTokens,
		Temperature: llmConfig.Temperature,
		MaxAttempts: llmConfig.MaxAttempts,
		HTTPProxy:   httpConfig.HTTPProxy,
		HTTPSProxy:  httpConfig.HTTPSProxy,
		NoProxy:     httpConfig.NoProxy,
	}, nil
}
