package llm

import (
	"errors"
	"testing"

	"github.com/ppiankov/firecheck/internal/model"
)

func TestParseModelID(t *testing.T) {
	tests := []struct {
		id       string
		provider string
		name     string
		wantErr  bool
	}{
		{id: "google:gemini-2.5-flash", provider: "google", name: "gemini-2.5-flash"},
		{id: "OpenAI:gpt-4o-mini", provider: "openai", name: "gpt-4o-mini"},
		{id: "ollama:llama3.1:8b", provider: "ollama", name: "llama3.1:8b"},
		{id: "gpt-4o-mini", wantErr: true},
		{id: "openai:", wantErr: true},
		{id: ":gpt-4o", wantErr: true},
		{id: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			provider, name, err := ParseModelID(tt.id)
			if tt.wantErr {
				var cfgErr *model.ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("Expected ConfigurationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if provider != tt.provider || name != tt.name {
				t.Errorf("Got %q/%q, want %q/%q", provider, name, tt.provider, tt.name)
			}
		})
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		config  Config
		name    string
		wantErr bool
	}{
		{config: Config{Provider: "openai", APIKey: "k"}, name: "openai"},
		{config: Config{Provider: "google", APIKey: "k"}, name: "google"},
		{config: Config{Provider: "gemini", APIKey: "k"}, name: "google"},
		{config: Config{Provider: "anthropic", APIKey: "k"}, name: "anthropic"},
		{config: Config{Provider: "claude", APIKey: "k"}, name: "anthropic"},
		{config: Config{Provider: "ollama", Model: "llama3.1"}, name: "ollama"},
		{config: Config{Provider: "openai"}, wantErr: true},
		{config: Config{Provider: "mistral", APIKey: "k"}, wantErr: true},
	}

	for _, tt := range tests {
		provider, err := NewProvider(tt.config)
		if tt.wantErr {
			var cfgErr *model.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("%s: expected ConfigurationError, got %v", tt.config.Provider, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.config.Provider, err)
			continue
		}
		if provider.Name() != tt.name {
			t.Errorf("%s: expected name %s, got %s", tt.config.Provider, tt.name, provider.Name())
		}
	}
}

func TestConfigFromModel(t *testing.T) {
	llmCfg := model.DefaultConfig().LLM
	llmCfg.APIKey = "k"

	cfg, err := ConfigFromModel(llmCfg, model.HTTPConfig{HTTPSProxy: "http://proxy:8080"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Provider != "google" || cfg.Model != "gemini-2.5-flash" {
		t.Errorf("Unexpected provider/model: %s/%s", cfg.Provider, cfg.Model)
	}
	if cfg.Temperature != 0.5 || cfg.MaxTokens != 2048 || cfg.MaxAttempts != 3 {
		t.Errorf("Defaults not carried over: %+v", cfg)
	}
	if cfg.HTTPSProxy != "http://proxy:8080" {
		t.Errorf("Proxy not carried over: %+v", cfg)
	}
}
