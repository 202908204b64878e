package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/firecheck/internal/model"
)

// clearProviderEnv keeps host credentials out of the tests
func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"SERPER_API_KEY", "OPENAI_API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY",
		"ANTHROPIC_API_KEY", "OLLAMA_BASE_URL", "FIRECHECK_LLM_MODEL", "FIRECHECK_LLM_API_KEY",
		"FIRECHECK_SEARCH_API_KEY",
	} {
		t.Setenv(name, "")
	}
}

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	clearProviderEnv(t)
	v := viper.New()
	bindEnv(v)
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper(t))
	require.NoError(t, err)

	want := model.DefaultConfig()
	assert.Equal(t, want.LLM, cfg.LLM)
	assert.Equal(t, want.Search, cfg.Search)
	assert.Equal(t, want.Cache, cfg.Cache)
	assert.Equal(t, want.Verify, cfg.Verify)
	assert.Equal(t, want.Authority.PrimaryDomains, cfg.Authority.PrimaryDomains)
}

func TestLoadConfig_Environment(t *testing.T) {
	v := newTestViper(t)
	t.Setenv("FIRECHECK_SEARCH_TOP_K", "3")
	t.Setenv("FIRECHECK_VERIFY_MAX_ITERATIONS", "7")
	t.Setenv("SERPER_API_KEY", "serper-key")
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Search.TopK)
	assert.Equal(t, 7, cfg.Verify.MaxIterations)
	assert.Equal(t, "serper-key", cfg.Search.APIKey)
	assert.Equal(t, "google-key", cfg.LLM.APIKey)
}

func TestLoadConfig_ProviderCredentials(t *testing.T) {
	tests := []struct {
		name    string
		model   string
		env     map[string]string
		wantKey string
		wantURL string
	}{
		{"openai", "openai:gpt-4o-mini", map[string]string{"OPENAI_API_KEY": "sk-1", "GOOGLE_API_KEY": "g"}, "sk-1", ""},
		{"gemini fallback", "google:gemini-2.5-flash", map[string]string{"GEMINI_API_KEY": "gem"}, "gem", ""},
		{"anthropic", "anthropic:claude-3-5-haiku-latest", map[string]string{"ANTHROPIC_API_KEY": "sk-ant"}, "sk-ant", ""},
		{"ollama", "ollama:llama3.1:8b", map[string]string{"OLLAMA_BASE_URL": "http://gpu:11434"}, "", "http://gpu:11434"},
		{"explicit key wins", "openai:gpt-4o", map[string]string{"OPENAI_API_KEY": "env", "FIRECHECK_LLM_API_KEY": "explicit"}, "explicit", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestViper(t)
			t.Setenv("FIRECHECK_LLM_MODEL", tt.model)
			for k, val := range tt.env {
				t.Setenv(k, val)
			}

			cfg, err := loadConfig(v)
			require.NoError(t, err)
			assert.Equal(t, tt.model, cfg.LLM.Model)
			assert.Equal(t, tt.wantKey, cfg.LLM.APIKey)
			assert.Equal(t, tt.wantURL, cfg.LLM.BaseURL)
		})
	}
}

func TestLoadConfig_InvalidModel(t *testing.T) {
	v := newTestViper(t)
	t.Setenv("FIRECHECK_LLM_MODEL", "gpt-4o")

	_, err := loadConfig(v)

	var cfgErr *model.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "llm.model", cfgErr.Field)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `search:
  top_k: 2
  timeout: 10s
  result_type: news
cache:
  enabled: false
authority:
  primary_domains: [example.gov]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := newTestViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Search.TopK)
	assert.Equal(t, 10*time.Second, cfg.Search.Timeout)
	assert.Equal(t, "news", cfg.Search.ResultType)
	assert.Equal(t, "us", cfg.Search.Region, "unset keys keep defaults")
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, []string{"example.gov"}, cfg.Authority.PrimaryDomains)
}

func TestLoadConfig_NoCacheFlag(t *testing.T) {
	v := newTestViper(t)
	v.Set("no-cache", true)

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.False(t, cfg.Cache.Enabled)
}

func TestWriteDefaultConfig(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDefaultConfig(&buf))

	assert.True(t, strings.HasPrefix(buf.String(), "# firecheck Configuration File"))
	assert.Contains(t, buf.String(), "export SERPER_API_KEY")

	var cfg model.Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &cfg))
	assert.Equal(t, model.DefaultConfig().LLM.Model, cfg.LLM.Model)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "****", maskSecret("abc"))
	assert.Equal(t, "****wxyz", maskSecret("sk-abcdefwxyz"))
}

func TestEncodeReports(t *testing.T) {
	reports := []*model.Report{
		{Claim: "a", Label: "TRUE", Result: &model.Verdict{Answer: model.AnswerTrue}},
		{Claim: "b", Status: model.StatusFailed, Error: "search failed"},
	}

	var buf bytes.Buffer
	require.NoError(t, encodeReports(&buf, reports))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"claim":"a"`)
	assert.Contains(t, lines[0], `"answer":"TRUE"`)
	assert.Contains(t, lines[1], `"result":null`)
}
