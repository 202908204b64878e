package model

import "time"

// Config is the complete firecheck configuration
type Config struct {
	LLM          LLMConfig          `yaml:"llm"`
	Search       SearchConfig       `yaml:"search"`
	Verify       VerifyConfig       `yaml:"verify"`
	Cache        CacheConfig        `yaml:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting"`
	Authority    AuthorityConfig    `yaml:"authority"`
	HTTP         HTTPConfig         `yaml:"http"`
	Output       OutputConfig       `yaml:"output"`
}

// LLMConfig configures the reasoning model
type LLMConfig struct {
	// Model is "provider:model", e.g. "google:gemini-2.5-flash" or "openai:gpt-4o-mini"
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     int     `yaml:"timeout"` // seconds, per attempt
	MaxAttempts int     `yaml:"max_attempts"`
}

// SearchConfig configures the search backend client
type SearchConfig struct {
	APIKey      string        `yaml:"api_key,omitempty"`
	BaseURL     string        `yaml:"base_url"`
	Region      string        `yaml:"region"`
	Language    string        `yaml:"language"`
	ResultType  string        `yaml:"result_type"` // web, news, images, places
	TopK        int           `yaml:"top_k"`
	TimeRange   string        `yaml:"time_range,omitempty"` // Backend time filter (e.g. "qdr:y")
	Timeout     time.Duration `yaml:"timeout"`              // Per attempt
	MaxAttempts int           `yaml:"max_attempts"`
}

// VerifyConfig configures the verification loop
type VerifyConfig struct {
	MaxIterations int `yaml:"max_iterations"` // Maximum LLM calls per run
}

// CacheConfig configures the search response cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
	DiskDir string        `yaml:"disk_dir,omitempty"` // Empty keeps the cache in memory only
}

// ConcurrencyConfig configures batch parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers"`
}

// RateLimitingConfig throttles requests per provider host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 disables throttling
	BurstSize         int     `yaml:"burst_size"`
}

// AuthorityConfig drives source authority classification
type AuthorityConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty"`
	PathPatterns     []PathPattern     `yaml:"path_patterns,omitempty"`
}

// PathPattern maps a URL path regexp to a tier name
type PathPattern struct {
	Pattern string `yaml:"pattern"`
	Tier    string `yaml:"tier"`
}

// HTTPConfig holds outbound HTTP settings shared by all providers
type HTTPConfig struct {
	HTTPProxy  string `yaml:"http_proxy,omitempty"`
	HTTPSProxy string `yaml:"https_proxy,omitempty"`
	NoProxy    string `yaml:"no_proxy,omitempty"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:       "google:gemini-2.5-flash",
			Temperature: 0.5,
			MaxTokens:   2048,
			Timeout:     60,
			MaxAttempts: 3,
		},
		Search: SearchConfig{
			BaseURL:     "https://google.serper.dev",
			Region:      "us",
			Language:    "en",
			ResultType:  "web",
			TopK:        1,
			Timeout:     30 * time.Second,
			MaxAttempts: 3,
		},
		Verify: VerifyConfig{
			MaxIterations: 5,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 5,
			BurstSize:         5,
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"gov", "edu", "ac.uk", "gov.uk", "europa.eu", "who.int", "un.org",
				"doi.org", "nih.gov", "arxiv.org", "nature.com", "science.org",
			},
			SecondaryDomains: []string{
				"wikipedia.org", "britannica.com", "reuters.com", "apnews.com",
				"bbc.co.uk", "bbc.com", "nytimes.com", "theguardian.com",
			},
		},
	}
}
