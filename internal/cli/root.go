package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/firecheck/internal/llm"
	"github.com/ppiankov/firecheck/internal/model"
)

var (
	cfgFile string
	verbose bool
	logger  = slog.New(slog.DiscardHandler)
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "firecheck",
	Short: "firecheck - iterative search-augmented claim verification",
	Long: `firecheck verifies short factual claims. A language model reasons over
the claim, asks for web searches when it needs evidence, and finalizes a
TRUE or FALSE verdict once it has enough. Every search and every cited
source is kept with the result.

A verdict is the model's judgment over retrieved evidence, not ground truth.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	},
}

// Execute runs the root command. Cancelling ctx stops in-flight
// verifications at their next iteration boundary.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and the reasoning prompt grammar version.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("firecheck v0.1.0 (prompt grammar v%s)\n", llm.GrammarVersion)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.firecheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("model", "", "reasoning model as provider:model (e.g. google:gemini-2.5-flash)")
	rootCmd.PersistentFlags().Int("max-iterations", 0, "maximum LLM calls per claim")
	rootCmd.PersistentFlags().Bool("no-cache", false, "disable the search response cache")
	rootCmd.PersistentFlags().String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	rootCmd.PersistentFlags().String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("llm.model", rootCmd.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("verify.max_iterations", rootCmd.PersistentFlags().Lookup("max-iterations"))
	_ = viper.BindPFlag("http.http_proxy", rootCmd.PersistentFlags().Lookup("http-proxy"))
	_ = viper.BindPFlag("http.https_proxy", rootCmd.PersistentFlags().Lookup("https-proxy"))
	_ = viper.BindPFlag("no-cache", rootCmd.PersistentFlags().Lookup("no-cache"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".firecheck"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	bindEnv(viper.GetViper())

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// registerDefaults makes every config key known to viper so that
// FIRECHECK_* overrides apply to keys absent from the config file
func registerDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}

	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}

	var walk func(prefix string, node map[string]interface{})
	walk = func(prefix string, node map[string]interface{}) {
		for key, value := range node {
			if child, ok := value.(map[string]interface{}); ok {
				walk(prefix+key+".", child)
				continue
			}
			v.SetDefault(prefix+key, value)
		}
	}
	walk("", tree)

	return nil
}

// bindEnv maps FIRECHECK_* variables onto config keys and wires the
// conventional provider variables as fallbacks
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("FIRECHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("search.api_key", "FIRECHECK_SEARCH_API_KEY", "SERPER_API_KEY")
	_ = v.BindEnv("llm.api_key", "FIRECHECK_LLM_API_KEY")
	_ = v.BindEnv("llm.base_url", "FIRECHECK_LLM_BASE_URL")
	_ = v.BindEnv("llm.model", "FIRECHECK_LLM_MODEL")
	_ = v.BindEnv("http.http_proxy", "FIRECHECK_HTTP_HTTP_PROXY", "HTTP_PROXY", "http_proxy")
	_ = v.BindEnv("http.https_proxy", "FIRECHECK_HTTP_HTTPS_PROXY", "HTTPS_PROXY", "https_proxy")
	_ = v.BindEnv("http.no_proxy", "FIRECHECK_HTTP_NO_PROXY", "NO_PROXY", "no_proxy")
}

// providerEnv lists the environment variables consulted for each provider's
// credentials when llm.api_key is not set
var providerEnv = map[string][]string{
	"openai":    {"OPENAI_API_KEY"},
	"google":    {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"gemini":    {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
	"claude":    {"ANTHROPIC_API_KEY"},
}

// loadConfig merges defaults, config file, environment and flags
func loadConfig(v *viper.Viper) (*model.Config, error) {
	if err := registerDefaults(v); err != nil {
		return nil, err
	}

	cfg := &model.Config{}
	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if v.GetBool("no-cache") {
		cfg.Cache.Enabled = false
	}

	provider, _, err := llm.ParseModelID(cfg.LLM.Model)
	if err != nil {
		return nil, err
	}
	if cfg.LLM.APIKey == "" {
		for _, name := range providerEnv[provider] {
			if key := os.Getenv(name); key != "" {
				cfg.LLM.APIKey = key
				break
			}
		}
	}
	if provider == "ollama" && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}

	return cfg, nil
}
