package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/firecheck/internal/extract"
	"github.com/ppiankov/firecheck/internal/model"
	"github.com/ppiankov/firecheck/internal/pipeline"
	"github.com/ppiankov/firecheck/internal/search"
	"github.com/ppiankov/firecheck/internal/worker"
)

var (
	outJSON       string
	outMD         string
	outHTML       string
	verifyTimeout time.Duration
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <claim>",
	Short: "Verify a single claim",
	Long: `Verify runs the search-augmented reasoning loop for one claim:
- The model reads the claim and any evidence gathered so far
- It either asks for one more web search or commits to TRUE or FALSE
- The number of model calls is bounded by verify.max_iterations

The verdict, every search with its evidence, and the token usage are printed.

Example:
  firecheck verify "The Eiffel Tower is in Paris."
  firecheck verify "Water boils at 90C at sea level." --json report.json --md report.md
  firecheck verify "Mount Everest is in Nepal." --model openai:gpt-4o-mini --html report.html`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	// Output flags
	verifyCmd.Flags().StringVar(&outJSON, "json", "", "output JSON report path (optional)")
	verifyCmd.Flags().StringVar(&outMD, "md", "", "output Markdown report path (optional)")
	verifyCmd.Flags().StringVar(&outHTML, "html", "", "output HTML report path (optional)")

	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 5*time.Minute, "overall verification timeout")
}

// newPipeline builds a pipeline whose search client shares a per-host limiter
func newPipeline(cfg *model.Config) (*pipeline.Pipeline, error) {
	limiter := worker.NewLimiter(cfg.RateLimiting)
	return pipeline.New(cfg,
		pipeline.WithLogger(logger),
		pipeline.WithSearchOptions(search.WithRateLimiter(limiter)),
	)
}

func runVerify(cmd *cobra.Command, args []string) error {
	claim, err := extract.NormalizeClaim(strings.Join(args, " "))
	if err != nil {
		return err
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	p, err := newPipeline(cfg)
	if err != nil {
		var cfgErr *model.ConfigurationError
		if errors.As(err, &cfgErr) {
			return fmt.Errorf("%w\nRun 'firecheck config show' to inspect the effective configuration", err)
		}
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), verifyTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Verifying: %s\n", claim)
		fmt.Fprintf(os.Stderr, "Model: %s\n", cfg.LLM.Model)
		fmt.Fprintf(os.Stderr, "Max iterations: %d\n", cfg.Verify.MaxIterations)
		fmt.Fprintln(os.Stderr)
	}

	res := p.Verify(ctx, claim)
	report := p.Report(res, "")

	printResult(report)

	renderer := pipeline.NewRenderer()
	outputs := []struct {
		path   string
		render func(*model.Report, string) error
		kind   string
	}{
		{outJSON, renderer.RenderJSON, "JSON"},
		{outMD, renderer.RenderMarkdown, "Markdown"},
		{outHTML, renderer.RenderHTML, "HTML"},
	}
	for _, out := range outputs {
		if out.path == "" {
			continue
		}
		if err := out.render(report, out.path); err != nil {
			return fmt.Errorf("render %s: %w", out.kind, err)
		}
		fmt.Fprintf(os.Stderr, "✓ %s report: %s\n", out.kind, out.path)
	}

	if res.Verdict == nil {
		return fmt.Errorf("claim could not be verified: %w", res.Err)
	}
	return nil
}

// printResult writes the human summary of one run to stdout
func printResult(report *model.Report) {
	fmt.Println()
	fmt.Printf("Claim:   %s\n", report.Claim)
	if report.Result != nil {
		fmt.Printf("Verdict: %s\n", report.Result.Answer)
	} else {
		fmt.Printf("Verdict: UNVERIFIED (%s)\n", report.Error)
	}
	fmt.Println()

	for i, batch := range report.Searches.GoogleSearches {
		fmt.Printf("[%d] %s\n", i+1, batch.Query)
		fmt.Printf("    %s\n", extract.StripCitations(batch.Text))
		for _, src := range extract.ExtractSources(batch.Text) {
			fmt.Printf("    - %s\n", src)
		}
	}
	if len(report.Searches.GoogleSearches) > 0 {
		fmt.Println()
	}

	fmt.Printf("Searches: %d | Iterations: %d | Tokens: %d in / %d out | Time: %.1fs\n",
		len(report.Searches.GoogleSearches),
		report.Iterations,
		report.Usage.InputTokens,
		report.Usage.OutputTokens,
		report.Duration.Seconds())
}
