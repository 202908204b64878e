package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/firecheck/internal/extract"
	"github.com/ppiankov/firecheck/internal/model"
	"github.com/ppiankov/firecheck/internal/pipeline"
	"github.com/ppiankov/firecheck/internal/score"
	"github.com/ppiankov/firecheck/internal/worker"
)

var (
	concurrency  int
	outputPath   string
	summaryPath  string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dataset.jsonl>",
	Short: "Verify a dataset of claims in parallel",
	Long: `Batch verifies every claim in a dataset concurrently:
- Read claims from a JSONL file ({"claim": "...", "label": true}) or plain text, one per line
- Verify claims in parallel with configurable worker count
- Write one JSON record per claim, in input order
- Print a summary with accuracy against labels, token totals and source authority

Example:
  firecheck batch claims.jsonl
  firecheck batch claims.jsonl --concurrency 8 --output results.jsonl
  firecheck batch claims.jsonl --model openai:gpt-4o-mini --summary summary.json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers, or CPU count)")
	batchCmd.Flags().StringVar(&outputPath, "output", "firecheck-results.jsonl", "output JSONL path (- for stdout)")
	batchCmd.Flags().StringVar(&summaryPath, "summary", "", "output JSON summary path (optional)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", time.Hour, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	workers := concurrency
	if workers <= 0 {
		workers = cfg.Concurrency.Workers
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	claims, err := extract.LoadClaims(file)
	if err != nil {
		return fmt.Errorf("load claims: %w", err)
	}

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  firecheck Batch Verification\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s (%d claims)\n", file, len(claims))
	fmt.Fprintf(os.Stderr, "  Model:        %s\n", cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Output:       %s\n", outputPath)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	var done atomic.Int32
	total := len(claims)
	processor := worker.NewBatchProcessor(p, workers, worker.WithProgress(func(r *worker.ClaimResult) {
		n := done.Add(1)
		if r.Result.Verdict != nil {
			fmt.Fprintf(os.Stderr, "✓ [%d/%d] line %d: %s\n", n, total, r.Claim.Line, r.Result.Verdict.Answer)
		} else {
			fmt.Fprintf(os.Stderr, "✗ [%d/%d] line %d: %v\n", n, total, r.Claim.Line, r.Result.Err)
		}
	}))

	results := processor.ProcessClaims(ctx, claims)

	reports := make([]*model.Report, len(results))
	for i, r := range results {
		reports[i] = p.Report(r.Result, r.Claim.Label)
	}

	if err := writeReports(outputPath, reports); err != nil {
		return err
	}

	summary := score.NewScorer().Calculate(reports)
	printSummary(summary)

	if summaryPath != "" {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
		if err := os.WriteFile(summaryPath, data, 0o644); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	return ctx.Err()
}

// writeReports writes one compact JSON record per line
func writeReports(path string, reports []*model.Report) (err error) {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, createErr := os.Create(path)
		if createErr != nil {
			return fmt.Errorf("create output: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output: %w", closeErr)
			}
		}()
		w = f
	}

	return encodeReports(w, reports)
}

func encodeReports(w io.Writer, reports []*model.Report) error {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	for _, r := range reports {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

// printSummary writes the batch summary to stderr
func printSummary(s score.Summary) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:        %d claims\n", s.Total)
	fmt.Fprintf(os.Stderr, "  Verified:     %d (%d TRUE, %d FALSE)\n", s.Completed, s.TrueVerdicts, s.FalseVerdicts)
	fmt.Fprintf(os.Stderr, "  Failed:       %d\n", s.Failed)
	fmt.Fprintf(os.Stderr, "  Success rate: %.1f%%\n", s.SuccessRate*100)
	if s.Labeled > 0 {
		fmt.Fprintf(os.Stderr, "  Accuracy:     %.1f%% (%d/%d labeled)\n", s.Accuracy*100, s.Correct, s.Labeled)
	}
	fmt.Fprintf(os.Stderr, "  Searches:     %d (%.2f per claim)\n", s.Searches, s.AvgSearches)
	fmt.Fprintf(os.Stderr, "  Tokens:       %d in / %d out\n", s.Usage.InputTokens, s.Usage.OutputTokens)
	fmt.Fprintf(os.Stderr, "  Sources:      %d primary, %d secondary, %d tertiary\n",
		s.Authority.Primary, s.Authority.Secondary, s.Authority.Tertiary)
	fmt.Fprintf(os.Stderr, "\n")

	for _, sig := range s.Signals {
		if sig.Severity != score.SeverityInfo {
			fmt.Fprintf(os.Stderr, "  ! [%s] %s\n", sig.Severity, sig.Description)
		}
	}
}

var _ worker.Verifier = (*pipeline.Pipeline)(nil)
