// Package pipeline runs the claim verification loop: the model alternates
// between requesting searches and finalizing a verdict until it answers or
// the call budget runs out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/firecheck/internal/cache"
	"github.com/ppiankov/firecheck/internal/extract"
	"github.com/ppiankov/firecheck/internal/llm"
	"github.com/ppiankov/firecheck/internal/model"
	"github.com/ppiankov/firecheck/internal/search"
	"github.com/ppiankov/firecheck/internal/validate"
)

// DefaultMaxIterations is the LLM call budget of one run
const DefaultMaxIterations = 5

// ErrBudgetExhausted is returned when a run has no LLM calls left
var ErrBudgetExhausted = errors.New("iteration budget exhausted")

// Reasoner decides the next step of a run
type Reasoner interface {
	Decide(ctx context.Context, claim string, batches []model.SearchBatch, mode llm.Mode) (llm.Decision, model.Usage, error)
	Model() string
}

// Pipeline verifies claims. It holds no per-run state; one Pipeline may
// serve concurrent Verify calls.
type Pipeline struct {
	reasoner      Reasoner
	searcher      search.Searcher
	classifier    *validate.AuthorityClassifier
	maxIterations int
	logger        *slog.Logger
	now           func() time.Time
	newID         func() string

	searchOpts   []search.Option
	reasonerOpts []llm.ReasonerOption
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithReasoner replaces the LLM reasoning client
func WithReasoner(r Reasoner) Option {
	return func(p *Pipeline) { p.reasoner = r }
}

// WithSearcher replaces the search client
func WithSearcher(s search.Searcher) Option {
	return func(p *Pipeline) { p.searcher = s }
}

// WithSearchOptions passes options to the search client built from config
func WithSearchOptions(opts ...search.Option) Option {
	return func(p *Pipeline) { p.searchOpts = append(p.searchOpts, opts...) }
}

// WithReasonerOptions passes options to the reasoning client built from config
func WithReasonerOptions(opts ...llm.ReasonerOption) Option {
	return func(p *Pipeline) { p.reasonerOpts = append(p.reasonerOpts, opts...) }
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline from configuration. Clients not supplied through
// options are built from cfg; missing credentials surface here as a
// *model.ConfigurationError, before any run starts.
func New(cfg *model.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}

	p := &Pipeline{
		classifier:    validate.NewAuthorityClassifier(&cfg.Authority),
		maxIterations: cfg.Verify.MaxIterations,
		logger:        slog.New(slog.DiscardHandler),
		now:           time.Now,
		newID:         uuid.NewString,
	}
	if p.maxIterations <= 0 {
		p.maxIterations = DefaultMaxIterations
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.reasoner == nil {
		llmConfig, err := llm.ConfigFromModel(cfg.LLM, cfg.HTTP)
		if err != nil {
			return nil, err
		}
		provider, err := llm.NewProvider(llmConfig)
		if err != nil {
			return nil, err
		}
		reasonerOpts := append([]llm.ReasonerOption{llm.WithReasonerLogger(p.logger)}, p.reasonerOpts...)
		reasoner, err := llm.NewReasoner(provider, llmConfig, reasonerOpts...)
		if err != nil {
			return nil, err
		}
		p.reasoner = reasoner
	}

	if p.searcher == nil {
		searchOpts := []search.Option{search.WithLogger(p.logger)}
		if store := cache.New(cfg.Cache); store != nil {
			searchOpts = append(searchOpts, search.WithCache(store, cfg.Cache.TTL))
		}
		searchOpts = append(searchOpts, p.searchOpts...)

		client, err := search.NewClient(cfg.Search, cfg.HTTP, searchOpts...)
		if err != nil {
			return nil, err
		}
		p.searcher = client
	}

	return p, nil
}

// Result is the outcome of one verification run. A nil Verdict means the
// claim could not be verified; Err then says why, and Searches and Usage hold
// whatever was gathered before the failure.
type Result struct {
	RunID      string
	Claim      string
	Model      string
	Status     model.RunStatus
	Verdict    *model.Verdict
	Searches   []model.SearchBatch
	Usage      model.Usage
	Iterations int
	Sources    []string
	Err        error
	StartedAt  time.Time
	Duration   time.Duration
}

// Verify runs the verification loop for one claim. It never returns an error
// and never panics; failures are reported through Result.
func (p *Pipeline) Verify(ctx context.Context, claim string) (res Result) {
	res = Result{
		RunID:     p.newID(),
		Claim:     claim,
		Model:     p.reasoner.Model(),
		Status:    model.StatusRunning,
		StartedAt: p.now(),
	}
	logger := p.logger.With("run_id", res.RunID)
	ledger := &Ledger{}

	defer func() {
		if r := recover(); r != nil {
			res.Verdict = nil
			res.Status = model.StatusFailed
			res.Err = fmt.Errorf("verification panicked: %v", r)
		}

		res.Searches = ledger.Batches()
		res.Usage = ledger.Usage()
		res.Iterations = ledger.Calls()
		res.Sources = ledger.Sources()
		res.Duration = p.now().Sub(res.StartedAt)

		attrs := []any{
			"status", res.Status,
			"iterations", res.Iterations,
			"searches", len(res.Searches),
			"input_tokens", res.Usage.InputTokens,
			"output_tokens", res.Usage.OutputTokens,
			"duration", res.Duration,
		}
		if res.Verdict != nil {
			logger.Info("verification finished", append(attrs, "answer", res.Verdict.Answer)...)
		} else {
			logger.Warn("verification failed", append(attrs, "error", res.Err)...)
		}
	}()

	text, err := extract.NormalizeClaim(claim)
	if err != nil {
		res.fail(err)
		return res
	}
	res.Claim = text
	logger.Info("verification started", "claim", text, "model", res.Model, "max_iterations", p.maxIterations)

	res.Verdict, res.Err = p.run(ctx, text, ledger, logger)
	if res.Verdict != nil {
		res.Status = model.StatusDone
	} else {
		res.Status = model.StatusFailed
	}
	return res
}

func (r *Result) fail(err error) {
	r.Verdict = nil
	r.Status = model.StatusFailed
	r.Err = err
}

// run is the decision loop. Each LLM call consumes one unit of the budget,
// corrective re-prompts included. The call that leaves no budget behind is
// issued in forced mode.
func (p *Pipeline) run(ctx context.Context, claim string, ledger *Ledger, logger *slog.Logger) (*model.Verdict, error) {
	mode := llm.ModeNormal
	corrected := false

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("verification cancelled: %w", err)
		}

		remaining := p.maxIterations - ledger.Calls()
		if remaining <= 0 {
			return nil, ErrBudgetExhausted
		}
		if remaining == 1 {
			mode = llm.ModeForced
		}

		decision, usage, err := p.reasoner.Decide(ctx, claim, ledger.Batches(), mode)
		if err != nil {
			return nil, fmt.Errorf("reasoning call: %w", err)
		}
		ledger.AddCall(usage)

		switch decision.Kind {
		case llm.DecisionFinalize:
			return &model.Verdict{Answer: decision.Answer, Response: decision.Text}, nil

		case llm.DecisionSearch:
			if mode == llm.ModeForced {
				return nil, &llm.MalformedResponseError{
					Mode:   mode,
					Reason: "search requested after the search budget was exhausted",
					Text:   decision.Text,
				}
			}

			logger.Debug("search requested", "query", decision.Query, "iteration", ledger.Calls())
			batch, err := p.searcher.Search(ctx, decision.Query)
			if err != nil {
				return nil, err
			}
			ledger.AddBatch(*batch)
			mode = llm.ModeNormal
			corrected = false

		default:
			if mode == llm.ModeForced || corrected {
				return nil, &llm.MalformedResponseError{
					Mode:   mode,
					Reason: decision.Reason,
					Text:   decision.Text,
				}
			}
			logger.Debug("unparseable reply, re-prompting", "reason", decision.Reason)
			corrected = true
			mode = llm.ModeCorrective
		}
	}
}

// Report converts a run result into its serializable record. Cited sources
// are classified by authority.
func (p *Pipeline) Report(res Result, label string) *model.Report {
	report := &model.Report{
		RunID:      res.RunID,
		Claim:      res.Claim,
		Label:      label,
		Model:      res.Model,
		Status:     res.Status,
		Result:     res.Verdict,
		Searches:   model.SearchLog{GoogleSearches: res.Searches},
		Usage:      res.Usage,
		Iterations: res.Iterations,
		Sources:    p.classifier.ClassifyAll(res.Sources),
		StartedAt:  res.StartedAt,
		Duration:   res.Duration,
	}
	if report.Searches.GoogleSearches == nil {
		report.Searches.GoogleSearches = []model.SearchBatch{}
	}
	if res.Err != nil {
		report.Error = res.Err.Error()
	}
	return report
}
