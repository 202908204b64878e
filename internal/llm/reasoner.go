package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/firecheck/internal/model"
	"github.com/ppiankov/firecheck/internal/retry"
)

// CallError reports that every attempt of an LLM call failed
type CallError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: completion failed after %d attempt(s): %v", e.Provider, e.Attempts, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Reasoner asks the model for the next step of a verification run. It holds
// no per-run state.
type Reasoner struct {
	provider    Provider
	model       string
	temperature float64
	maxTokens   int
	retrier     *retry.Retrier
	logger      *slog.Logger
}

// ReasonerOption customizes a Reasoner
type ReasonerOption func(*Reasoner)

// WithReasonerSleep replaces the backoff sleeper and random source
func WithReasonerSleep(sleep retry.SleepFunc, rand func() float64) ReasonerOption {
	return func(r *Reasoner) {
		r.retrier.Sleep = sleep
		r.retrier.Rand = rand
	}
}

// WithReasonerLogger sets the structured logger
func WithReasonerLogger(logger *slog.Logger) ReasonerOption {
	return func(r *Reasoner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReasoner wraps a provider with the decision protocol. Zero timeout and
// attempt settings keep the retry defaults.
func NewReasoner(provider Provider, config Config, opts ...ReasonerOption) (*Reasoner, error) {
	policy := retry.DefaultPolicy()
	if config.Timeout != 0 {
		policy.AttemptTimeout = time.Duration(config.Timeout) * time.Second
	}
	if config.MaxAttempts != 0 {
		policy.MaxAttempts = config.MaxAttempts
	}
	if err := policy.Validate(); err != nil {
		return nil, &model.ConfigurationError{Field: "llm", Reason: err.Error()}
	}

	r := &Reasoner{
		provider:    provider,
		model:       config.Model,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		retrier:     retry.New(policy),
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Model returns the "provider:model" identifier in use
func (r *Reasoner) Model() string {
	return r.provider.Name() + ":" + r.model
}

// Decide issues one model call and parses the reply. Usage of the call is
// returned with the decision. Transport failures are retried; an error is
// returned only when every attempt failed.
func (r *Reasoner) Decide(ctx context.Context, claim string, batches []model.SearchBatch, mode Mode) (Decision, model.Usage, error) {
	temperature := r.temperature
	req := CompletionRequest{
		System:      SystemPrompt,
		Prompt:      BuildPrompt(claim, batches, mode),
		Model:       r.model,
		MaxTokens:   r.maxTokens,
		Temperature: &temperature,
	}

	retrier := *r.retrier
	retrier.OnRetry = func(attempt int, delay time.Duration, err error) {
		r.logger.Warn("llm attempt failed",
			"provider", r.provider.Name(),
			"attempt", attempt,
			"max_attempts", retrier.Policy.MaxAttempts,
			"retry_in", delay,
			"error", err)
	}

	var resp *CompletionResponse
	attempts, err := retrier.Do(ctx, func(ctx context.Context, attempt int) error {
		out, err := r.provider.Complete(ctx, req)
		if err != nil {
			return err
		}
		resp = out
		return nil
	})
	if err != nil {
		return Decision{}, model.Usage{}, &CallError{
			Provider: r.provider.Name(),
			Attempts: attempts,
			Err:      err,
		}
	}

	decision := ParseDecision(resp.Text)
	r.logger.Debug("llm decision",
		"mode", mode.String(),
		"kind", decision.Kind.String(),
		"query", decision.Query,
		"answer", string(decision.Answer),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens)

	return decision, resp.Usage, nil
}
