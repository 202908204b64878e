// Package search executes web search queries against a Serper-compatible
// backend and turns the replies into citable evidence batches.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/firecheck/internal/cache"
	"github.com/ppiankov/firecheck/internal/extract"
	"github.com/ppiankov/firecheck/internal/model"
	"github.com/ppiankov/firecheck/internal/retry"
	"github.com/ppiankov/firecheck/internal/util"
)

const (
	providerName   = "serper"
	defaultBaseURL = "https://google.serper.dev"
	maxBodyBytes   = 4 << 20
)

// Searcher executes one query and returns its evidence batch
type Searcher interface {
	Search(ctx context.Context, query string) (*model.SearchBatch, error)
}

// RateLimiter throttles outbound requests per host
type RateLimiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Client queries the search backend. It holds no per-run state and is safe
// for concurrent use.
type Client struct {
	apiKey     string
	endpoint   string
	body       requestBody
	httpClient *http.Client
	extractor  *extract.EvidenceExtractor
	retrier    *retry.Retrier
	cache      cache.Cache
	cacheTTL   time.Duration
	limiter    RateLimiter
	logger     *slog.Logger
}

// requestBody is the JSON body sent to the backend; empty options are omitted
type requestBody struct {
	Q   string `json:"q"`
	GL  string `json:"gl,omitempty"`
	HL  string `json:"hl,omitempty"`
	Num int    `json:"num,omitempty"`
	TBS string `json:"tbs,omitempty"`
}

// Option customizes a Client
type Option func(*Client)

// WithCache caches raw backend replies
func WithCache(store cache.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = store
		c.cacheTTL = ttl
	}
}

// WithRateLimiter throttles every attempt through limiter
func WithRateLimiter(limiter RateLimiter) Option {
	return func(c *Client) { c.limiter = limiter }
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSleep replaces the backoff sleeper and random source
func WithSleep(sleep retry.SleepFunc, rand func() float64) Option {
	return func(c *Client) {
		c.retrier.Sleep = sleep
		c.retrier.Rand = rand
	}
}

// NewClient creates a search client from configuration
func NewClient(cfg model.SearchConfig, httpCfg model.HTTPConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, model.MissingSetting("search.api_key")
	}

	resultType, err := extract.ParseResultType(cfg.ResultType)
	if err != nil {
		return nil, &model.ConfigurationError{Field: "search.result_type", Reason: err.Error()}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	topK := cfg.TopK
	if topK < 1 {
		topK = 1
	}

	// Zero keeps the default; anything else must form a valid policy
	policy := retry.DefaultPolicy()
	if cfg.MaxAttempts != 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.Timeout != 0 {
		policy.AttemptTimeout = cfg.Timeout
	}
	if err := policy.Validate(); err != nil {
		return nil, &model.ConfigurationError{Field: "search", Reason: err.Error()}
	}

	c := &Client{
		apiKey:   cfg.APIKey,
		endpoint: strings.TrimSuffix(baseURL, "/") + "/" + resultType.Endpoint(),
		body: requestBody{
			GL:  cfg.Region,
			HL:  cfg.Language,
			Num: topK,
			TBS: cfg.TimeRange,
		},
		httpClient: util.NewHTTPClient(httpCfg, policy.AttemptTimeout),
		extractor:  extract.NewEvidenceExtractor(resultType, topK),
		retrier:    retry.New(policy),
		logger:     slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Search runs one query and returns its evidence batch. After every attempt
// fails it returns a *ProviderExhaustedError; it never substitutes an empty
// batch for a failure.
func (c *Client) Search(ctx context.Context, query string) (*model.SearchBatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	body := c.body
	body.Q = query
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	key := cache.Key(c.endpoint, string(payload))
	if c.cache != nil {
		if raw, ok := c.cache.Get(key); ok {
			if resp, err := extract.ParseResponse(raw); err == nil {
				c.logger.Debug("search cache hit", "query", query)
				return c.batch(query, resp), nil
			}
			_ = c.cache.Delete(key)
		}
	}

	var raw []byte
	var resp *extract.Response
	retrier := *c.retrier
	retrier.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.logger.Warn("search attempt failed",
			"query", query,
			"attempt", attempt,
			"max_attempts", retrier.Policy.MaxAttempts,
			"retry_in", delay,
			"error", err)
	}

	attempts, err := retrier.Do(ctx, func(ctx context.Context, attempt int) error {
		data, err := c.post(ctx, payload)
		if err != nil {
			return err
		}
		parsed, err := extract.ParseResponse(data)
		if err != nil {
			return err
		}
		raw, resp = data, parsed
		return nil
	})
	if err != nil {
		return nil, &ProviderExhaustedError{
			Provider: providerName,
			Query:    query,
			Attempts: attempts,
			Err:      err,
		}
	}

	if c.cache != nil {
		if err := c.cache.Set(key, raw, c.cacheTTL); err != nil {
			c.logger.Warn("search cache write failed", "error", err)
		}
	}

	batch := c.batch(query, resp)
	c.logger.Debug("search completed", "query", query, "attempts", attempts, "items", len(batch.Items))
	return batch, nil
}

func (c *Client) batch(query string, resp *extract.Response) *model.SearchBatch {
	items := c.extractor.Extract(resp)
	return &model.SearchBatch{
		Query: query,
		Items: items,
		Text:  extract.Serialize(items),
	}
}

// post performs a single attempt
func (c *Client) post(ctx context.Context, payload []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.endpoint); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(data))
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}

	return data, nil
}
