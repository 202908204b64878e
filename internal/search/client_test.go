package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/firecheck/internal/cache"
	"github.com/ppiankov/firecheck/internal/model"
)

func testConfig(baseURL string) model.SearchConfig {
	cfg := model.DefaultConfig().Search
	cfg.APIKey = "test-key"
	cfg.BaseURL = baseURL
	cfg.Timeout = 2 * time.Second
	return cfg
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func newTestClient(t *testing.T, cfg model.SearchConfig, opts ...Option) (*Client, *sleepRecorder) {
	t.Helper()
	rec := &sleepRecorder{}
	opts = append([]Option{WithSleep(rec.sleep, func() float64 { return 0.5 })}, opts...)
	client, err := NewClient(cfg, model.HTTPConfig{}, opts...)
	require.NoError(t, err)
	return client, rec
}

func TestClient_Search_AnswerBox(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Eiffel Tower location", body["q"])
		assert.Equal(t, "us", body["gl"])
		assert.Equal(t, "en", body["hl"])
		assert.EqualValues(t, 1, body["num"])
		assert.NotContains(t, body, "tbs", "unset options are omitted")

		_, _ = w.Write([]byte(`{"answerBox": {"answer": "Paris", "link": "https://x"}}`))
	}))
	defer server.Close()

	client, rec := newTestClient(t, testConfig(server.URL))

	batch, err := client.Search(context.Background(), "  Eiffel Tower location ")
	require.NoError(t, err)

	assert.Equal(t, "Eiffel Tower location", batch.Query)
	require.Len(t, batch.Items, 1)
	assert.Equal(t, "Paris", batch.Items[0].Snippet)
	assert.Equal(t, "https://x", batch.Items[0].Source)
	assert.Equal(t, "Paris [Source: https://x]", batch.Text)
	assert.Empty(t, rec.delays)
}

func TestClient_Search_ResultTypeSelectsEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/news", r.URL.Path)
		_, _ = w.Write([]byte(`{"news": [{"title": "N", "link": "https://n", "snippet": "Story."}], "organic": [{"snippet": "ignored"}]}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.ResultType = "news"
	cfg.TimeRange = "qdr:m"
	client, _ := newTestClient(t, cfg)

	batch, err := client.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "Story. [Source: https://n]", batch.Text)
}

func TestClient_Search_RetriesTransientFailures(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		switch n {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(`{"organic": [{"title": "T", "link": "https://t", "snippet": "ok"}]}`))
		}
	}))
	defer server.Close()

	client, rec := newTestClient(t, testConfig(server.URL))

	batch, err := client.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, "ok [Source: https://t]", batch.Text)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.delays)
}

func TestClient_Search_AlwaysTimingOutIsBounded(t *testing.T) {
	var attempts atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := testConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond
	client, rec := newTestClient(t, cfg)

	batch, err := client.Search(context.Background(), "q")
	require.Error(t, err)
	assert.Nil(t, batch)

	var exhausted *ProviderExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, "q", exhausted.Query)
	assert.Equal(t, int32(3), attempts.Load())

	require.Len(t, rec.delays, 2)
	first := rec.delays[0]
	assert.GreaterOrEqual(t, first, 1*time.Second)
	assert.LessOrEqual(t, first, 3*time.Second)
	assert.Equal(t, min(first*2, 10*time.Second), rec.delays[1])
}

func TestClient_Search_NonSuccessStatusExhausts(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message": "boom"}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxAttempts = 5
	client, rec := newTestClient(t, cfg)

	_, err := client.Search(context.Background(), "q")

	var exhausted *ProviderExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 5, exhausted.Attempts)
	assert.Equal(t, int32(5), attempts.Load())
	assert.Len(t, rec.delays, 4)
	for _, d := range rec.delays {
		assert.LessOrEqual(t, d, 10*time.Second)
	}

	var status *StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusInternalServerError, status.StatusCode)
}

func TestClient_Search_MalformedJSONIsRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"organic": [`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, testConfig(server.URL))

	batch, err := client.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
	require.Len(t, batch.Items, 1)
	assert.Equal(t, model.SectionNone, batch.Items[0].Section)
}

func TestClient_Search_CacheServesRepeatedQueries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		_, _ = w.Write([]byte(`{"answerBox": {"answer": "42"}}`))
	}))
	defer server.Close()

	store := cache.NewMemoryCache(time.Minute, time.Minute)
	client, _ := newTestClient(t, testConfig(server.URL), WithCache(store, time.Minute))

	first, err := client.Search(context.Background(), "meaning of life")
	require.NoError(t, err)
	second, err := client.Search(context.Background(), "meaning of life")
	require.NoError(t, err)

	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.Items, second.Items)
}

type countingLimiter struct {
	calls atomic.Int32
}

func (l *countingLimiter) Wait(ctx context.Context, rawURL string) error {
	l.calls.Add(1)
	return nil
}

func TestClient_Search_RateLimiterGuardsEveryAttempt(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	limiter := &countingLimiter{}
	client, _ := newTestClient(t, testConfig(server.URL), WithRateLimiter(limiter))

	_, err := client.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, int32(2), limiter.calls.Load())
}

func TestClient_Search_EmptyQuery(t *testing.T) {
	client, _ := newTestClient(t, testConfig("http://unused.invalid"))
	_, err := client.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestNewClient_ConfigurationErrors(t *testing.T) {
	cfg := testConfig("http://unused.invalid")
	cfg.APIKey = ""
	_, err := NewClient(cfg, model.HTTPConfig{})
	var cfgErr *model.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "search.api_key", cfgErr.Field)

	cfg = testConfig("http://unused.invalid")
	cfg.ResultType = "videos"
	_, err = NewClient(cfg, model.HTTPConfig{})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "search.result_type", cfgErr.Field)

	cfg = testConfig("http://unused.invalid")
	cfg.MaxAttempts = -1
	_, err = NewClient(cfg, model.HTTPConfig{})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "search", cfgErr.Field)
	assert.Contains(t, cfgErr.Reason, "max attempts")

	cfg = testConfig("http://unused.invalid")
	cfg.Timeout = -time.Second
	_, err = NewClient(cfg, model.HTTPConfig{})
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "attempt timeout")
}
