package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/service-aggregator/internal/pkg/errors"
	"github.com/service-aggregator/internal/pkg/metrics"
)

// sleepRecorder подменяет ожидание между попытками
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func newTestClient(cfg Config, rec *sleepRecorder) *Client {
	c := NewClient("test", cfg, zap.NewNop(), WithMetrics(metrics.NewNop()))
	c.sleep = rec.sleep
	c.jitter = func(time.Duration) time.Duration { return 0 }
	return c
}

func TestClient_Do(t *testing.T) {
	t.Run("successful request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		rec := &sleepRecorder{}
		client := newTestClient(Config{}, rec)

		resp, err := client.Do(context.Background(), &Request{
			URL:    server.URL,
			Header: http.Header{"Accept": []string{"application/json"}},
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `{"ok":true}`, string(resp.Body))
		assert.Empty(t, rec.delays)
	})

	t.Run("retries non-2xx then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("done"))
		}))
		defer server.Close()

		rec := &sleepRecorder{}
		client := newTestClient(Config{MaxRetries: 3, BaseDelay: 100 * time.Millisecond, CapDelay: time.Second}, rec)

		resp, err := client.Do(context.Background(), &Request{URL: server.URL})
		require.NoError(t, err)
		assert.Equal(t, "done", string(resp.Body))
		assert.Equal(t, int32(3), calls.Load())
		assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, rec.delays)
	})

	t.Run("exhausted retries carry status and body", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("rate limited"))
		}))
		defer server.Close()

		rec := &sleepRecorder{}
		client := newTestClient(Config{MaxRetries: 3}, rec)

		resp, err := client.Do(context.Background(), &Request{URL: server.URL})
		require.Error(t, err)
		assert.Nil(t, resp)
		assert.Equal(t, int32(3), calls.Load())

		var fetchErr *Error
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, 3, fetchErr.Attempts)
		assert.Equal(t, http.StatusTooManyRequests, fetchErr.StatusCode)
		assert.Equal(t, "rate limited", fetchErr.Body)
		assert.True(t, apperrors.IsTransient(err))
	})

	t.Run("transport failure shares the retry path", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		addr := server.URL
		server.Close()

		rec := &sleepRecorder{}
		client := newTestClient(Config{MaxRetries: 2}, rec)

		_, err := client.Do(context.Background(), &Request{URL: addr})
		var fetchErr *Error
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, 2, fetchErr.Attempts)
		assert.Zero(t, fetchErr.StatusCode)
		assert.Len(t, rec.delays, 1)
	})

	t.Run("timed out attempt is retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
				return
			}
			w.Write([]byte("fast"))
		}))
		defer server.Close()

		rec := &sleepRecorder{}
		client := newTestClient(Config{MaxRetries: 3, AttemptTimeout: 50 * time.Millisecond}, rec)

		resp, err := client.Do(context.Background(), &Request{URL: server.URL})
		require.NoError(t, err)
		assert.Equal(t, "fast", string(resp.Body))
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("caller cancellation stops retrying", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		client := NewClient("test", Config{MaxRetries: 5}, zap.NewNop())
		client.sleep = func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}

		_, err := client.Do(ctx, &Request{URL: server.URL})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestClient_BackoffBound(t *testing.T) {
	cfg := Config{
		MaxRetries: 3,
		BaseDelay:  400 * time.Millisecond,
		CapDelay:   time.Second,
		MaxJitter:  300 * time.Millisecond,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	client := NewClient("test", cfg, zap.NewNop())
	client.sleep = rec.sleep
	client.jitter = func(max time.Duration) time.Duration { return max - 1 }

	_, err := client.Do(context.Background(), &Request{URL: server.URL})
	require.Error(t, err)

	// попыток 3, ожиданий 2
	require.Len(t, rec.delays, 2)
	assert.Equal(t, 700*time.Millisecond-1, rec.delays[0])
	assert.Equal(t, time.Second, rec.delays[1], "second delay is capped")

	var total, bound time.Duration
	for i, d := range rec.delays {
		total += d
		bound += min(cfg.BaseDelay<<uint(i)+cfg.MaxJitter, cfg.CapDelay)
	}
	assert.LessOrEqual(t, total, bound)
}

func TestClient_Backoff(t *testing.T) {
	client := NewClient("test", Config{BaseDelay: 100 * time.Millisecond, CapDelay: 350 * time.Millisecond}, zap.NewNop())
	client.jitter = func(time.Duration) time.Duration { return 0 }

	assert.Equal(t, 100*time.Millisecond, client.backoff(0))
	assert.Equal(t, 200*time.Millisecond, client.backoff(1))
	assert.Equal(t, 350*time.Millisecond, client.backoff(2))
	assert.Equal(t, 350*time.Millisecond, client.backoff(40))

	j := randomJitter(10 * time.Millisecond)
	assert.GreaterOrEqual(t, j, time.Duration(0))
	assert.Less(t, j, 10*time.Millisecond)
	assert.Zero(t, randomJitter(0))
}

func TestClient_CircuitBreaker(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	client := newTestClient(Config{MaxRetries: 1, BreakerFailures: 2, BreakerCooldown: time.Minute}, rec)

	for i := 0; i < 2; i++ {
		_, err := client.Do(context.Background(), &Request{URL: server.URL})
		require.Error(t, err)
	}

	_, err := client.Do(context.Background(), &Request{URL: server.URL})
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, apperrors.IsTransient(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_GetJSON(t *testing.T) {
	t.Run("decodes body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"OK","results":[1,2]}`))
		}))
		defer server.Close()

		var out struct {
			Status  string `json:"status"`
			Results []int  `json:"results"`
		}
		client := newTestClient(Config{}, &sleepRecorder{})
		require.NoError(t, client.GetJSON(context.Background(), server.URL, &out))
		assert.Equal(t, "OK", out.Status)
		assert.Equal(t, []int{1, 2}, out.Results)
	})

	t.Run("malformed body is provider data error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		}))
		defer server.Close()

		var out map[string]interface{}
		client := newTestClient(Config{}, &sleepRecorder{})
		err := client.GetJSON(context.Background(), server.URL, &out)
		require.Error(t, err)
		assert.True(t, apperrors.IsProviderData(err))
		assert.False(t, apperrors.IsTransient(err))
	})

	t.Run("post form", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, r.ParseForm())
			w.Write([]byte(`{"echo":"` + r.PostForm.Get("data") + `"}`))
		}))
		defer server.Close()

		var out struct {
			Echo string `json:"echo"`
		}
		client := newTestClient(Config{}, &sleepRecorder{})
		require.NoError(t, client.PostFormJSON(context.Background(), server.URL, url.Values{"data": []string{"node"}}, &out))
		assert.Equal(t, "node", out.Echo)
	})
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t,
		"https://maps.example.com/place/json?key=REDACTED&place_id=abc",
		redactURL("https://maps.example.com/place/json?place_id=abc&key=secret"))
}
