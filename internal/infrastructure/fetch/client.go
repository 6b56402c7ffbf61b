package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/service-aggregator/internal/config"
	apperrors "github.com/service-aggregator/internal/pkg/errors"
	"github.com/service-aggregator/internal/pkg/metrics"
	"github.com/service-aggregator/internal/pkg/tracing"
)

const maxBodyInError = 2048

// Config - политика повторов одного клиента
type Config struct {
	MaxRetries      int
	BaseDelay       time.Duration
	CapDelay        time.Duration
	MaxJitter       time.Duration
	AttemptTimeout  time.Duration
	RateLimit       float64
	BreakerFailures int
	BreakerCooldown time.Duration
}

// ConfigFrom собирает Config из секции FETCH_* и лимита запросов провайдера
func ConfigFrom(cfg config.FetchConfig, rateLimit float64) Config {
	return Config{
		MaxRetries:      cfg.MaxRetries,
		BaseDelay:       cfg.BaseDelay,
		CapDelay:        cfg.CapDelay,
		MaxJitter:       cfg.MaxJitter,
		AttemptTimeout:  cfg.AttemptTimeout,
		RateLimit:       rateLimit,
		BreakerFailures: cfg.BreakerFailures,
		BreakerCooldown: cfg.BreakerCooldown,
	}
}

func (c *Config) setDefaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 300 * time.Millisecond
	}
	if c.CapDelay <= 0 {
		c.CapDelay = 3 * time.Second
	}
	if c.MaxJitter < 0 {
		c.MaxJitter = 0
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 4 * time.Second
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
}

type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client - HTTP клиент с повторами, backoff и jitter, лимитом запросов и circuit breaker
type Client struct {
	name       string
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*Response]
	metrics    *metrics.Metrics
	logger     *zap.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(max time.Duration) time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient создает клиент для одного провайдера, name используется в логах и метриках
func NewClient(name string, cfg Config, logger *zap.Logger, opts ...Option) *Client {
	cfg.setDefaults()

	c := &Client{
		name:       name,
		cfg:        cfg,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Inf, 0),
		logger:     logger.With(zap.String("target", name)),
		sleep:      sleepContext,
		jitter:     randomJitter,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	if cfg.BreakerFailures > 0 {
		failures := uint32(cfg.BreakerFailures)
		c.breaker = gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
			Name:    name,
			Timeout: cfg.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			// отмена вызывающим не считается отказом провайдера
			IsSuccessful: func(err error) bool {
				return err == nil || stderrors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed",
					zap.String("target", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return c.name }

// Do выполняет запрос с повторами. Успешный ответ всегда прочитан полностью,
// при исчерпании попыток возвращается *Error с последней причиной.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	ctx, span := tracing.Start(ctx, "fetch."+c.name,
		attribute.String("http.method", req.method()),
		attribute.String("http.target", redactURL(req.URL)))

	var (
		resp *Response
		err  error
	)
	if c.breaker == nil {
		resp, err = c.doWithRetry(ctx, req)
	} else {
		resp, err = c.breaker.Execute(func() (*Response, error) {
			return c.doWithRetry(ctx, req)
		})
		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn("Request rejected by circuit breaker", zap.String("url", redactURL(req.URL)))
			err = &Error{Target: c.name, URL: redactURL(req.URL), Err: err}
		}
	}

	tracing.End(span, err)
	return resp, err
}

func (c *Client) doWithRetry(ctx context.Context, req *Request) (*Response, error) {
	var last *Error

	for i := 0; i < c.cfg.MaxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.cancelled(req, i, last, err)
		}

		resp, attemptErr := c.attempt(ctx, req, i+1)
		if attemptErr == nil {
			return resp, nil
		}
		last = attemptErr

		if ctx.Err() != nil {
			return nil, c.cancelled(req, i+1, last, ctx.Err())
		}

		if i < c.cfg.MaxRetries-1 {
			if err := c.sleep(ctx, c.backoff(i)); err != nil {
				return nil, c.cancelled(req, i+1, last, err)
			}
		}
	}

	last.Attempts = c.cfg.MaxRetries
	c.logger.Warn("Request failed after retries",
		zap.String("url", last.URL),
		zap.Int("attempts", last.Attempts),
		zap.Int("status_code", last.StatusCode),
		zap.Error(last.Err))
	return nil, last
}

func (c *Client) attempt(ctx context.Context, req *Request, attempt int) (*Response, *Error) {
	target := redactURL(req.URL)

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.method(), req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, &Error{Target: c.name, URL: target, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, body, err := c.roundTrip(httpReq)
	duration := time.Since(start)

	if err == nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		err = &Error{
			Target:     c.name,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), maxBodyInError),
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	if err != nil {
		c.metrics.ObserveFetchAttempt(c.name, "failed", duration)
		c.logger.Warn("Request attempt failed",
			zap.Int("attempt", attempt),
			zap.String("url", target),
			zap.Duration("duration", duration),
			zap.Error(err))

		var fetchErr *Error
		if stderrors.As(err, &fetchErr) {
			return nil, fetchErr
		}
		return nil, &Error{Target: c.name, URL: target, Err: err}
	}

	c.metrics.ObserveFetchAttempt(c.name, "ok", duration)
	c.logger.Debug("Request attempt succeeded",
		zap.Int("attempt", attempt),
		zap.String("url", target),
		zap.Int("status_code", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", duration))

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// roundTrip выполняет запрос и читает тело целиком, пока действует таймаут попытки
func (c *Client) roundTrip(req *http.Request) (*http.Response, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp, body, nil
}

func (c *Client) cancelled(req *Request, attempts int, last *Error, cause error) *Error {
	err := &Error{Target: c.name, URL: redactURL(req.URL), Attempts: attempts, Err: cause}
	if last != nil {
		err.StatusCode = last.StatusCode
		err.Body = last.Body
		err.Err = stderrors.Join(cause, last.Err)
	}
	c.logger.Debug("Request cancelled by caller",
		zap.String("url", err.URL),
		zap.Int("attempts", attempts),
		zap.Error(cause))
	return err
}

// backoff - задержка между попыткой i и i+1: min(base*2^i + jitter, cap)
func (c *Client) backoff(i int) time.Duration {
	if i > 30 {
		return c.cfg.CapDelay
	}
	d := c.cfg.BaseDelay<<uint(i) + c.jitter(c.cfg.MaxJitter)
	if d > c.cfg.CapDelay || d < 0 {
		return c.cfg.CapDelay
	}
	return d
}

// GetJSON выполняет GET и декодирует JSON ответ в out
func (c *Client) GetJSON(ctx context.Context, rawURL string, out interface{}) error {
	resp, err := c.Do(ctx, &Request{
		Method: http.MethodGet,
		URL:    rawURL,
		Header: http.Header{"Accept": []string{"application/json"}},
	})
	if err != nil {
		return err
	}
	return c.decode(resp, out)
}

// PostFormJSON отправляет form-urlencoded тело и декодирует JSON ответ
func (c *Client) PostFormJSON(ctx context.Context, rawURL string, form url.Values, out interface{}) error {
	resp, err := c.Do(ctx, &Request{
		Method: http.MethodPost,
		URL:    rawURL,
		Header: http.Header{
			"Accept":       []string{"application/json"},
			"Content-Type": []string{"application/x-www-form-urlencoded"},
		},
		Body: []byte(form.Encode()),
	})
	if err != nil {
		return err
	}
	return c.decode(resp, out)
}

func (c *Client) decode(resp *Response, out interface{}) error {
	if err := json.Unmarshal(resp.Body, out); err != nil {
		c.logger.Error("Failed to decode response",
			zap.String("body", truncate(string(resp.Body), 256)),
			zap.Error(err))
		return apperrors.WithKind(apperrors.KindProviderData, err, "decode %s response", c.name)
	}
	return nil
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}

// redactURL убирает секреты из query для логов
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for _, key := range []string{"key", "api_key", "access_token", "token"} {
		if q.Has(key) {
			q.Set(key, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "") + "..."
}
