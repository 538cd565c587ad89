// Package judge0 is a client for Judge0-compatible remote execution services.
package judge0

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "codearena",
		Subsystem: "judge0",
		Name:      "request_duration_seconds",
		Help:      "Duration of Judge0 API requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	requestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codearena",
		Subsystem: "judge0",
		Name:      "request_failures_total",
		Help:      "Number of Judge0 API requests that failed",
	}, []string{"operation"})

	pollAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "codearena",
		Subsystem: "judge0",
		Name:      "poll_attempts",
		Help:      "Number of status polls needed before a submission finished",
		Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
	})

	pollTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "codearena",
		Subsystem: "judge0",
		Name:      "poll_timeouts_total",
		Help:      "Number of submissions abandoned after exhausting the poll budget",
	})
)

const (
	defaultPollInterval    = 500 * time.Millisecond
	defaultMaxPollAttempts = 60
	defaultRequestTimeout  = 10 * time.Second
	maxResponseBytes       = 4 << 20
)

// Config groups Judge0 client configuration values.
type Config struct {
	BaseURL         string
	APIKey          string
	APIHost         string
	PollInterval    time.Duration
	MaxPollAttempts int
	RequestTimeout  time.Duration
	HTTPClient      *http.Client
	Logger          zerolog.Logger
}

// Client submits programs to Judge0 and waits for their results.
type Client struct {
	baseURL *url.URL
	cfg     Config
	http    *http.Client
	tracer  trace.Tracer
	logger  zerolog.Logger
}

// NewClient constructs a Judge0 client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("judge0 base url is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse judge0 base url: %w", err)
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = defaultMaxPollAttempts
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.APIHost == "" && cfg.APIKey != "" {
		cfg.APIHost = base.Host
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &Client{
		baseURL: base,
		cfg:     cfg,
		http:    httpClient,
		tracer:  otel.Tracer("github.com/noah-isme/codearena-api/pkg/judge0"),
		logger:  logger,
	}, nil
}

// Run submits source and blocks until Judge0 reports a terminal status or the poll budget is spent.
func (c *Client) Run(parent context.Context, source string, languageID int) (Result, error) {
	ctx, span := c.tracer.Start(parent, "judge0.run", trace.WithAttributes(
		attribute.Int("judge0.language_id", languageID),
	))
	defer span.End()

	token, err := c.Submit(ctx, source, languageID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	span.SetAttributes(attribute.String("judge0.token", token))

	result, err := c.Wait(ctx, token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	span.SetAttributes(
		attribute.Int("judge0.status_id", result.Status.ID),
		attribute.Int("judge0.poll_attempts", result.PollAttempts),
	)
	return result, nil
}

// Submit sends the program and returns the tracking token without waiting for execution.
func (c *Client) Submit(ctx context.Context, source string, languageID int) (string, error) {
	body, err := json.Marshal(submissionRequest{
		LanguageID: languageID,
		SourceCode: base64.StdEncoding.EncodeToString([]byte(source)),
		Stdin:      base64.StdEncoding.EncodeToString(nil),
	})
	if err != nil {
		return "", fmt.Errorf("encode submission: %w", err)
	}

	query := url.Values{}
	query.Set("base64_encoded", "true")
	query.Set("wait", "false")
	query.Set("fields", "token")

	var payload tokenResponse
	if err := c.do(ctx, "submit", http.MethodPost, "/submissions", query, body, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmissionRejected, err)
	}
	if strings.TrimSpace(payload.Token) == "" {
		requestFailures.WithLabelValues("submit").Inc()
		return "", fmt.Errorf("%w: empty token", ErrSubmissionRejected)
	}

	return payload.Token, nil
}

// Get fetches the current state of a submission. Output fields are only decoded once it is terminal.
// A terminal submission with undecodable output is returned with its status and ErrMalformedResponse.
func (c *Client) Get(ctx context.Context, token string) (Result, error) {
	query := url.Values{}
	query.Set("base64_encoded", "true")
	query.Set("fields", "stdout,stderr,compile_output,status")

	var payload submissionResponse
	if err := c.do(ctx, "poll", http.MethodGet, "/submissions/"+url.PathEscape(token), query, nil, &payload); err != nil {
		return Result{}, err
	}
	if payload.Status == nil {
		return Result{}, fmt.Errorf("%w: missing status", ErrMalformedResponse)
	}

	result := Result{Token: token, Status: *payload.Status}
	if !result.Status.Terminal() {
		return result, nil
	}

	var err error
	if result.Stdout, err = decodeField(payload.Stdout); err != nil {
		return Result{Token: token, Status: result.Status}, fmt.Errorf("%w: stdout: %v", ErrMalformedResponse, err)
	}
	if result.Stderr, err = decodeField(payload.Stderr); err != nil {
		return Result{Token: token, Status: result.Status}, fmt.Errorf("%w: stderr: %v", ErrMalformedResponse, err)
	}
	if result.CompileOutput, err = decodeField(payload.CompileOutput); err != nil {
		return Result{Token: token, Status: result.Status}, fmt.Errorf("%w: compile_output: %v", ErrMalformedResponse, err)
	}

	return result, nil
}

// Wait polls the submission at the configured interval until it is terminal. A failed poll counts
// against the budget; when the budget runs out ErrPollTimeout is returned. A finished submission
// whose output cannot be decoded fails immediately.
func (c *Client) Wait(ctx context.Context, token string) (Result, error) {
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxPollAttempts; attempt++ {
		result, err := c.Get(ctx, token)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			if result.Status.Terminal() && errors.Is(err, ErrMalformedResponse) {
				pollAttempts.Observe(float64(attempt))
				return Result{Token: token, Status: result.Status, PollAttempts: attempt}, err
			}
			lastErr = err
			c.logger.Warn().Err(err).Str("token", token).Int("attempt", attempt).Msg("judge0 poll failed")
		case result.Status.Terminal():
			result.PollAttempts = attempt
			pollAttempts.Observe(float64(attempt))
			return result, nil
		}

		if attempt == c.cfg.MaxPollAttempts {
			break
		}

		timer := time.NewTimer(c.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}

	pollTimeouts.Inc()
	if lastErr != nil {
		return Result{Token: token}, fmt.Errorf("%w after %d attempts: %v", ErrPollTimeout, c.cfg.MaxPollAttempts, lastErr)
	}
	return Result{Token: token}, fmt.Errorf("%w after %d attempts", ErrPollTimeout, c.cfg.MaxPollAttempts)
}

// PollBudget returns the longest time Wait sleeps between polls in total.
func (c *Client) PollBudget() time.Duration {
	return time.Duration(c.cfg.MaxPollAttempts-1) * c.cfg.PollInterval
}

func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, body []byte, target interface{}) error {
	endpoint := *c.baseURL
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + path
	endpoint.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", operation, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.cfg.APIKey)
		req.Header.Set("X-RapidAPI-Host", c.cfg.APIHost)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	requestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		requestFailures.WithLabelValues(operation).Inc()
		return fmt.Errorf("%s request: %w", operation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		requestFailures.WithLabelValues(operation).Inc()
		return fmt.Errorf("read %s response: %w", operation, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		requestFailures.WithLabelValues(operation).Inc()
		return fmt.Errorf("%s returned status %d: %s", operation, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.Unmarshal(data, target); err != nil {
		requestFailures.WithLabelValues(operation).Inc()
		return fmt.Errorf("%w: %s body: %v", ErrMalformedResponse, operation, err)
	}

	return nil
}

// decodeField decodes one base64 output field. Judge0 wraps long values with newlines.
func decodeField(value *string) (string, error) {
	if value == nil || *value == "" {
		return "", nil
	}

	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, *value)

	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
