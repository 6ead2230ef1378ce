package siigo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"3tcapital/ms_siigo_gateway/internal/core/upstream"
	ctxutil "3tcapital/ms_siigo_gateway/internal/infrastructure/context"
	"3tcapital/ms_siigo_gateway/internal/infrastructure/metrics"
)

const (
	// DefaultBaseURL is the Siigo REST API root.
	DefaultBaseURL = "https://api.siigo.com/v1"

	defaultRetryAfter         = time.Second
	defaultAuthRateLimitPause = 1200 * time.Millisecond
)

// TokenSource supplies bearer tokens to the executor.
type TokenSource interface {
	Token(ctx context.Context, forceRefresh bool) (string, error)
	Invalidate()
}

// Request describes one logical Siigo API call. Path is relative to the base URL unless
// it is an absolute URL. Collection is the fixed name that labels the call in metrics,
// logs and the audit trail; it must not carry ids.
type Request struct {
	Method     string
	Path       string
	Collection string
	Query      url.Values
	Body       any
}

// Response is the outcome of a successful call. Data is the JSON body, `{}` when the body
// was empty or not JSON, and nil for 204 No Content.
type Response struct {
	Status int
	Data   json.RawMessage
	Header http.Header
}

// ExecutorConfig tunes the executor.
type ExecutorConfig struct {
	BaseURL            string
	PartnerID          string
	OperationTimeout   time.Duration
	AuthRateLimitPause time.Duration
}

// Executor sends authenticated requests to Siigo and applies the recovery policy:
// one forced token refresh after a 401, one backoff after a 429.
type Executor struct {
	baseURL            string
	partnerID          string
	operationTimeout   time.Duration
	authRateLimitPause time.Duration
	tokens             TokenSource
	client             HTTPClient
	limiter            *RequestLimiter
	sleep              Sleeper
	log                *slog.Logger
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithLimiter bounds outbound traffic.
func WithLimiter(l *RequestLimiter) ExecutorOption {
	return func(e *Executor) { e.limiter = l }
}

// WithExecutorSleeper replaces the wait used for Retry-After and the auth pause.
func WithExecutorSleeper(s Sleeper) ExecutorOption {
	return func(e *Executor) { e.sleep = s }
}

// NewExecutor creates a request executor.
func NewExecutor(cfg ExecutorConfig, tokens TokenSource, client HTTPClient, log *slog.Logger, opts ...ExecutorOption) *Executor {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AuthRateLimitPause <= 0 {
		cfg.AuthRateLimitPause = defaultAuthRateLimitPause
	}
	e := &Executor{
		baseURL:            strings.TrimRight(cfg.BaseURL, "/"),
		partnerID:          cfg.PartnerID,
		operationTimeout:   cfg.OperationTimeout,
		authRateLimitPause: cfg.AuthRateLimitPause,
		tokens:             tokens,
		client:             client,
		sleep:              sleepContext,
		log:                log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Do performs req. A non-2xx status left after the recovery policy is returned as
// *upstream.UpstreamHTTPError together with the response.
func (e *Executor) Do(ctx context.Context, req Request) (*Response, error) {
	if e.operationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.operationTimeout)
		defer cancel()
	}

	var payload []byte
	if req.Body != nil {
		var err error
		if payload, err = json.Marshal(req.Body); err != nil {
			return nil, fmt.Errorf("marshal %s %s body: %w", req.Method, req.Path, err)
		}
	}

	target, err := e.resolve(req)
	if err != nil {
		return nil, err
	}

	ctx = ctxutil.WithCollection(ctx, req.Collection)
	collection := ctxutil.GetCollection(ctx)

	token, err := e.initialToken(ctx)
	if err != nil {
		return nil, err
	}

	res, err := e.send(ctx, req.Method, collection, target, payload, token)
	if err != nil {
		return nil, err
	}

	switch res.status {
	case http.StatusUnauthorized:
		metrics.UpstreamRetriesTotal.WithLabelValues(metrics.RetryUnauthorized).Inc()
		e.log.Warn("Siigo rejected token, refreshing and retrying once",
			"method", req.Method,
			"path", req.Path,
		)
		e.tokens.Invalidate()
		if token, err = e.tokens.Token(ctx, true); err != nil {
			return nil, err
		}
		if res, err = e.send(ctx, req.Method, collection, target, payload, token); err != nil {
			return nil, err
		}

	case http.StatusTooManyRequests:
		metrics.UpstreamRetriesTotal.WithLabelValues(metrics.RetryRateLimited).Inc()
		wait := retryAfter(res.header)
		e.log.Warn("Siigo rate limited request, backing off and retrying once",
			"method", req.Method,
			"path", req.Path,
			"retry_after", wait,
		)
		if err := e.sleep(ctx, wait); err != nil {
			return nil, err
		}
		if res, err = e.send(ctx, req.Method, collection, target, payload, token); err != nil {
			return nil, err
		}
	}

	if res.status < 200 || res.status >= 300 {
		return &Response{Status: res.status, Data: jsonOrEmpty(res.body), Header: res.header},
			&upstream.UpstreamHTTPError{
				Method: req.Method,
				Path:   req.Path,
				Status: res.status,
				Body:   jsonOrNil(res.body),
				Raw:    string(res.body),
			}
	}

	out := &Response{Status: res.status, Header: res.header}
	if res.status != http.StatusNoContent {
		out.Data = jsonOrEmpty(res.body)
	}
	return out, nil
}

// initialToken gets the token for the first attempt. When the auth endpoint is rate
// limiting, it pauses briefly and tries one forced acquisition.
func (e *Executor) initialToken(ctx context.Context) (string, error) {
	token, err := e.tokens.Token(ctx, false)
	var limited *upstream.AuthRateLimitedError
	if err == nil || !errors.As(err, &limited) {
		return token, err
	}

	metrics.UpstreamRetriesTotal.WithLabelValues(metrics.RetryAuthPause).Inc()
	e.log.Warn("Siigo auth rate limited, pausing before forced refresh", "pause", e.authRateLimitPause)
	if err := e.sleep(ctx, e.authRateLimitPause); err != nil {
		return "", err
	}
	return e.tokens.Token(ctx, true)
}

type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

func (e *Executor) send(ctx context.Context, method, collection, target string, payload []byte, token string) (*rawResponse, error) {
	release, err := e.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Partner-Id", e.partnerID)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("siigo %s %s: %w", method, collection, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(method, collection, strconv.Itoa(resp.StatusCode)).Inc()

	return &rawResponse{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

func (e *Executor) resolve(req Request) (string, error) {
	raw := req.Path
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = e.baseURL + "/" + strings.TrimLeft(raw, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse siigo url %q: %w", raw, err)
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// retryAfter reads the Retry-After header as seconds. Missing, unparsable or
// non-positive values mean one second.
func retryAfter(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs * float64(time.Second))
}

func jsonOrNil(b []byte) json.RawMessage {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || !json.Valid(b) {
		return nil
	}
	return json.RawMessage(b)
}

func jsonOrEmpty(b []byte) json.RawMessage {
	if raw := jsonOrNil(b); raw != nil {
		return raw
	}
	return json.RawMessage(`{}`)
}
