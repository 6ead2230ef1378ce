package siigo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"3tcapital/ms_siigo_gateway/internal/core/upstream"
	"3tcapital/ms_siigo_gateway/internal/infrastructure/cache"
	ctxutil "3tcapital/ms_siigo_gateway/internal/infrastructure/context"
	"3tcapital/ms_siigo_gateway/internal/infrastructure/metrics"
)

const (
	// DefaultAuthURL is the Siigo token endpoint.
	DefaultAuthURL = "https://api.siigo.com/auth"

	maxAuthAttempts      = 2
	defaultTokenLifetime = 3600 * time.Second
	tokenSafetyMargin    = 300 * time.Second
	acquisitionTimeout   = 30 * time.Second
	tokenFlightKey       = "token"
)

// HTTPClient interface allows using both standard and traced HTTP clients.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Credentials identify the integration against Siigo.
type Credentials struct {
	Username  string
	AccessKey string
	PartnerID string
}

// Missing names the environment variables of the empty credential fields.
func (c Credentials) Missing() []string {
	var out []string
	if c.Username == "" {
		out = append(out, "SIIGO_USERNAME")
	}
	if c.AccessKey == "" {
		out = append(out, "SIIGO_ACCESS_KEY")
	}
	if c.PartnerID == "" {
		out = append(out, "SIIGO_PARTNER_ID")
	}
	return out
}

// TokenManager owns the process-wide Siigo bearer token: it caches it until shortly
// before expiry and makes concurrent callers share a single acquisition.
type TokenManager struct {
	authURL string
	creds   Credentials
	client  HTTPClient
	cache   *cache.TokenCache
	group   singleflight.Group
	sleep   Sleeper
	log     *slog.Logger
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithClock replaces the wall clock used for token expiry.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) { m.cache = cache.NewTokenCache(now) }
}

// WithSleeper replaces the wait used between rate-limited auth attempts.
func WithSleeper(s Sleeper) TokenOption {
	return func(m *TokenManager) { m.sleep = s }
}

// NewTokenManager creates a token manager. An empty authURL means DefaultAuthURL.
// Credentials are checked on every Token call, not here, so the gateway can start
// with an incomplete configuration.
func NewTokenManager(authURL string, creds Credentials, client HTTPClient, log *slog.Logger, opts ...TokenOption) *TokenManager {
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	m := &TokenManager{
		authURL: authURL,
		creds:   creds,
		client:  client,
		cache:   cache.NewTokenCache(nil),
		sleep:   sleepContext,
		log:     log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns a bearer token. Without forceRefresh a cached token is reused and
// concurrent callers wait on the same acquisition. With forceRefresh a new token is
// always requested; forced requests are not coalesced and the last one to finish wins
// the cache.
func (m *TokenManager) Token(ctx context.Context, forceRefresh bool) (string, error) {
	if missing := m.creds.Missing(); len(missing) > 0 {
		return "", &upstream.ConfigurationError{Missing: missing}
	}

	if forceRefresh {
		return m.acquire(ctx)
	}

	if token, ok := m.cache.Get(); ok {
		return token, nil
	}

	ch := m.group.DoChan(tokenFlightKey, func() (any, error) {
		// The shared acquisition must not die with whichever caller started it.
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), acquisitionTimeout)
		defer cancel()
		if token, ok := m.cache.Get(); ok {
			return token, nil
		}
		return m.acquire(flightCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate drops the cached token so the next non-forced call acquires a new one.
func (m *TokenManager) Invalidate() {
	m.cache.Clear()
}

// ExpiresAt reports when the cached token stops being served.
func (m *TokenManager) ExpiresAt() time.Time {
	return m.cache.ExpiresAt()
}

type tokenRequest struct {
	Username  string `json:"username"`
	AccessKey string `json:"access_key"`
	PartnerID string `json:"partner_id"`
}

type tokenResponse struct {
	AccessToken string  `json:"access_token"`
	ExpiresIn   float64 `json:"expires_in"`
}

// acquire exchanges the credentials for a token, retrying once after a 429.
func (m *TokenManager) acquire(ctx context.Context) (string, error) {
	payload, err := json.Marshal(tokenRequest{
		Username:  m.creds.Username,
		AccessKey: m.creds.AccessKey,
		PartnerID: m.creds.PartnerID,
	})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	var lastBody []byte
	for attempt := 1; attempt <= maxAuthAttempts; attempt++ {
		status, header, body, err := m.exchange(ctx, payload)
		if err != nil {
			metrics.TokenAcquisitionsTotal.WithLabelValues(metrics.TokenFailure).Inc()
			return "", &upstream.AuthError{Message: "no se pudo contactar el servicio de autenticación", Err: err}
		}

		if status == http.StatusTooManyRequests {
			metrics.TokenAcquisitionsTotal.WithLabelValues(metrics.TokenRateLimited).Inc()
			lastBody = body
			if attempt == maxAuthAttempts {
				break
			}
			wait := retryAfter(header)
			m.log.Warn("Siigo auth rate limited, backing off",
				"attempt", attempt,
				"retry_after", wait,
			)
			if err := m.sleep(ctx, wait); err != nil {
				return "", err
			}
			continue
		}

		if status < 200 || status >= 300 {
			metrics.TokenAcquisitionsTotal.WithLabelValues(metrics.TokenFailure).Inc()
			msg := upstream.DescribeBody(body)
			if msg == "" {
				msg = "Error desconocido"
			}
			m.log.Error("Siigo authentication failed", "status", status, "message", msg)
			return "", &upstream.AuthError{Status: status, Message: msg, Body: jsonOrNil(body)}
		}

		var tr tokenResponse
		if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
			metrics.TokenAcquisitionsTotal.WithLabelValues(metrics.TokenFailure).Inc()
			return "", &upstream.AuthError{Status: status, Message: "respuesta sin access_token", Body: jsonOrNil(body), Err: err}
		}

		lifetime := defaultTokenLifetime
		if tr.ExpiresIn > 0 {
			lifetime = time.Duration(tr.ExpiresIn * float64(time.Second))
		}
		m.cache.Set(tr.AccessToken, lifetime-tokenSafetyMargin)
		metrics.TokenAcquisitionsTotal.WithLabelValues(metrics.TokenSuccess).Inc()
		m.log.Debug("Siigo token acquired", "expires_at", m.cache.ExpiresAt())

		return tr.AccessToken, nil
	}

	m.log.Error("Siigo auth still rate limited after retry")
	return "", &upstream.AuthRateLimitedError{Body: jsonOrNil(lastBody)}
}

func (m *TokenManager) exchange(ctx context.Context, payload []byte) (int, http.Header, []byte, error) {
	ctx = ctxutil.WithCollection(ctx, ctxutil.CollectionAuth)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.authURL, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("create request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(m.creds.Username + ":" + m.creds.AccessKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Partner-Id", m.creds.PartnerID)

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, resp.Header, body, nil
}
