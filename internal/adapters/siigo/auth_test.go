package siigo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"3tcapital/ms_siigo_gateway/internal/core/upstream"
	"3tcapital/ms_siigo_gateway/internal/testutil"
)

var testCreds = Credentials{Username: "api@empresa.co", AccessKey: "secret-key", PartnerID: "GatewayPartner"}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

// tokenServer answers auth requests with sequential tokens unless handler overrides it.
type tokenServer struct {
	*httptest.Server
	calls   atomic.Int32
	handler func(w http.ResponseWriter, r *http.Request, call int32)
}

func newTokenServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, call int32)) *tokenServer {
	t.Helper()
	ts := &tokenServer{handler: handler}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := ts.calls.Add(1)
		if ts.handler != nil {
			ts.handler(w, r, call)
			return
		}
		writeToken(w, fmt.Sprintf("token-%d", call), 3600)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func writeToken(w http.ResponseWriter, token string, expiresIn int) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": token,
		"expires_in":   expiresIn,
		"token_type":   "Bearer",
	})
}

func TestTokenManager_SendsCredentials(t *testing.T) {
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request, call int32) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "GatewayPartner", r.Header.Get("Partner-Id"))
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("api@empresa.co:secret-key"))
		assert.Equal(t, want, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{
			"username":   "api@empresa.co",
			"access_key": "secret-key",
			"partner_id": "GatewayPartner",
		}, body)

		writeToken(w, "abc", 3600)
	})

	tm := NewTokenManager(srv.URL, testCreds, srv.Client(), testutil.NewNullLogger())

	token, err := tm.Token(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}

func TestTokenManager_CacheValidity(t *testing.T) {
	clock := newFakeClock()
	srv := newTokenServer(t, nil)
	tm := NewTokenManager(srv.URL, testCreds, srv.Client(), testutil.NewNullLogger(), WithClock(clock.Now))
	ctx := context.Background()

	first, err := tm.Token(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "token-1", first)

	clock.Advance(3299 * time.Second)
	cached, err := tm.Token(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "token-1", cached)
	assert.Equal(t, int32(1), srv.calls.Load(), "token inside the validity window must come from cache")

	clock.Advance(time.Second)
	fresh, err := tm.Token(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "token-2", fresh)
	assert.Equal(t, int32(2), srv.calls.Load(), "token at expires_in-300s must be reacquired")
}

func TestTokenManager_DefaultExpiresIn(t *testing.T) {
	clock := newFakeClock()
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request, call int32) {
		_, _ = w.Write([]byte(`{"access_token":"no-expiry"}`))
	})
	tm := NewTokenManager(srv.URL, testCreds, srv.Client(), testutil.NewNullLogger(), WithClock(clock.Now))

	_, err := tm.Token(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, clock.Now().Add(3300*time.Second), tm.ExpiresAt())
}

func TestTokenManager_CoalescesConcurrentCalls(t *testing.T) {
	release := make(chan struct{})
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request, call int32) {
		<-release
		writeToken(w, fmt.Sprintf("token-%d", call), 3600)
	})
	tm := NewTokenManager(srv.URL, testCreds, srv.Client(), testutil.NewNullLogger())

	const callers = 25
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = tm.Token(context.Background(), false)
		}(i)
	}

	require.Eventually(t, func() bool { return srv.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), srv.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "token-1", tokens[i])
	}
}

func TestTokenManager_ForcedRefreshBypassesInFlight(t *testing.T) {
	release := make(chan struct{})
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request, call int32) {
		if call == 1 {
			<-release
		}
		writeToken(w, fmt.Sprintf("token-%d", call), 3600)
	})
	tm := NewTokenManager(srv.URL, testCreds, srv.Client(), testutil.NewNullLogger())

	done := make(chan string, 1)
	go func() {
		token, _ := tm.Token(context.Background(), false)
		done <- token
	}()
	require.Eventually(t, func() bool { return srv.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	forced, err := tm.Token(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "token-2", forced)
	assert.Equal(t, int32(2), srv.calls.Load())

	close(release)
	assert.Equal(t, "token-1", <-done)
}

func TestTokenManager_RateLimitBackoff(t *testing.T) {
	tests := []struct {
		name       string
		retryAfter string
		wantWait   time.Duration
	}{
		{"honors Retry-After", "3", 3 * time.Second},
		{"defaults to one second", "", time.Second},
		{"non-positive means one second", "0", time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request, call int32) {
				if call == 1 {
					if tt.retryAfter != "" {
						w.Header().Set("Retry-After", tt.retryAfter)
					}
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				writeToken(w, "after-backoff", 3600)
			})
			sleeper := &recordingSleeper{}
			tm := NewTokenManager(srv.URL, testCreds, srv.Client(), testutil.NewNullLogger(), WithSleeper(sleeper.Sleep))

			token, err := tm.Token(context.Background(), false)
			require.NoError(t, err)
			assert.Equal(t, "after-backoff", token)
			assert.Equal(t, int32(2), srv.calls.Load())
			assert.Equal(t, []time.Duration{tt.wantWait}, sleeper.Waits())
		})
	}
}

func TestTokenManager_RateLimitedTwice(t *testing.T) {
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request, call int32) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"Errors":[{"Code":"too_many_requests","Message":"slow down"}]}`))
	})
	sleeper := &recordingSleeper{}
	tm := NewTokenManager(srv.URL, testCreds, srv.Client(), testutil.NewNullLogger(), WithSleeper(sleeper.Sleep))

	_, err := tm.Token(context.Background(), false)

	var limited *upstream.AuthRateLimitedError
	require.True(t, errors.As(err, &limited), "got %v", err)
	assert.Equal(t, int32(2), srv.calls.Load())
	assert.Len(t, sleeper.Waits(), 1)
}

func TestTokenManager_AuthErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"siigo errors array", http.StatusUnauthorized, `{"Errors":[{"Code":"invalid_credentials","Message":"Credenciales inválidas"}]}`, 401, "Credenciales inválidas"},
		{"oauth description", http.StatusBadRequest, `{"error":"invalid_request","error_description":"partner_id missing"}`, 400, "partner_id missing"},
		{"errors array before message", http.StatusUnauthorized, `{"message":"Unauthorized","Errors":[{"Code":"invalid_credentials","Message":"Credenciales inválidas"}]}`, 401, "Credenciales inválidas"},
		{"description before message", http.StatusBadRequest, `{"message":"Bad Request","error_description":"partner_id missing"}`, 400, "partner_id missing"},
		{"no details", http.StatusInternalServerError, ``, 500, "Error desconocido"},
		{"missing access token", http.StatusOK, `{"expires_in":3600}`, 200, "respuesta sin access_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request, call int32) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			tm := NewTokenManager(srv.URL, testCreds, srv.Client(), testutil.NewNullLogger())

			_, err := tm.Token(context.Background(), false)

			var authErr *upstream.AuthError
			require.True(t, errors.As(err, &authErr), "got %v", err)
			assert.Equal(t, tt.wantStatus, authErr.Status)
			assert.Equal(t, tt.wantMsg, authErr.Message)
		})
	}
}

func TestTokenManager_FailedAcquisitionIsNotCached(t *testing.T) {
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request, call int32) {
		if call == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeToken(w, "recovered", 3600)
	})
	tm := NewTokenManager(srv.URL, testCreds, srv.Client(), testutil.NewNullLogger())

	_, err := tm.Token(context.Background(), false)
	require.Error(t, err)

	token, err := tm.Token(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "recovered", token)
}

func TestTokenManager_MissingCredentials(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		missing []string
	}{
		{"username", Credentials{AccessKey: "k", PartnerID: "p"}, []string{"SIIGO_USERNAME"}},
		{"access key", Credentials{Username: "u", PartnerID: "p"}, []string{"SIIGO_ACCESS_KEY"}},
		{"partner id", Credentials{Username: "u", AccessKey: "k"}, []string{"SIIGO_PARTNER_ID"}},
		{"all", Credentials{}, []string{"SIIGO_USERNAME", "SIIGO_ACCESS_KEY", "SIIGO_PARTNER_ID"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTokenServer(t, nil)
			tm := NewTokenManager(srv.URL, tt.creds, srv.Client(), testutil.NewNullLogger())

			for _, force := range []bool{false, true} {
				_, err := tm.Token(context.Background(), force)

				var cfgErr *upstream.ConfigurationError
				require.True(t, errors.As(err, &cfgErr), "got %v", err)
				assert.Equal(t, tt.missing, cfgErr.Missing)
			}
			assert.Equal(t, int32(0), srv.calls.Load())
		})
	}
}

func TestTokenManager_WaiterHonorsOwnContext(t *testing.T) {
	release := make(chan struct{})
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request, call int32) {
		<-release
		writeToken(w, "slow", 3600)
	})
	defer close(release)
	tm := NewTokenManager(srv.URL, testCreds, srv.Client(), testutil.NewNullLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := tm.Token(ctx, false)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTokenManager_Invalidate(t *testing.T) {
	srv := newTokenServer(t, nil)
	tm := NewTokenManager(srv.URL, testCreds, srv.Client(), testutil.NewNullLogger())
	ctx := context.Background()

	_, err := tm.Token(ctx, false)
	require.NoError(t, err)
	tm.Invalidate()
	assert.True(t, tm.ExpiresAt().IsZero())

	token, err := tm.Token(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)
}
