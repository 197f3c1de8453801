package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
	pkgredis "github.com/krishnaroyalclub/krc-backend/pkg/redis"
)

type fakeWindowCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeWindowCounter() *fakeWindowCounter {
	return &fakeWindowCounter{counts: map[string]int64{}}
}

func (f *fakeWindowCounter) HitWindow(_ context.Context, scope string, limit int64, window time.Duration) (pkgredis.Window, error) {
	if f.err != nil {
		return pkgredis.Window{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return pkgredis.Window{Count: f.counts[scope], Limit: limit, RetryAfter: window}, nil
}

func loginRequest(body, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.RemoteAddr = remote
	return req
}

func TestRateLimitPassesBodyThrough(t *testing.T) {
	policy := RateLimitPolicy{Name: "login", Window: time.Minute, IPLimit: 2, EmailLimit: 2}
	handler := RateLimit(policy, newFakeWindowCounter(), logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"email":"asha@example.com"`)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest(`{"email":"asha@example.com","password":"secret"}`, "1.2.3.4:5678"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitEmailLimitIgnoresCaseAndIP(t *testing.T) {
	counter := newFakeWindowCounter()
	policy := RateLimitPolicy{Name: "reset", Window: 15 * time.Minute, EmailLimit: 2}
	handler := RateLimit(policy, counter, logger.Nop())(http.HandlerFunc(okHandler))

	bodies := []string{
		`{"email":"guest@example.com"}`,
		`{"email":"GUEST@example.com "}`,
		`{"user_email":"guest@example.com"}`,
	}
	remotes := []string{"1.1.1.1:1", "2.2.2.2:2", "3.3.3.3:3"}
	var rec *httptest.ResponseRecorder
	for i, body := range bodies {
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(body, remotes[i]))
		if i < 2 {
			require.Equal(t, http.StatusOK, rec.Code, "attempt %d", i)
		}
	}
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "900", rec.Header().Get("Retry-After"))

	var payload struct {
		Success bool           `json:"success"`
		Code    string         `json:"code"`
		Details map[string]int `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.False(t, payload.Success)
	assert.Equal(t, string(pkgerrors.CodeRateLimit), payload.Code)
	assert.Equal(t, 900, payload.Details["retry_after_seconds"])
}

func TestRateLimitIPLimitUsesForwardedFor(t *testing.T) {
	policy := RateLimitPolicy{Name: "register", Window: time.Minute, IPLimit: 1}
	handler := RateLimit(policy, newFakeWindowCounter(), logger.Nop())(http.HandlerFunc(okHandler))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := loginRequest(`{}`, "10.0.0.1:1234")
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "attempt %d", i)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest(`{}`, "198.51.100.7:80"))
	assert.Equal(t, http.StatusOK, rec.Code, "other clients keep their own window")
}

func TestRateLimitFailsOpenWhenCounterDown(t *testing.T) {
	counter := newFakeWindowCounter()
	counter.err = errors.New("redis down")
	policy := RateLimitPolicy{Name: "login", Window: time.Minute, IPLimit: 1, EmailLimit: 1}
	handler := RateLimit(policy, counter, logger.Nop())(http.HandlerFunc(okHandler))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(`{"email":"asha@example.com"}`, "1.2.3.4:1"))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitDisabledPolicy(t *testing.T) {
	handler := RateLimit(RateLimitPolicy{Name: "login"}, newFakeWindowCounter(), nil)(http.HandlerFunc(okHandler))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest(`{}`, "1.2.3.4:1"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4444"
	assert.Equal(t, "192.0.2.1", clientIP(req))
	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", clientIP(req))
}
