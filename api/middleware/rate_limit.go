package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/krishnaroyalclub/krc-backend/api/responses"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
	pkgredis "github.com/krishnaroyalclub/krc-backend/pkg/redis"
)

const maxPeekBody = 1 << 20

// WindowCounter is the fixed-window counter the limiter hits.
type WindowCounter interface {
	HitWindow(ctx context.Context, scope string, limit int64, window time.Duration) (pkgredis.Window, error)
}

// RateLimitPolicy throttles one public surface (login, register, reset) per
// client IP and per submitted email address.
type RateLimitPolicy struct {
	Name       string
	Window     time.Duration
	IPLimit    int
	EmailLimit int
}

func (p RateLimitPolicy) enabled() bool {
	return p.Window > 0 && (p.IPLimit > 0 || p.EmailLimit > 0)
}

func (p RateLimitPolicy) scope(dimension, subject string) string {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		name = "public"
	}
	return name + ":" + dimension + ":" + subject
}

// RateLimit rejects callers that exceed the policy with RATE_LIMIT_EXCEEDED
// and a Retry-After header. When the counter store is unreachable the request
// goes through: a Redis outage must not lock guests out of the site.
func RateLimit(policy RateLimitPolicy, counter WindowCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || counter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.IPLimit > 0 {
				if ip := clientIP(r); ip != "" {
					if blocked := hit(ctx, counter, logg, w, policy, "ip", ip, policy.IPLimit); blocked {
						return
					}
				}
			}

			if policy.EmailLimit > 0 && r.Body != nil {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unable to read request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if email := emailFromBody(body); email != "" {
					if blocked := hit(ctx, counter, logg, w, policy, "email", hashValue(email), policy.EmailLimit); blocked {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hit(ctx context.Context, counter WindowCounter, logg *logger.Logger, w http.ResponseWriter, policy RateLimitPolicy, dimension, subject string, limit int) bool {
	window, err := counter.HitWindow(ctx, policy.scope(dimension, subject), int64(limit), policy.Window)
	if err != nil {
		if logg != nil {
			logg.Warn(logg.WithField(ctx, "policy", policy.Name), "rate limiter unavailable: "+err.Error())
		}
		return false
	}
	if window.Allowed() {
		return false
	}

	retryAfter := window.RetryAfter
	if retryAfter <= 0 {
		retryAfter = policy.Window
	}
	seconds := int(retryAfter.Round(time.Second).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":    policy.Name,
			"dimension": dimension,
			"attempts":  window.Count,
			"limit":     limit,
		}), "rate limit exceeded")
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	err = pkgerrors.New(pkgerrors.CodeRateLimit, "Too many attempts. Please try again later.").
		WithDetails(map[string]any{"retry_after_seconds": seconds})
	responses.WriteError(ctx, logg, w, err)
	return true
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// emailFromBody reads the address from the payloads of the throttled
// endpoints, accepting the user_email alias of the guest forms.
func emailFromBody(payload []byte) string {
	var body struct {
		Email     string `json:"email"`
		UserEmail string `json:"user_email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	email := body.Email
	if strings.TrimSpace(email) == "" {
		email = body.UserEmail
	}
	return strings.ToLower(strings.TrimSpace(email))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:16])
}
