package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nightshift/inventory-backend/api/responses"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
	"github.com/nightshift/inventory-backend/pkg/logger"
	pkgredis "github.com/nightshift/inventory-backend/pkg/redis"
)

// maxAuthBody caps how much of a login or register body is buffered to find the email.
const maxAuthBody = 64 << 10

// RateLimitStore is the fixed-window counter surface the auth limiter needs.
type RateLimitStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (pkgredis.Window, error)
	RateLimitKey(parts ...string) string
}

// AuthRateLimitPolicy throttles one auth surface per client ip and per email.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

type rateDimension struct {
	name  string
	value string
	limit int
}

// AuthRateLimit rejects with 429 and a Retry-After header once either counter passes its limit.
// Emails are hashed before they reach the key space.
func AuthRateLimit(policy AuthRateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			dims := make([]rateDimension, 0, 2)
			if policy.ipLimit > 0 {
				if ip := clientIP(r); ip != "" {
					dims = append(dims, rateDimension{name: "ip", value: ip, limit: policy.ipLimit})
				}
			}
			if policy.emailLimit > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxAuthBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if email := normalizeEmail(extractEmail(body)); email != "" {
					dims = append(dims, rateDimension{name: "email", value: hashValue(email), limit: policy.emailLimit})
				}
			}

			for _, dim := range dims {
				key := store.RateLimitKey(policy.name, dim.name, dim.value)
				win, err := store.Hit(ctx, key, policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if win.Count > int64(dim.limit) {
					rejectRateLimited(ctx, logg, w, policy, dim, win)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy AuthRateLimitPolicy, dim rateDimension, win pkgredis.Window) {
	retryAfter := int(math.Ceil(win.ResetIn.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	if logg != nil {
		field := "ip"
		if dim.name == "email" {
			field = "email_hash"
		}
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":      policy.name,
			"scope":       dim.name,
			field:         dim.value,
			"attempts":    win.Count,
			"limit":       dim.limit,
			"retry_after": retryAfter,
		}), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

// clientIP prefers the first forwarded hop since the API runs behind a proxy.
func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		first, _, _ := strings.Cut(header, ",")
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

func extractEmail(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return body.Email
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
