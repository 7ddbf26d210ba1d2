package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tilldesk/tilldesk-backend/api/responses"
	pkgerrors "github.com/tilldesk/tilldesk-backend/pkg/errors"
	"github.com/tilldesk/tilldesk-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// AuthRateLimitPolicy throttles an auth surface with fixed-window
// counters: one per caller IP and one per submitted email. Emails are
// hashed before they become redis keys. A zero window disables the
// policy entirely.
type AuthRateLimitPolicy struct {
	surface    string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewAuthRateLimitPolicy(surface string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	surface = strings.ToLower(strings.TrimSpace(surface))
	if surface == "" {
		surface = "auth"
	}
	return AuthRateLimitPolicy{surface: surface, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

// AuthRateLimit guards login/register against credential stuffing. The
// email counter requires buffering the body, so it only runs when the
// policy asks for it; the body is restored before the handler sees it.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		lim := authLimiter{policy: policy, store: store, log: logg}
		return http.HandlerFunc(lim.handle(next))
	}
}

type authLimiter struct {
	policy AuthRateLimitPolicy
	store  rateLimiterStore
	log    *logger.Logger
}

func (l authLimiter) handle(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if l.policy.ipLimit > 0 {
			ip := clientIP(r)
			if ip != "" {
				key := fmt.Sprintf("td:authlimit:%s:ip:%s", l.policy.surface, ip)
				if !l.check(ctx, w, key, l.policy.ipLimit, "ip", ip) {
					return
				}
			}
		}

		if l.policy.emailLimit > 0 {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, l.log, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			if email := emailFromBody(body); email != "" {
				sum := sha256.Sum256([]byte(email))
				digest := hex.EncodeToString(sum[:])
				key := fmt.Sprintf("td:authlimit:%s:email:%s", l.policy.surface, digest)
				if !l.check(ctx, w, key, l.policy.emailLimit, "email", digest) {
					return
				}
			}
		}

		next.ServeHTTP(w, r)
	}
}

// check bumps the window counter; a store failure is surfaced as a
// dependency error rather than waving the request through.
func (l authLimiter) check(ctx context.Context, w http.ResponseWriter, key string, limit int, kind, subject string) bool {
	count, err := l.store.IncrWithTTL(ctx, key, l.policy.window)
	if err != nil {
		responses.WriteError(ctx, l.log, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return false
	}
	if count <= int64(limit) {
		return true
	}
	if l.log != nil {
		lctx := l.log.WithFields(ctx, map[string]any{
			"surface":  l.policy.surface,
			"kind":     kind,
			"subject":  subject,
			"attempts": count,
			"limit":    limit,
		})
		l.log.Warn(lctx, "auth attempt throttled")
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
	return false
}

func emailFromBody(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
