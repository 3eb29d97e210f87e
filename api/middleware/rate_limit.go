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
	"strings"
	"time"

	"github.com/plotvista/plotvista-backend/api/responses"
	"github.com/plotvista/plotvista-backend/pkg/config"
	pkgerrors "github.com/plotvista/plotvista-backend/pkg/errors"
	"github.com/plotvista/plotvista-backend/pkg/logger"
	redispkg "github.com/plotvista/plotvista-backend/pkg/redis"
)

// RateLimiterStore is the subset of the redis client the limiter needs.
type RateLimiterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// BookingRateLimit throttles the public visit-request submit endpoint per
// client IP and per visitor email. The store is fail-open: if redis is down
// the booking still goes through.
func BookingRateLimit(store RateLimiterStore, cfg config.BookingRateLimitConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || cfg.Window <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			if cfg.IPLimit > 0 && ip != "" {
				key := redispkg.Key("ratelimit", "booking", "ip", hashValue(ip))
				if !allow(r.Context(), store, logg, key, cfg.IPLimit, cfg.Window) {
					writeRateLimited(r.Context(), logg, w)
					return
				}
			}

			if cfg.KeyLimit > 0 {
				if email := extractEmail(r); email != "" {
					key := redispkg.Key("ratelimit", "booking", "email", hashValue(email))
					if !allow(r.Context(), store, logg, key, cfg.KeyLimit, cfg.Window) {
						writeRateLimited(r.Context(), logg, w)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allow(ctx context.Context, store RateLimiterStore, logg *logger.Logger, key string, limit int, window time.Duration) bool {
	count, err := store.IncrWithTTL(ctx, key, window)
	if err != nil {
		if logg != nil {
			logg.Warn(logg.WithFields(ctx, map[string]any{"key": key}), "rate limit store unavailable, allowing request")
		}
		return true
	}
	return count <= int64(limit)
}

func writeRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter) {
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many booking attempts, try again later"))
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		candidate := strings.TrimSpace(parts[0])
		if candidate != "" {
			return candidate
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// extractEmail peeks at the JSON body for the visitor email and restores the
// body for the handler.
func extractEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
