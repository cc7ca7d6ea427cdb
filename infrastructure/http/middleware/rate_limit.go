package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tripdesk/tripdesk/application/port/outbound"
	"github.com/tripdesk/tripdesk/infrastructure/http/response"
	"github.com/tripdesk/tripdesk/infrastructure/service/logger"
)

// RateLimitRule bounds one scope, e.g. login attempts per client IP.
type RateLimitRule struct {
	Scope         string
	Limit         int
	Window        time.Duration
	BlockDuration time.Duration
}

type RateLimitMiddleware struct {
	rateLimitService outbound.RateLimitService
	logger           logger.Logger
}

func NewRateLimitMiddleware(rateLimitService outbound.RateLimitService, log logger.Logger) *RateLimitMiddleware {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		logger:           log,
	}
}

// Limit counts requests per rule scope and client IP. Authenticated callers
// are keyed by email instead so shared office egress IPs do not collide.
func (m *RateLimitMiddleware) Limit(rule RateLimitRule, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.rateLimitService == nil || rule.Limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		clientIP := ClientIP(r)
		key := fmt.Sprintf("%s:ip:%s", rule.Scope, clientIP)
		if claims := GetUserClaims(ctx); claims != nil && claims.Email != "" {
			key = fmt.Sprintf("%s:user:%s", rule.Scope, claims.Email)
		}
		fields := map[string]interface{}{
			"ip":    clientIP,
			"key":   key,
			"path":  r.URL.Path,
			"scope": rule.Scope,
		}

		blocked, err := m.rateLimitService.IsBlocked(ctx, key)
		if err != nil {
			m.logger.Error(ctx, "Failed to check block status", err, fields)
		}
		if blocked {
			m.logger.Warn(ctx, "Rate limit block in effect", fields)
			w.Header().Set("Retry-After", strconv.Itoa(int(rule.BlockDuration.Seconds())))
			response.TooManyRequests(w, "Too many requests. Please try again later.")
			return
		}

		allowed, err := m.rateLimitService.CheckLimit(ctx, key, rule.Limit, rule.Window)
		if err != nil {
			m.logger.Error(ctx, "Failed to check rate limit", err, fields)
			allowed = true
		}
		if !allowed {
			if rule.BlockDuration > 0 {
				if err := m.rateLimitService.Block(ctx, key, rule.BlockDuration, "rate limit exceeded"); err != nil {
					m.logger.Error(ctx, "Failed to block key", err, fields)
				}
			}
			m.logger.Warn(ctx, "Rate limit exceeded", fields)
			w.Header().Set("Retry-After", strconv.Itoa(int(rule.Window.Seconds())))
			response.TooManyRequests(w, "Too many requests. Please try again later.")
			return
		}

		if err := m.rateLimitService.Increment(ctx, key, rule.Window); err != nil {
			m.logger.Error(ctx, "Failed to count request", err, fields)
		}
		next.ServeHTTP(w, r)
	}
}

// ClientIP prefers proxy headers and falls back to RemoteAddr without port.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
