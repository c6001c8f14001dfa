package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/techstore/storefront/application/port/inbound"
	domainerror "github.com/techstore/storefront/domain/error"
	"github.com/techstore/storefront/infrastructure/http/response"
	"github.com/techstore/storefront/infrastructure/service/logger"
)

// RateLimitPolicy is a per-IP fixed window for one route.
type RateLimitPolicy struct {
	Limit  int
	Window time.Duration
	Block  time.Duration
}

type RateLimitMiddleware struct {
	rateLimitService inbound.RateLimitService
	logger           logger.Logger
}

func NewRateLimitMiddleware(rateLimitService inbound.RateLimitService, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		logger:           log,
	}
}

// Limit counts every request of the route per client IP under name. Limiter
// faults let the request through.
func (m *RateLimitMiddleware) Limit(name string, policy RateLimitPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m.rateLimitService == nil || policy.Limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			clientIP := ClientIP(r)
			key := fmt.Sprintf("route:%s:ip:%s", name, clientIP)

			blocked, err := m.rateLimitService.IsBlocked(ctx, key)
			if err != nil {
				m.logger.Error(ctx, "Failed to check block status", err, map[string]interface{}{"key": key})
			}
			if blocked {
				logger.LogSecurityEvent(ctx, m.logger, "rate_limit_blocked", "MEDIUM", map[string]interface{}{
					"ip":         clientIP,
					"path":       r.URL.Path,
					"user_agent": r.UserAgent(),
				})
				m.reject(w, policy.Block)
				return
			}

			allowed, err := m.rateLimitService.CheckLimit(ctx, key, policy.Limit, policy.Window)
			if err != nil {
				m.logger.Error(ctx, "Failed to check rate limit", err, map[string]interface{}{"key": key})
				allowed = true
			}
			if !allowed {
				if policy.Block > 0 {
					if err := m.rateLimitService.Block(ctx, key, policy.Block, "Rate limit exceeded"); err != nil {
						m.logger.Error(ctx, "Failed to block IP", err, map[string]interface{}{"key": key})
					}
				}
				logger.LogSecurityEvent(ctx, m.logger, "rate_limit_exceeded", "HIGH", map[string]interface{}{
					"ip":         clientIP,
					"path":       r.URL.Path,
					"user_agent": r.UserAgent(),
				})
				m.reject(w, policy.Block)
				return
			}

			if err := m.rateLimitService.Increment(ctx, key, policy.Window); err != nil {
				m.logger.Error(ctx, "Failed to increment rate limit", err, map[string]interface{}{"key": key})
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *RateLimitMiddleware) reject(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))
	}
	response.FromError(w, domainerror.ErrRateLimited())
}
