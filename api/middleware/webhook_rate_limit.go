package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/luisargote/vendora-backend/api/responses"
	"github.com/luisargote/vendora-backend/pkg/config"
	pkgerrors "github.com/luisargote/vendora-backend/pkg/errors"
	"github.com/luisargote/vendora-backend/pkg/logger"
)

// RateLimiterStore is the counter surface the limiter needs from redis.
type RateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// WebhookRateLimit throttles the public gateway webhook endpoint per source
// IP and per gateway identifier. Gateways retry aggressively on 5xx, so the
// per-gateway ceiling is deliberately higher than the per-IP one.
func WebhookRateLimit(cfg config.WebhookRateLimitConfig, store RateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.Window <= 0 || (cfg.IPLimit <= 0 && cfg.GatewayLimit <= 0) || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if cfg.IPLimit > 0 {
				if ip := clientIP(r); ip != "" {
					key := store.RateLimitKey("webhook:ip:" + ip)
					if blocked := enforce(ctx, logg, w, store, key, "ip", ip, cfg.Window, cfg.IPLimit); blocked {
						return
					}
				}
			}

			if cfg.GatewayLimit > 0 {
				if gateway := strings.TrimSpace(r.Header.Get("X-Gateway-Id")); gateway != "" {
					key := store.RateLimitKey("webhook:gateway:" + strings.ToLower(gateway))
					if blocked := enforce(ctx, logg, w, store, key, "gateway", gateway, cfg.Window, cfg.GatewayLimit); blocked {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func enforce(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, store RateLimiterStore, key, scope, subject string, window time.Duration, limit int64) bool {
	count, err := store.IncrWithTTL(ctx, key, window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return true
	}
	if count <= limit {
		return false
	}
	if logg != nil {
		fields := map[string]any{
			"scope":          scope,
			"subject":        subject,
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(window.Seconds()),
		}
		logg.Warn(logg.WithFields(ctx, fields), "webhook.rate_limit.blocked")
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
	return true
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
