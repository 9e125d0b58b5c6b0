package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/cloud-asset-api/internal/config"
)

// tokenBucket refills refill_tokens every interval_ms up to capacity and
// takes one token per call.  Returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 and refill_tokens > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + (intervals * refill_tokens))
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// RateLimiter is a Redis-backed token bucket.  On /auth routes it slows
// down password guessing.
type RateLimiter struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
	log *zap.SugaredLogger
	now func() time.Time
}

// NewRateLimiter returns a limiter.  A nil client or a disabled config
// yields a limiter whose middleware lets everything through.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.SugaredLogger) *RateLimiter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &RateLimiter{cfg: cfg, rdb: rdb, log: log, now: time.Now}
}

// Middleware enforces the bucket.  Redis errors fail open.
func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	if !l.cfg.Enabled || l.rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := l.key(c)
			args := []interface{}{
				l.now().UnixMilli(),
				l.cfg.Capacity,
				l.cfg.RefillTokens,
				l.cfg.RefillInterval.Milliseconds(),
				int64(l.cfg.TTL / time.Second),
			}

			vals, err := tokenBucket.Run(c.Request().Context(), l.rdb, []string{key}, args...).Int64Slice()
			if err != nil || len(vals) != 3 {
				l.log.Warnw("rate limiter unavailable, allowing request", "key", key, "error", err)
				return next(c)
			}
			allowed, remaining, retryMs := vals[0] == 1, vals[1], vals[2]

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if l.cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}

			if !allowed {
				secs := int(math.Ceil(float64(retryMs) / 1000.0))
				h.Set("Retry-After", strconv.Itoa(secs))
				if l.cfg.Debug {
					l.log.Infow("rate limit block", "key", key, "retry_ms", retryMs)
				}
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too many requests",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

func (l *RateLimiter) key(c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	user := Subject(c)
	if user == "" {
		user = "anon"
	}
	route := c.Request().Method + " " + c.Path()

	parts := []string{l.cfg.Prefix}
	switch strings.ToLower(l.cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", user)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", user)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "user_route":
		parts = append(parts, "user", user, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", user, "route", route)
	}
	return strings.Join(parts, ":")
}
