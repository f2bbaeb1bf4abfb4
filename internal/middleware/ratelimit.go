package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-booking/internal/config"
)

// takeToken refills the bucket at KEYS[1] for the whole intervals elapsed
// since its last refill, then tries to take one token.
//
// ARGV: now_ms, capacity, refill_tokens, interval_ms, ttl_ms
// returns {allowed, remaining, retry_after_ms}
var takeToken = redis.NewScript(`
	local now = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill = tonumber(ARGV[3])
	local interval = tonumber(ARGV[4])

	local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
	local stamp = tonumber(redis.call('HGET', KEYS[1], 'stamp'))
	if tokens == nil or stamp == nil then
		tokens, stamp = capacity, now
	end

	local steps = math.floor(math.max(0, now - stamp) / interval)
	if steps > 0 then
		tokens = math.min(capacity, tokens + steps * refill)
		stamp = stamp + steps * interval
	end

	local allowed, wait = 0, 0
	if tokens > 0 then
		allowed, tokens = 1, tokens - 1
	else
		wait = math.max(0, interval - (now - stamp))
	end

	redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
	redis.call('PEXPIRE', KEYS[1], ARGV[5])
	return {allowed, tokens, wait}
`)

// TokenBucket throttles requests with a Redis token bucket per key.  Keys
// are assembled from the parts named by the key strategy, so it must be
// mounted after JWTAuth for the user part to identify the caller.
type TokenBucket struct {
	cfg   config.RateLimitConfig
	rdb   *redis.Client
	log   logrus.FieldLogger
	parts []string
}

// NewTokenBucket returns a limiter bound to rdb.  A nil client or a
// disabled config yields a limiter that lets everything through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log logrus.FieldLogger) *TokenBucket {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TokenBucket{cfg: cfg, rdb: rdb, log: log, parts: keyParts(cfg.KeyStrategy)}
}

type verdict struct {
	allowed   bool
	remaining int64
	wait      time.Duration
}

func (tb *TokenBucket) take(ctx context.Context, key string) (verdict, error) {
	res, err := takeToken.Run(ctx, tb.rdb, []string{key},
		time.Now().UnixMilli(),
		tb.cfg.Capacity,
		tb.cfg.RefillTokens,
		tb.cfg.RefillInterval.Milliseconds(),
		tb.cfg.TTL.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return verdict{}, err
	}
	if len(res) != 3 {
		return verdict{}, fmt.Errorf("unexpected bucket reply %v", res)
	}
	return verdict{
		allowed:   res[0] == 1,
		remaining: res[1],
		wait:      time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// Middleware answers 429 with a Retry-After header once a key runs dry.
// Redis failures let the request through.
func (tb *TokenBucket) Middleware() echo.MiddlewareFunc {
	if tb == nil || !tb.cfg.Enabled || tb.rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(tb.cfg.Prefix, tb.parts, c)
			v, err := tb.take(c.Request().Context(), key)
			if err != nil {
				tb.log.WithError(err).WithField("key", key).Warn("rate limit: bucket unavailable")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(tb.cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.remaining, 10))
			if tb.cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if v.allowed {
				return next(c)
			}

			secs := int((v.wait + time.Second - 1) / time.Second)
			h.Set("Retry-After", strconv.Itoa(secs))
			tb.log.WithFields(logrus.Fields{"key": key, "retry_after": secs}).Debug("rate limit: rejected")
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

var knownKeyParts = map[string]bool{"ip": true, "user": true, "room": true, "route": true}

// keyParts splits a strategy such as "user_room" into its parts.  Unknown
// parts are ignored; an empty result falls back to ip, user and route.
func keyParts(strategy string) []string {
	var parts []string
	for _, p := range strings.Split(strings.ToLower(strategy), "_") {
		if knownKeyParts[p] {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return []string{"ip", "user", "route"}
	}
	return parts
}

// rateKey builds the bucket key for c.  Anonymous callers are always told
// apart by IP, even when the strategy names only the user.  The room part
// is present only on routes addressing a room by :id.
func rateKey(prefix string, parts []string, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := subject(c)

	key := []string{prefix}
	hasIP := false
	for _, p := range parts {
		switch p {
		case "ip":
			if !hasIP {
				key = append(key, "ip", ip)
				hasIP = true
			}
		case "user":
			if uid == "anon" && !hasIP {
				key = append(key, "ip", ip)
				hasIP = true
			}
			key = append(key, "user", uid)
		case "room":
			if !strings.Contains(c.Path(), "/rooms/:id") {
				continue
			}
			if id, ok := roomParam(c); ok {
				key = append(key, "room", id)
			}
		case "route":
			key = append(key, "route", c.Request().Method+" "+c.Path())
		}
	}
	return strings.Join(key, ":")
}
