package ratelimit

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type bucket struct {
	tokens     int
	lastRefill time.Time
	mu         sync.Mutex
}

// RateLimiter is a token bucket per visitor. Visitors are keyed by session
// cookie when KnownSession vouches for it, by IP otherwise, so a made-up
// cookie never earns a fresh bucket.
type RateLimiter struct {
	buckets       map[string]*bucket
	mu            sync.RWMutex
	maxTokens     int
	refillRate    time.Duration
	tokensPerReq  int
	keyCookie     string
	knownSession  func(id string) bool
	logger        *zap.Logger
	cleanupTicker *time.Ticker
	done          chan struct{}
	stopOnce      sync.Once
}

type Config struct {
	MaxRequestsPerMinute int
	WindowDuration       time.Duration
	KeyCookie            string
	KnownSession         func(id string) bool
	Logger               *zap.Logger
}

func New(cfg Config) *RateLimiter {
	if cfg.MaxRequestsPerMinute == 0 {
		cfg.MaxRequestsPerMinute = 60
	}
	if cfg.WindowDuration == 0 {
		cfg.WindowDuration = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	rl := &RateLimiter{
		buckets:       make(map[string]*bucket),
		maxTokens:     cfg.MaxRequestsPerMinute,
		refillRate:    cfg.WindowDuration / time.Duration(cfg.MaxRequestsPerMinute),
		tokensPerReq:  1,
		keyCookie:     cfg.KeyCookie,
		knownSession:  cfg.KnownSession,
		logger:        cfg.Logger,
		cleanupTicker: time.NewTicker(5 * time.Minute),
		done:          make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := rl.key(c)

		if !rl.allow(key) {
			rl.logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.String("ip", c.IP()),
				zap.String("path", c.Path()),
			)
			c.Set(fiber.HeaderRetryAfter, "60")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		}

		return c.Next()
	}
}

func (rl *RateLimiter) key(c *fiber.Ctx) string {
	if rl.keyCookie != "" && rl.knownSession != nil {
		if sid := c.Cookies(rl.keyCookie); sid != "" && rl.knownSession(sid) {
			return "session:" + sid
		}
	}
	return "ip:" + c.IP()
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{
			tokens:     rl.maxTokens,
			lastRefill: time.Now(),
		}
		rl.buckets[key] = b
	}
	rl.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill)
	tokensToAdd := int(elapsed / rl.refillRate)

	if tokensToAdd > 0 {
		b.tokens = min(rl.maxTokens, b.tokens+tokensToAdd)
		b.lastRefill = now
	}

	if b.tokens >= rl.tokensPerReq {
		b.tokens -= rl.tokensPerReq
		return true
	}

	return false
}

func (rl *RateLimiter) cleanup() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.evictIdle(10 * time.Minute)
		case <-rl.done:
			return
		}
	}
}

func (rl *RateLimiter) evictIdle(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	evicted := 0
	for key, b := range rl.buckets {
		b.mu.Lock()
		if now.Sub(b.lastRefill) > idle {
			delete(rl.buckets, key)
			evicted++
		}
		b.mu.Unlock()
	}
	return evicted
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		rl.cleanupTicker.Stop()
		close(rl.done)
	})
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
