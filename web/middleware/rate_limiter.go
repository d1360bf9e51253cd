package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RateLimiterConfig bounds how fast a single session may send chat messages.
type RateLimiterConfig struct {
	MessagesPerMinute int
	BurstSize         int
	CleanupInterval   time.Duration
}

// bucket is a token bucket refilled continuously at a fixed per-second rate.
type bucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	last     time.Time
}

func (b *bucket) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.last).Seconds() * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// SessionRateLimiter keeps one token bucket per session ID. Buckets are
// created lazily and the whole map is reset periodically once it grows large;
// sessions themselves are reaped by the retention sweep.
type SessionRateLimiter struct {
	cfg     RateLimiterConfig
	mu      sync.Mutex
	buckets map[uuid.UUID]*bucket
	stop    chan struct{}
	logger  *zap.Logger
}

func NewSessionRateLimiter(cfg RateLimiterConfig, logger *zap.Logger) *SessionRateLimiter {
	srl := &SessionRateLimiter{
		cfg:     cfg,
		buckets: make(map[uuid.UUID]*bucket),
		stop:    make(chan struct{}),
		logger:  logger,
	}
	go srl.reapLoop()
	return srl
}

func (srl *SessionRateLimiter) reapLoop() {
	ticker := time.NewTicker(srl.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			srl.mu.Lock()
			if len(srl.buckets) > 1000 {
				srl.logger.Info("Resetting rate limiter buckets", zap.Int("count", len(srl.buckets)))
				srl.buckets = make(map[uuid.UUID]*bucket)
			}
			srl.mu.Unlock()
		case <-srl.stop:
			return
		}
	}
}

func (srl *SessionRateLimiter) Stop() {
	close(srl.stop)
}

// AllowMessage reports whether the session may send another chat message now.
func (srl *SessionRateLimiter) AllowMessage(sessionID uuid.UUID) bool {
	srl.mu.Lock()
	b, ok := srl.buckets[sessionID]
	if !ok {
		b = &bucket{
			tokens:   float64(srl.cfg.BurstSize),
			capacity: float64(srl.cfg.BurstSize),
			rate:     float64(srl.cfg.MessagesPerMinute) / 60.0,
			last:     time.Now(),
		}
		srl.buckets[sessionID] = b
	}
	srl.mu.Unlock()

	return b.take()
}

// RateLimitMessages enforces the per-session chat message limit. It expects
// SessionMiddleware to have run first.
func RateLimitMessages(limiter *SessionRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := c.Get("sessionID")
		if !ok {
			c.Next()
			return
		}
		sessionID, ok := raw.(uuid.UUID)
		if !ok {
			c.Next()
			return
		}
		if !limiter.AllowMessage(sessionID) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"message": "You're sending messages too quickly. Please wait a moment.",
			})
			return
		}
		c.Next()
	}
}
