package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// maxTrackedClients bounds the number of per-client limiters kept in memory.
const maxTrackedClients = 4096

// RateLimitConfig configures per-client request limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate. Zero disables limiting.
	RequestsPerSecond float64

	// BurstSize is the maximum burst size.
	BurstSize int
}

// rateLimiter keeps a token bucket per client IP.
type rateLimiter struct {
	cfg     RateLimitConfig
	clients *lru.Cache[string, *rate.Limiter]
}

// RateLimit returns middleware that rejects clients exceeding cfg with 429.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	clients, _ := lru.New[string, *rate.Limiter](maxTrackedClients)
	l := &rateLimiter{cfg: cfg, clients: clients}
	return l.handle
}

func (l *rateLimiter) limiter(key string) *rate.Limiter {
	if lim, ok := l.clients.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.BurstSize)
	// A concurrent request may have added one; keep whichever is stored.
	if prev, ok, _ := l.clients.PeekOrAdd(key, lim); ok {
		return prev
	}
	return lim
}

func (l *rateLimiter) handle(c *gin.Context) {
	ip := c.ClientIP()
	if !l.limiter(ip).Allow() {
		logger.Zap().Warn("rate limit hit",
			zap.String("ip", ip),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{
			Error: http.StatusText(http.StatusTooManyRequests),
			Code:  "rate_limited",
		})
		return
	}
	c.Next()
}

// requestLogger logs each request at debug level once it completes.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Zap().Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
