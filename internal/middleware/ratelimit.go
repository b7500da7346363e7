package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// SendRateLimiter 发信限流中间件，按发件人维护独立的令牌桶。
type SendRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*senderLimiter
	perMin   int
	burst    int
}

type senderLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewSendRateLimiter 创建发信限流器
func NewSendRateLimiter(perMinute, burst int) *SendRateLimiter {
	l := &SendRateLimiter{
		limiters: make(map[string]*senderLimiter),
		perMin:   perMinute,
		burst:    burst,
	}

	// 定期清理长时间不活跃的发件人桶
	go l.cleanupLoop()

	return l
}

// Limit 限流中间件，键取 JWT 中间件写入的发件人地址
func (l *SendRateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		sender := c.GetString("email")
		if sender == "" {
			sender = c.ClientIP()
		}

		if !l.limiterFor(sender).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "send rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (l *SendRateLimiter) limiterFor(sender string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[sender]
	if !ok {
		entry = &senderLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(l.perMin)/60.0), l.burst),
		}
		l.limiters[sender] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (l *SendRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-30 * time.Minute)
		l.mu.Lock()
		for sender, entry := range l.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(l.limiters, sender)
			}
		}
		l.mu.Unlock()
	}
}
