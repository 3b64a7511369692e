package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type clientInfo struct {
	windowStart time.Time
	count       int
}

var (
	rlMu    sync.Mutex
	clients = make(map[string]*clientInfo)
)

// SimpleRateLimit is the in-process fallback limiter used when Redis is not
// configured: fixed window per client IP.
func SimpleRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		rlMu.Lock()
		ci, ok := clients[ip]
		if !ok || now.Sub(ci.windowStart) > window {
			clients[ip] = &clientInfo{windowStart: now, count: 1}
			rlMu.Unlock()
			c.Next()
			return
		}
		ci.count++
		count := ci.count
		rlMu.Unlock()

		if count > maxRequests {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
