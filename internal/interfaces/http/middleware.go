package http

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/usecases"
)

// Middleware guards the ops API: bearer-token auth plus a small per-IP
// rate limit on the public login endpoint.
type Middleware struct {
	auth *usecases.OpsAuth

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewMiddleware(auth *usecases.OpsAuth) *Middleware {
	return &Middleware{auth: auth, limiters: make(map[string]*rate.Limiter)}
}

func (m *Middleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if err := m.auth.Verify(token); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

// RateLimitPerIP throttles unauthenticated endpoints so login cannot be
// brute forced.
func (m *Middleware) RateLimitPerIP(r rate.Limit, burst int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		m.mu.Lock()
		limiter, ok := m.limiters[key]
		if !ok {
			limiter = rate.NewLimiter(r, burst)
			m.limiters[key] = limiter
		}
		m.mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

func RequestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
