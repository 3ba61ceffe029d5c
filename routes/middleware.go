package routes

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/competitor-scanner/app/responses"
)

// RequestLogger logs one line per request after the handler chain ran.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(startTime)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// BearerAuth rejects requests that do not carry the configured token in
// the Authorization header. The comparison is constant time.
func BearerAuth(token string) gin.HandlerFunc {
	const prefix = "Bearer "

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, prefix) ||
			subtle.ConstantTimeCompare([]byte(header[len(prefix):]), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, responses.ErrorResponse{
				Error:     "UNAUTHORIZED",
				Message:   "A valid bearer token is required",
				Timestamp: time.Now(),
			})
			return
		}
		c.Next()
	}
}

// PerClientRateLimit applies a token bucket per client IP. The client
// table is swept of idle entries once it grows past 10k to keep a churn
// of one-off IPs from pinning memory.
func PerClientRateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		cl, ok := clients[ip]
		if !ok {
			if len(clients) >= 10000 {
				for addr, other := range clients {
					if time.Since(other.lastSeen) > 10*time.Minute {
						delete(clients, addr)
					}
				}
			}
			cl = &client{limiter: rate.NewLimiter(rps, burst)}
			clients[ip] = cl
		}
		cl.lastSeen = time.Now()
		allowed := cl.limiter.Allow()
		mu.Unlock()

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, responses.ErrorResponse{
				Error:     "RATE_LIMITED",
				Message:   "Too many requests from this client",
				Timestamp: time.Now(),
			})
			return
		}
		c.Next()
	}
}
