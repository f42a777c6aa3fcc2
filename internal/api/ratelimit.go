package api

import (
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter table; past it the table starts over.
const maxTrackedClients = 10000

type clientLimiters struct {
	mu      sync.Mutex
	rps     int
	clients map[string]*rate.Limiter
}

func (l *clientLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.clients[ip]
	if !ok {
		if len(l.clients) >= maxTrackedClients {
			clear(l.clients)
		}
		lim = rate.NewLimiter(rate.Limit(l.rps), l.rps)
		l.clients[ip] = lim
	}
	return lim
}

// RateLimitMiddleware allows each client IP rps requests per second with
// bursts of the same size. Rejected requests get a 429 and Retry-After.
func RateLimitMiddleware(rps int) gin.HandlerFunc {
	if rps < 1 {
		rps = 1
	}
	limiters := &clientLimiters{rps: rps, clients: make(map[string]*rate.Limiter)}

	return func(c *gin.Context) {
		lim := limiters.get(c.ClientIP())
		if r := lim.Reserve(); r.Delay() > 0 {
			wait := int(math.Ceil(r.Delay().Seconds()))
			r.Cancel()
			c.Header("Retry-After", strconv.Itoa(wait))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
