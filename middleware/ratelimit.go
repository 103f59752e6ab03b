package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterSweepInterval = 5 * time.Minute
	limiterIdleEviction  = 10 * time.Minute
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterPool holds one token bucket per client IP and evicts idle entries.
type limiterPool struct {
	limiters sync.Map
	r        rate.Limit
	b        int
}

func newLimiterPool(r rate.Limit, b int) *limiterPool {
	p := &limiterPool{r: r, b: b}
	go p.sweep()
	return p
}

func (p *limiterPool) sweep() {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-limiterIdleEviction)
		p.limiters.Range(func(k, v interface{}) bool {
			if v.(*ipLimiter).lastSeen.Before(cutoff) {
				p.limiters.Delete(k)
			}
			return true
		})
	}
}

func (p *limiterPool) get(ip string) *rate.Limiter {
	v, _ := p.limiters.LoadOrStore(ip, &ipLimiter{limiter: rate.NewLimiter(p.r, p.b)})
	il := v.(*ipLimiter)
	il.lastSeen = time.Now()
	return il.limiter
}

// RateLimit provides per-IP token-bucket rate limiting.
// r = requests per second, b = burst size.
func RateLimit(r rate.Limit, b int) gin.HandlerFunc {
	pool := newLimiterPool(r, b)

	return func(c *gin.Context) {
		if !pool.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
