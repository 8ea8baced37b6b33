package rest

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Per-player action throttle. A burst covers quick legitimate sequences
// like bet-then-hit; a sustained flood gets 429s without touching the
// room loop.
const (
	actionsPerSecond = 5
	actionBurst      = 10
)

type limiterPool struct {
	lock     sync.Mutex
	limiters map[string]*rate.Limiter
}

func newLimiterPool() *limiterPool {
	return &limiterPool{limiters: make(map[string]*rate.Limiter)}
}

func (lp *limiterPool) get(key string) *rate.Limiter {
	lp.lock.Lock()
	defer lp.lock.Unlock()
	limiter, ok := lp.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(actionsPerSecond), actionBurst)
		lp.limiters[key] = limiter
	}
	return limiter
}

func playerRateLimit() gin.HandlerFunc {
	pool := newLimiterPool()
	return func(c *gin.Context) {
		key := c.Query("playerId")
		if key == "" {
			key = c.ClientIP()
		}
		if !pool.get(key).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, appError{
				Code:    http.StatusTooManyRequests,
				Message: "too many requests",
			})
			return
		}
		c.Next()
	}
}
