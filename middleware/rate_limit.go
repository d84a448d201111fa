package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/dongnelab/dongbo/utils"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	limiterMu sync.Mutex
	limiters  = map[string]*clientLimiter{}
)

// getLimiter returns the per-IP limiter, creating one when first seen.
func getLimiter(ip string, perMinute int) *rate.Limiter {
	limiterMu.Lock()
	defer limiterMu.Unlock()

	cl, ok := limiters[ip]
	if !ok {
		burst := perMinute / 4
		if burst < 5 {
			burst = 5
		}
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
		}
		limiters[ip] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter
}

// cleanupLimiters drops idle entries so the map does not grow unbounded.
func cleanupLimiters() {
	for {
		time.Sleep(5 * time.Minute)
		limiterMu.Lock()
		for ip, cl := range limiters {
			if time.Since(cl.lastSeen) > 10*time.Minute {
				delete(limiters, ip)
			}
		}
		limiterMu.Unlock()
	}
}

func init() {
	go cleanupLimiters()
}

// RateLimit throttles requests per client IP. A perMinute of 0 disables the
// middleware entirely.
func RateLimit(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(ctx *gin.Context) { ctx.Next() }
	}
	return func(ctx *gin.Context) {
		if !getLimiter(ctx.ClientIP(), perMinute).Allow() {
			utils.Error(ctx, 429, 42900, "too many requests")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
