package handlers

import (
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// 投票接口限流配置，对应原始部署里的 10票/分钟
var (
	voteLimitEnabled bool
	votesPerMinute   = 10
	voteBurst        = 10

	voteLimitersLock sync.Mutex
	voteLimiters     = make(map[string]*voteLimiter)
)

type voteLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// InitRateLimiters 从环境变量读取限流配置
func InitRateLimiters() {
	if os.Getenv("ENABLE_RATE_LIMIT") == "true" {
		voteLimitEnabled = true
	}

	if rateStr := os.Getenv("VOTE_RATE_LIMIT"); rateStr != "" {
		if n, err := strconv.Atoi(rateStr); err == nil && n > 0 {
			votesPerMinute = n
			voteBurst = n
		}
	}
}

// SetVoteRateLimit overrides the rate limit configuration; used by tests.
func SetVoteRateLimit(enabled bool, perMinute, burst int) {
	voteLimitersLock.Lock()
	defer voteLimitersLock.Unlock()
	voteLimitEnabled = enabled
	if perMinute > 0 {
		votesPerMinute = perMinute
	}
	if burst > 0 {
		voteBurst = burst
	}
	voteLimiters = make(map[string]*voteLimiter)
}

// getVoteLimiter returns the per-client limiter, creating it on first use.
// Stale entries are pruned so the map tracks only recent clients.
func getVoteLimiter(key string) *rate.Limiter {
	voteLimitersLock.Lock()
	defer voteLimitersLock.Unlock()

	now := time.Now()
	if len(voteLimiters) > 10000 {
		for k, v := range voteLimiters {
			if now.Sub(v.lastSeen) > 10*time.Minute {
				delete(voteLimiters, k)
			}
		}
	}

	vl, ok := voteLimiters[key]
	if !ok {
		vl = &voteLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(votesPerMinute)/60.0), voteBurst),
		}
		voteLimiters[key] = vl
	}
	vl.lastSeen = now
	return vl.limiter
}

// VoteRateLimitMiddleware 按客户端IP限制投票频率
func VoteRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !voteLimitEnabled {
			c.Next()
			return
		}

		limiter := getVoteLimiter(c.ClientIP())
		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "Too many votes, please slow down",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
