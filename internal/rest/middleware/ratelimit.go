package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"golang.org/x/time/rate"
)

// RateLimit admits one request per interval across all callers. A zero
// interval admits everything.
func RateLimit(interval time.Duration) gin.HandlerFunc {
	if interval <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	limiter := rate.NewLimiter(rate.Every(interval), 1)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.Error(ierr.NewError("rate limit exceeded").
				WithHintf("Please wait %s between billing runs", interval).
				Mark(ierr.ErrRateLimited))
			c.Abort()
			return
		}
		c.Next()
	}
}
