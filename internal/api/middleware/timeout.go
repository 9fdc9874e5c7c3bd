package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bassista/go_obpdocs/internal/logger"
)

// RequestTimeout bounds how long a request may wait, e.g. for the
// application context to be published. Handlers that give up on
// ctx.Done() without writing get a 504.
func RequestTimeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if c.Writer.Written() || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return
		}
		logger.WithComponent("http").Warnf("%s %s gave up after %v", c.Request.Method, c.Request.URL.Path, d)
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{
			"error": "request timeout",
		})
	}
}
