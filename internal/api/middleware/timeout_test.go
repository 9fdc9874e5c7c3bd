package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serveWithTimeout(d time.Duration, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(RequestTimeout(d))
	r.GET("/api/glossary", handler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/glossary", nil))
	return w
}

func TestRequestTimeout_DisabledForNonPositive(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		var hasDeadline bool
		w := serveWithTimeout(d, func(c *gin.Context) {
			_, hasDeadline = c.Request.Context().Deadline()
			c.String(http.StatusOK, "ok")
		})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, hasDeadline)
	}
}

func TestRequestTimeout_ContextHasDeadline(t *testing.T) {
	var hasDeadline bool
	w := serveWithTimeout(5*time.Second, func(c *gin.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
		c.String(http.StatusOK, "ok")
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, hasDeadline)
}

func TestRequestTimeout_TimeoutTriggered(t *testing.T) {
	w := serveWithTimeout(50*time.Millisecond, func(c *gin.Context) {
		select {
		case <-time.After(200 * time.Millisecond):
			c.String(http.StatusOK, "ok")
		case <-c.Request.Context().Done():
		}
	})

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.JSONEq(t, `{"error":"request timeout"}`, w.Body.String())
}

func TestRequestTimeout_HandlerWritesBeforeTimeout(t *testing.T) {
	w := serveWithTimeout(50*time.Millisecond, func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
		time.Sleep(100 * time.Millisecond)
	})

	assert.Equal(t, http.StatusOK, w.Code)
}
