package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serveCORS(allowed, method, origin string, headers map[string]string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(CORSMiddleware(allowed))
	r.GET("/api/context", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.POST("/api/cache/refresh", func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	path := "/api/context"
	if method == http.MethodPost || headers["Access-Control-Request-Method"] == http.MethodPost {
		path = "/api/cache/refresh"
	}
	req := httptest.NewRequest(method, path, nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSMiddleware_AllowAll(t *testing.T) {
	w := serveCORS("*", http.MethodGet, "http://example.com", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEqual(t, "Origin", w.Header().Get("Vary"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"), "no credentials with a wildcard origin")
}

func TestCORSMiddleware_SpecificOrigin(t *testing.T) {
	tests := []struct {
		name       string
		allowed    string
		origin     string
		wantOrigin string
	}{
		{"allowed", "http://allowed.com,http://also-allowed.com", "http://allowed.com", "http://allowed.com"},
		{"second in list", "http://allowed.com,http://also-allowed.com", "http://also-allowed.com", "http://also-allowed.com"},
		{"whitespace trimmed", "  http://a.com  ,  http://b.com  ", "http://a.com", "http://a.com"},
		{"not allowed", "http://allowed.com", "http://not-allowed.com", ""},
		{"empty list", "", "http://example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveCORS(tt.allowed, http.MethodGet, tt.origin, nil)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantOrigin != "" {
				assert.Equal(t, "Origin", w.Header().Get("Vary"))
				assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
			}
		})
	}
}

func TestCORSMiddleware_NoOriginHeader(t *testing.T) {
	w := serveCORS("http://allowed.com", http.MethodGet, "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	w := serveCORS("*", http.MethodOptions, "http://example.com", map[string]string{
		"Access-Control-Request-Method": "GET",
	})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, defaultAllowMethods, w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, defaultAllowHeaders, w.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSMiddleware_PreflightEchoesRequestHeaders(t *testing.T) {
	w := serveCORS("*", http.MethodOptions, "http://example.com", map[string]string{
		"Access-Control-Request-Method":  "GET",
		"Access-Control-Request-Headers": "X-Custom-Header, X-Another",
	})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "X-Custom-Header, X-Another", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSMiddleware_PreflightForCacheRefresh(t *testing.T) {
	w := serveCORS("https://ui.example.com", http.MethodOptions, "https://ui.example.com", map[string]string{
		"Access-Control-Request-Method": http.MethodPost,
	})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://ui.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	w = serveCORS("https://ui.example.com", http.MethodPost, "https://ui.example.com", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "https://ui.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddleware_CustomMethods(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware("*", http.MethodGet, http.MethodOptions))
	r.GET("/api/context", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/context", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "GET, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
}
