package route

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bassista/go_obpdocs/internal/api/middleware"
	"github.com/bassista/go_obpdocs/internal/app"
)

func SetupRoutes(r *gin.Engine, appCtx *app.App) {
	r.Use(middleware.CORSMiddleware(appCtx.Config.Server.CORSAllowedOrigins,
		http.MethodGet, http.MethodPost, http.MethodOptions))

	r.GET("/health", func(c *gin.Context) {
		status := "starting"
		if ctx := appCtx.Publisher.Context(); ctx != nil {
			status = string(ctx.Status())
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "UP",
			"context": status,
		})
	})

	apiRouter := r.Group("/api")
	timeout := appCtx.Config.Server.RequestTimeout

	NewDocsRouter(timeout, apiRouter, appCtx.Publisher)
	NewCacheRouter(timeout, apiRouter, appCtx.Worker)
	NewConfigurationRouter(timeout, apiRouter, appCtx.Config)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}
