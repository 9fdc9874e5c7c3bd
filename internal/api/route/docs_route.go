package route

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bassista/go_obpdocs/internal/api/controller"
	"github.com/bassista/go_obpdocs/internal/api/middleware"
)

// NewDocsRouter sets up the read-only document routes.
func NewDocsRouter(timeout time.Duration, group *gin.RouterGroup, provider controller.ContextProvider) {
	dc := controller.NewDocsController(provider)
	timeoutMiddleware := middleware.RequestTimeout(timeout)

	group.GET("context", timeoutMiddleware, dc.GetContext)
	group.GET("resource-docs/:version", timeoutMiddleware, dc.GetResourceDocs)
	group.GET("resource-docs/:version/groups", timeoutMiddleware, dc.GetResourceDocGroups)
	group.GET("message-docs", timeoutMiddleware, dc.GetMessageDocs)
	group.GET("message-docs/:connector", timeoutMiddleware, dc.GetMessageDocsByConnector)
	group.GET("glossary", timeoutMiddleware, dc.GetGlossary)
	group.GET("search", timeoutMiddleware, dc.Search)
}

func NewCacheRouter(timeout time.Duration, group *gin.RouterGroup, refresher controller.Refresher) {
	cc := controller.NewCacheController(refresher)

	group.POST("cache/refresh", middleware.RequestTimeout(timeout), cc.Refresh)
}
