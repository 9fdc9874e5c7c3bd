package route

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bassista/go_obpdocs/internal/api/controller"
	"github.com/bassista/go_obpdocs/internal/api/middleware"
	"github.com/bassista/go_obpdocs/internal/config"
)

// NewConfigurationRouter sets up configuration-related routes.
func NewConfigurationRouter(timeout time.Duration, group *gin.RouterGroup, cfg *config.Config) {
	cc := controller.NewConfigurationController(cfg)
	timeoutMiddleware := middleware.RequestTimeout(timeout)

	group.GET("configuration", timeoutMiddleware, cc.GetConfiguration)
}
