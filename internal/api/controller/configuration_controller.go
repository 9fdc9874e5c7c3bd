package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bassista/go_obpdocs/internal/cache"
	"github.com/bassista/go_obpdocs/internal/config"
)

// ConfigurationResponse represents the configuration response structure for the API.
type ConfigurationResponse struct {
	APIHost            string   `json:"apiHost"`
	APIVersion         string   `json:"apiVersion"`
	UpstreamMode       string   `json:"upstreamMode"`
	Connectors         []string `json:"connectors"`
	CacheBackend       string   `json:"cacheBackend"`
	RefreshIntervalSec int      `json:"refreshIntervalSec"`
}

// ConfigurationController handles configuration-related API endpoints.
type ConfigurationController struct {
	config *config.Config
}

// NewConfigurationController creates a new ConfigurationController.
func NewConfigurationController(cfg *config.Config) *ConfigurationController {
	return &ConfigurationController{
		config: cfg,
	}
}

// GetConfiguration returns the non-secret configuration for the frontend.
func (cc *ConfigurationController) GetConfiguration(c *gin.Context) {
	backend := cc.config.Cache.Backend
	if backend == "" {
		backend = cache.BackendBolt
	}
	c.JSON(http.StatusOK, ConfigurationResponse{
		APIHost:            cc.config.API.Host,
		APIVersion:         cc.config.API.Version,
		UpstreamMode:       cc.config.Upstream.Mode,
		Connectors:         cc.config.Upstream.Connectors,
		CacheBackend:       backend,
		RefreshIntervalSec: int(cc.config.Worker.RefreshInterval.Seconds()),
	})
}
