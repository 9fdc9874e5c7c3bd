package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bassista/go_obpdocs/internal/cache"
	"github.com/bassista/go_obpdocs/internal/logger"
)

// Refresher schedules a background refresh of a cache partition.
type Refresher interface {
	Trigger(partition string)
}

type CacheController struct {
	refresher Refresher
}

func NewCacheController(refresher Refresher) *CacheController {
	return &CacheController{refresher: refresher}
}

// Refresh asks the worker to refresh ?partition=, or every partition when
// the parameter is missing. The new data is visible from the next session.
func (cc *CacheController) Refresh(c *gin.Context) {
	partitions := cache.Partitions()
	if p := c.Query("partition"); p != "" {
		if !cache.IsKnownPartition(p) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown partition", "partition": p})
			return
		}
		partitions = []string{p}
	}

	for _, p := range partitions {
		cc.refresher.Trigger(p)
	}
	logger.WithComponent("cache_controller").Infof("refresh requested for %v", partitions)
	c.JSON(http.StatusAccepted, gin.H{"refreshing": partitions})
}
