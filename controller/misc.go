package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fuchsia74/apiconform/common"
	"github.com/fuchsia74/apiconform/common/config"
)

// GetStatus reports service liveness and build information.
func GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"version":    common.Version,
			"start_time": common.StartTime,
			"suite_dir":  config.SuiteDir,
		},
	})
}
