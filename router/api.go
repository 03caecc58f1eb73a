package router

import (
	"github.com/gin-gonic/gin"

	"github.com/fuchsia74/apiconform/controller"
)

// SetAPIRouter wires the results API.
func SetAPIRouter(engine *gin.Engine) {
	api := engine.Group("/api")
	{
		api.GET("/status", controller.GetStatus)
		api.GET("/runs", controller.ListRuns)
		api.GET("/runs/:id", controller.GetRun)
		api.DELETE("/runs/:id", controller.DeleteRun)
		api.POST("/execute", controller.ExecuteSuites)
	}
}
