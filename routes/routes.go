package routes

import (
	"mse_backend_project/controllers"
	"mse_backend_project/services/archive"
	"mse_backend_project/services/scraper"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, store *archive.Store, sc *scraper.Client) {
	dataController := controllers.NewDataController(store, sc)

	api := router.Group("/api")
	{
		api.GET("/data/:issuer_code", dataController.GetIssuerData)
		api.GET("/companies", dataController.GetCompanyCodes)
	}
}
