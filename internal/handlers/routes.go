package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the API v1 routes on v1.
func RegisterRoutes(v1 *gin.RouterGroup, towers *TowerHandler, visits *VisitHandler, prefs *PreferencesHandler) {
	t := v1.Group("/towers")
	{
		t.GET("", towers.List)
		t.GET("/nearby", towers.Nearby)
		t.POST("/import", towers.Import)
		t.GET("/:id", towers.Get)
		t.GET("/:id/visits", towers.Visits)
	}

	v := v1.Group("/visits")
	{
		v.GET("", visits.List)
		v.POST("", visits.Create)
		v.GET("/export", visits.Export)
		v.POST("/import", visits.Import)
		v.GET("/:id", visits.Get)
		v.PUT("/:id", visits.Update)
		v.DELETE("/:id", visits.Delete)
	}

	v1.GET("/preferences", prefs.Get)
	v1.PUT("/preferences", prefs.Update)
	v1.GET("/stats", towers.Stats)
}
