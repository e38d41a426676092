// Package api exposes the shoe rack over HTTP.
package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the gin engine. Request logs go to logOut; pass
// io.Discard to silence them.
func NewRouter(h *Handler, logOut io.Writer) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.LoggerWithWriter(logOut), gin.Recovery())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	shoes := api.Group("/shoes")
	shoes.GET("", h.ListShoes)
	shoes.POST("", h.CreateShoe)
	shoes.GET("/:id", h.GetShoe)
	shoes.PUT("/:id", h.UpdateShoe)
	shoes.DELETE("/:id", h.DeleteShoe)
	shoes.POST("/:id/retire", h.RetireShoe)
	shoes.PUT("/:id/defaults", h.SetDefaults)
	shoes.DELETE("/:id/defaults", h.ClearDefaults)
	shoes.PUT("/:id/suitable", h.SetSuitable)
	shoes.POST("/:id/activities", h.AssignActivities)
	shoes.DELETE("/:id/activities", h.UnassignActivities)
	shoes.POST("/:id/recompute", h.Recompute)

	api.GET("/activities", h.ListActivities)
	api.GET("/entitlement/restricted", h.Restricted)

	return engine
}
