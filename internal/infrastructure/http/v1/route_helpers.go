package v1

import (
	"github.com/gin-gonic/gin"

	"procurement/internal/infrastructure/http/v1/middleware"
)

// CatalogRouteHandler serves a master data collection.
type CatalogRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
}

// RegisterCatalogRoutes mounts list, get and create on group. Any
// authenticated user may read; creating needs one of writeRoles.
func RegisterCatalogRoutes(group *gin.RouterGroup, handler CatalogRouteHandler, writeRoles ...string) {
	group.GET("", handler.List)
	group.GET("/:id", handler.Get)
	group.POST("", middleware.RequireRole(writeRoles...), handler.Create)
}
