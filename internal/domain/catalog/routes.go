package catalog

import (
	"github.com/gin-gonic/gin"

	"odysseum/internal/middleware"
)

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	v1.GET("/businesses/:id", h.GetBusiness)
	v1.GET("/businesses/:id/services", h.ListBusinessServices)
	v1.GET("/services/:id", h.GetService)
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	owners := protected.Group("")
	owners.Use(middleware.RequireRole("business", "admin"))
	{
		owners.GET("/users/me/businesses", h.ListMyBusinesses)
		owners.POST("/businesses", h.CreateBusiness)
		owners.POST("/services", h.CreateService)
	}
}
