package booking

import (
	"github.com/gin-gonic/gin"

	"odysseum/internal/middleware"
)

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	v1.GET("/services/:id/availability", h.CheckAvailability)
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/bookings", h.CreateBooking)
	rg.GET("/users/me/bookings", h.GetMyBookings)
	rg.GET("/services/:id/bookings", h.GetServiceBookings)

	bookings := rg.Group("/bookings/:id")
	{
		bookings.GET("", h.GetBooking)
		bookings.GET("/status", h.GetBookingStatus)
		bookings.DELETE("", h.DeleteBooking)

		bookings.POST("/approve", h.ApproveBooking)
		bookings.POST("/reject", h.RejectBooking)
		bookings.POST("/cancel", h.CancelBooking)
		bookings.POST("/payments", h.UpdatePayment)
		bookings.POST("/refund", h.ProcessRefund)

		bookings.PATCH("/status", h.UpdateBookingStatus)
		bookings.PATCH("/confirm", h.shortcut(h.service.MarkAsConfirmed))
		bookings.PATCH("/complete", h.shortcut(h.service.MarkAsCompleted))
		bookings.PATCH("/no-show", h.shortcut(h.service.MarkAsNoShow))
	}
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AdminOnly())
	admin.POST("/bookings/expire", h.ExpireUnpaid)
}
