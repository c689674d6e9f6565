package booking

import "github.com/gin-gonic/gin"

// RegisterRoutes splits the surface into the open read side and the
// mutating side, which the caller may wrap with auth middleware.
func (h *Handler) RegisterRoutes(public, mutating *gin.RouterGroup) {
	mutating.POST("/booking-requests", h.CreateRequest)
	public.GET("/booking-requests", h.ListRequests)
	mutating.PATCH("/booking-requests/:id", h.UpdateRequest)

	public.GET("/bookings/:id", h.GetBooking)
	public.GET("/bookings/:id/events", h.GetPaymentEvents)
	mutating.DELETE("/bookings/:id", h.CancelBooking)
	mutating.POST("/bookings/:id/refund", h.RefundBooking)

	public.GET("/rooms/:id/availability", h.GetAvailability)
}
