package booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"studiobook/internal/gateway"
	"studiobook/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateRequest(c *gin.Context) {
	var req CreateRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	b, err := h.service.CreateRequest(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{
		"request":         b,
		"paymentIntentId": b.PaymentIntentID,
	})
}

func (h *Handler) ListRequests(c *gin.Context) {
	studioID := queryInt64(c, "studioId")
	userID := queryInt64(c, "userId")

	rows, err := h.service.ListRequests(c.Request.Context(), studioID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"requests": rows})
}

func (h *Handler) UpdateRequest(c *gin.Context) {
	var req UpdateRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	var err error
	var b any
	switch req.Action {
	case "approve":
		b, err = h.service.Approve(c.Request.Context(), c.Param("id"))
	case "reject":
		b, err = h.service.Reject(c.Request.Context(), c.Param("id"))
	default:
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR",
			"action must be approve or reject", gin.H{"field": "action"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"request": b})
}

func (h *Handler) GetBooking(c *gin.Context) {
	b, err := h.service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) GetPaymentEvents(c *gin.Context) {
	events, err := h.service.PaymentEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"events": events})
}

func (h *Handler) CancelBooking(c *gin.Context) {
	actor := actorID(c)
	if actor == 0 {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Acting user is required")
		return
	}

	b, err := h.service.Cancel(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) RefundBooking(c *gin.Context) {
	actor := actorID(c)
	if actor == 0 {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Acting user is required")
		return
	}

	b, err := h.service.Refund(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) GetAvailability(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid room id")
		return
	}

	resp, err := h.service.Availability(c.Request.Context(), roomID, c.Query("date"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var fieldError *FieldError
	var gwErr *gateway.Error

	switch {
	case errors.Is(err, ErrIdempotencyKey):
		response.Error(c, http.StatusBadRequest, "IDEMPOTENCY_KEY_REQUIRED",
			"Idempotency-Key header is required")
	case errors.As(err, &fieldError):
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR",
			fieldError.Error(), gin.H{"field": fieldError.Field})
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request")
	case errors.Is(err, ErrUserNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "User not found")
	case errors.Is(err, ErrStudioNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Studio not found")
	case errors.Is(err, ErrRoomNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Room not found")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
	case errors.Is(err, ErrNoPaymentMethod):
		response.Error(c, http.StatusPaymentRequired, "NO_PAYMENT_METHOD",
			"No payment method on file")
	case errors.Is(err, ErrSlotTaken):
		response.Error(c, http.StatusConflict, "BOOKING_CONFLICT",
			"Room is not available for the selected time")
	case errors.Is(err, ErrInvalidTransition):
		response.Error(c, http.StatusConflict, "INVALID_TRANSITION",
			"Request is not in a state that allows this action")
	case errors.Is(err, ErrNotRefundable):
		response.Error(c, http.StatusConflict, "PAYMENT_NOT_CAPTURED",
			"Payment has not been captured")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN",
			"Only the requester or the studio owner may do this")
	case errors.Is(err, ErrCaptureFailed):
		response.Error(c, http.StatusBadGateway, "PAYMENT_CAPTURE_FAILED",
			"Payment could not be captured; the request is still pending")
	case errors.As(err, &gwErr):
		// Processor details stay in the logs and the event trail.
		response.Error(c, http.StatusBadGateway, "GATEWAY_ERROR", "Payment processor error")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
	}
}

// actorID prefers the authenticated user and falls back to the userId query
// parameter for unauthenticated deployments.
func actorID(c *gin.Context) int64 {
	if v := c.GetInt64("user_id"); v != 0 {
		return v
	}
	return queryInt64(c, "userId")
}

func queryInt64(c *gin.Context, name string) int64 {
	v, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
