package payment

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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/studios/:id/payment-methods", h.CreateSetupIntent)
}

func (h *Handler) CreateSetupIntent(c *gin.Context) {
	studioID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid studio id")
		return
	}

	resp, err := h.service.CreateSetupIntent(c.Request.Context(), studioID)
	if err != nil {
		var gwErr *gateway.Error
		switch {
		case errors.Is(err, ErrStudioNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Studio not found")
		case errors.As(err, &gwErr):
			response.Error(c, http.StatusBadGateway, "GATEWAY_ERROR", "Payment processor error")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
		}
		return
	}
	response.Success(c, http.StatusCreated, resp)
}
