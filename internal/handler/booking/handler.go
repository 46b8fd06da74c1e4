package booking

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/slotwise/booking-api/internal/handler"
	"github.com/slotwise/booking-api/internal/model"
	bookingService "github.com/slotwise/booking-api/internal/service/booking"
)

type Handler struct {
	service *bookingService.Service
}

func NewHandler(service *bookingService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	bookings := r.Group("/bookings")
	{
		bookings.GET("", h.List)
		bookings.GET("/:id", h.Get)
		bookings.POST("/:id/cancel", h.Cancel)
		bookings.POST("/:id/complete", h.Complete)
	}
}

func (h *Handler) List(c *gin.Context) {
	filters := &model.BookingFilters{OrganizationID: handler.OrgID(c)}
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user_id"))
			return
		}
		filters.UserID = id
	}
	if raw := c.Query("status"); raw != "" {
		filters.Status = model.BookingStatus(raw)
	}
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid from date"))
			return
		}
		filters.StartDate = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid to date"))
			return
		}
		filters.EndDate = parsed
	}

	bookings, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(bookings))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.PathUUID(c, "id")
	if !ok {
		return
	}
	booking, err := h.service.Get(c.Request.Context(), handler.OrgID(c), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(booking))
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := handler.PathUUID(c, "id")
	if !ok {
		return
	}
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	booking, err := h.service.Cancel(c.Request.Context(), handler.OrgID(c), id, req.Reason)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(booking))
}

func (h *Handler) Complete(c *gin.Context) {
	id, ok := handler.PathUUID(c, "id")
	if !ok {
		return
	}
	booking, err := h.service.Complete(c.Request.Context(), handler.OrgID(c), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(booking))
}
