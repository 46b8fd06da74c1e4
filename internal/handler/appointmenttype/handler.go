package appointmenttype

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotwise/booking-api/internal/handler"
	"github.com/slotwise/booking-api/internal/model"
	typeService "github.com/slotwise/booking-api/internal/service/appointmenttype"
)

type Handler struct {
	service *typeService.Service
}

func NewHandler(service *typeService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	types := r.Group("/appointment-types")
	{
		types.POST("", h.Create)
		types.GET("", h.List)
		types.GET("/:id", h.Get)
		types.PUT("/:id", h.Update)
		types.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateAppointmentTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	at, err := h.service.Create(c.Request.Context(), handler.OrgID(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(at))
}

func (h *Handler) List(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	types, err := h.service.List(c.Request.Context(), handler.OrgID(c), activeOnly)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(types))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.PathUUID(c, "id")
	if !ok {
		return
	}
	at, err := h.service.Get(c.Request.Context(), handler.OrgID(c), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(at))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := handler.PathUUID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateAppointmentTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	at, err := h.service.Update(c.Request.Context(), handler.OrgID(c), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(at))
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := handler.PathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), handler.OrgID(c), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
