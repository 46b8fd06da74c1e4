package organization

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotwise/booking-api/internal/handler"
	"github.com/slotwise/booking-api/internal/model"
	orgService "github.com/slotwise/booking-api/internal/service/organization"
)

type Handler struct {
	service *orgService.Service
}

func NewHandler(service *orgService.Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes exposes tenant signup.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/organizations", h.Create)
}

// RegisterRoutes exposes the authenticated organization endpoints. The
// organization is always the caller's own; there is no cross-tenant access.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	org := r.Group("/organization")
	{
		org.GET("", h.Get)
		org.PUT("", h.Update)
		org.DELETE("", h.Delete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	org, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(org))
}

func (h *Handler) Get(c *gin.Context) {
	org, err := h.service.Get(c.Request.Context(), handler.OrgID(c))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(org))
}

func (h *Handler) Update(c *gin.Context) {
	var req model.UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	org, err := h.service.Update(c.Request.Context(), handler.OrgID(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(org))
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), handler.OrgID(c)); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
