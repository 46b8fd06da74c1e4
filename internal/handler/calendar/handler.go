package calendar

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotwise/booking-api/internal/handler"
	calendarService "github.com/slotwise/booking-api/internal/service/calendar"
)

type Handler struct {
	service *calendarService.Service
}

func NewHandler(service *calendarService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	cal := r.Group("/calendar")
	{
		cal.GET("", h.Status)
		cal.GET("/connect", h.Connect)
		cal.DELETE("", h.Disconnect)
	}
}

// RegisterPublicRoutes exposes the OAuth callback Google redirects to.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/calendar/callback", h.Callback)
}

func (h *Handler) Status(c *gin.Context) {
	conn, err := h.service.Status(c.Request.Context(), handler.UserID(c))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"provider":       conn.Provider,
		"calendar_id":    conn.CalendarID,
		"last_synced_at": conn.LastSyncedAt,
	}))
}

func (h *Handler) Connect(c *gin.Context) {
	email, _ := c.Get(handler.CtxUserEmail)
	emailStr, _ := email.(string)
	url, err := h.service.AuthURL(handler.UserID(c), handler.OrgID(c), emailStr)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"auth_url": url}))
}

func (h *Handler) Callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("state and code are required"))
		return
	}
	if err := h.service.HandleCallback(c.Request.Context(), state, code); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"connected": true}))
}

func (h *Handler) Disconnect(c *gin.Context) {
	if err := h.service.Disconnect(c.Request.Context(), handler.UserID(c)); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
