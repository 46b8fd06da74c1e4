package availability

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/slotwise/booking-api/internal/handler"
	"github.com/slotwise/booking-api/internal/model"
	availabilityService "github.com/slotwise/booking-api/internal/service/availability"
)

type Handler struct {
	service *availabilityService.Service
}

func NewHandler(service *availabilityService.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the schedule management endpoints. They always act on
// the authenticated staff member's own schedule.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	av := r.Group("/availability")
	{
		av.GET("/weekly", h.ListWeekly)
		av.PUT("/weekly", h.ReplaceWeek)
		av.GET("/exceptions", h.ListExceptions)
		av.POST("/exceptions", h.CreateException)
		av.DELETE("/exceptions/:id", h.DeleteException)
		av.GET("/blocked", h.ListBlockedRanges)
		av.POST("/blocked", h.CreateBlockedRange)
		av.DELETE("/blocked/:id", h.DeleteBlockedRange)
	}
}

func (h *Handler) ListWeekly(c *gin.Context) {
	rules, err := h.service.ListWeekly(c.Request.Context(), handler.UserID(c))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(rules))
}

func (h *Handler) ReplaceWeek(c *gin.Context) {
	var req model.ReplaceWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	rules, err := h.service.ReplaceWeek(c.Request.Context(), handler.UserID(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(rules))
}

func (h *Handler) ListExceptions(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	excs, err := h.service.ListExceptions(c.Request.Context(), handler.UserID(c), from, to)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(excs))
}

func (h *Handler) CreateException(c *gin.Context) {
	var req model.CreateExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	exc, err := h.service.CreateException(c.Request.Context(), handler.UserID(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(exc))
}

func (h *Handler) DeleteException(c *gin.Context) {
	id, ok := handler.PathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteException(c.Request.Context(), handler.UserID(c), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) ListBlockedRanges(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	ranges, err := h.service.ListBlockedRanges(c.Request.Context(), handler.UserID(c), from, to)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(ranges))
}

func (h *Handler) CreateBlockedRange(c *gin.Context) {
	var req model.CreateBlockedRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	blocked, err := h.service.CreateBlockedRange(c.Request.Context(), handler.UserID(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(blocked))
}

func (h *Handler) DeleteBlockedRange(c *gin.Context) {
	id, ok := handler.PathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteBlockedRange(c.Request.Context(), handler.UserID(c), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

// dateRange reads ?from and ?to, defaulting to the next 90 days.
func dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from, to := now.AddDate(0, 0, -1), now.AddDate(0, 0, 90)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid from date"))
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid to date"))
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}
	// The repository bound is exclusive; ?to stays inclusive for callers.
	return from, to.AddDate(0, 0, 1), true
}
