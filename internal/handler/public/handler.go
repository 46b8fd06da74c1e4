package public

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/slotwise/booking-api/internal/handler"
	"github.com/slotwise/booking-api/internal/model"
	typeService "github.com/slotwise/booking-api/internal/service/appointmenttype"
	availabilityService "github.com/slotwise/booking-api/internal/service/availability"
	bookingService "github.com/slotwise/booking-api/internal/service/booking"
	orgService "github.com/slotwise/booking-api/internal/service/organization"
	userService "github.com/slotwise/booking-api/internal/service/user"
)

// Handler serves the unauthenticated booking surface: the page customers use
// to pick a slot and book it. Everything is keyed by the organization slug.
type Handler struct {
	orgs     *orgService.Service
	users    *userService.Service
	types    *typeService.Service
	slots    *availabilityService.Service
	bookings *bookingService.Service
}

func NewHandler(
	orgs *orgService.Service,
	users *userService.Service,
	types *typeService.Service,
	slots *availabilityService.Service,
	bookings *bookingService.Service,
) *Handler {
	return &Handler{orgs: orgs, users: users, types: types, slots: slots, bookings: bookings}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	public := r.Group("/public/:slug")
	{
		public.GET("", h.GetPage)
		public.GET("/slots", h.GetSlots)
		public.POST("/bookings", h.CreateBooking)
	}
}

// GetPage returns everything the booking page needs in one call.
func (h *Handler) GetPage(c *gin.Context) {
	org, err := h.orgs.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	types, err := h.types.List(c.Request.Context(), org.ID, true)
	if err != nil {
		handler.Error(c, err)
		return
	}
	staff, err := h.users.List(c.Request.Context(), org.ID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	// Only expose what the booking page needs.
	members := make([]gin.H, 0, len(staff))
	for _, u := range staff {
		if u.Status != model.UserStatusActive {
			continue
		}
		members = append(members, gin.H{"id": u.ID, "name": u.Name})
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"organization": gin.H{
			"name":     org.Name,
			"slug":     org.Slug,
			"timezone": org.Timezone,
		},
		"appointment_types": types,
		"staff":             members,
	}))
}

// GetSlots resolves the open slots for one staff member, appointment type
// and date. The optional tz parameter localizes the display fields only.
func (h *Handler) GetSlots(c *gin.Context) {
	org, err := h.orgs.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	userID, err := uuid.Parse(c.Query("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user_id"))
		return
	}
	typeID, err := uuid.Parse(c.Query("appointment_type_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment_type_id"))
		return
	}
	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("date is required"))
		return
	}

	slots, err := h.slots.GetSlots(c.Request.Context(), availabilityService.SlotQuery{
		OrganizationID:    org.ID,
		UserID:            userID,
		AppointmentTypeID: typeID,
		Date:              date,
		CustomerTimezone:  c.Query("tz"),
	})
	if err != nil {
		handler.Error(c, err)
		return
	}
	if slots == nil {
		slots = []model.Slot{}
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"date": date, "slots": slots}))
}

func (h *Handler) CreateBooking(c *gin.Context) {
	org, err := h.orgs.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	var req model.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	booking, err := h.bookings.Create(c.Request.Context(), org.ID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(booking))
}
