package billing

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/slotwise/booking-api/internal/handler"
	"github.com/slotwise/booking-api/internal/model"
	billingService "github.com/slotwise/booking-api/internal/service/billing"
	"github.com/slotwise/booking-api/pkg/logger"
)

const maxWebhookBody = 1 << 20 // 1 MiB

type Handler struct {
	service *billingService.Service
	logger  *logger.Logger
}

func NewHandler(service *billingService.Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	billing := r.Group("/billing")
	{
		billing.POST("/checkout", h.CreateCheckout)
		billing.POST("/portal", h.CreatePortal)
		billing.GET("/subscription", h.GetSubscription)
	}
}

// RegisterWebhookRoutes exposes the Stripe webhook. No JWT here: the
// signature check is the authentication.
func (h *Handler) RegisterWebhookRoutes(r *gin.RouterGroup) {
	r.POST("/webhooks/stripe", h.StripeWebhook)
}

func (h *Handler) CreateCheckout(c *gin.Context) {
	var req model.CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	url, err := h.service.CreateCheckout(c.Request.Context(), handler.OrgID(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"checkout_url": url}))
}

type portalRequest struct {
	ReturnURL string `json:"return_url" binding:"required,url"`
}

func (h *Handler) CreatePortal(c *gin.Context) {
	var req portalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	url, err := h.service.CreatePortal(c.Request.Context(), handler.OrgID(c), req.ReturnURL)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"portal_url": url}))
}

func (h *Handler) GetSubscription(c *gin.Context) {
	sub, err := h.service.GetSubscription(c.Request.Context(), handler.OrgID(c))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(sub))
}

func (h *Handler) StripeWebhook(c *gin.Context) {
	if h.service.WebhookSecret() == "" {
		c.JSON(http.StatusServiceUnavailable, handler.NewErrorResponse("stripe webhook not configured"))
		return
	}
	sig := c.GetHeader("Stripe-Signature")
	if sig == "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("missing Stripe-Signature header"))
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("failed to read body"))
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(body, sig, h.service.WebhookSecret(), h.service.WebhookTolerance())
	if err != nil {
		h.logger.Warn("stripe webhook signature rejected", "error", err.Error())
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid signature"))
		return
	}

	if err := h.service.HandleEvent(c.Request.Context(), &evt, body); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"received": true}))
}
