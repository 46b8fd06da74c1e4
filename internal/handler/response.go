package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/slotwise/booking-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{Status: "success", Data: data}
}

func NewErrorResponse(message string) *Response {
	return &Response{Status: "error", Message: message}
}

// Error writes the HTTP response for a service error. AppError codes map to
// statuses; anything else is a 500 with a generic message.
func Error(c *gin.Context, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		c.JSON(statusFor(appErr.Code), NewErrorResponse(appErr.Message))
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrBadRequest:
		return http.StatusBadRequest
	case apperrors.ErrUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrForbidden:
		return http.StatusForbidden
	case apperrors.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Context keys set by the auth middleware.
const (
	CtxUserID         = "user_id"
	CtxOrganizationID = "organization_id"
	CtxUserRole       = "user_role"
	CtxUserEmail      = "user_email"
)

// UserID returns the authenticated user's id from the request context.
func UserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(CtxUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// OrgID returns the authenticated user's organization id.
func OrgID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(CtxOrganizationID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// PathUUID parses a :param path segment as a UUID, writing a 400 on failure.
func PathUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid "+param))
		return uuid.Nil, false
	}
	return id, true
}
