package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/slotwise/booking-api/internal/handler"
	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/pkg/auth"
)

type AuthMiddleware struct {
	jwt auth.JWTService
}

func NewAuthMiddleware(jwt auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// Authenticate validates the bearer token and stores the caller's identity
// in the request context. Every protected route runs behind it; the
// organization id it sets is what scopes all tenant data access.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			return
		}

		claims, err := m.jwt.ValidateToken(parts[1], auth.TokenTypeAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			return
		}

		c.Set(handler.CtxUserID, claims.UserID)
		c.Set(handler.CtxOrganizationID, claims.OrganizationID)
		c.Set(handler.CtxUserRole, claims.Role)
		c.Set(handler.CtxUserEmail, claims.Email)
		c.Next()
	}
}

// RequireOwner restricts a route to organization owners.
func (m *AuthMiddleware) RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(handler.CtxUserRole)
		if role != string(model.UserRoleOwner) {
			c.AbortWithStatusJSON(http.StatusForbidden, handler.NewErrorResponse("owner role required"))
			return
		}
		c.Next()
	}
}
