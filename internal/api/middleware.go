// Package api exposes the Qualis HTTP surface with gin
package api

import (
	"strings"

	"github.com/aethra/qualis/internal/auth"
	"github.com/aethra/qualis/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const ctxUserIDKey = "userID"

// IdentityMiddleware resolves the acting user for audit fields. A
// bearer token wins, then the X-User-ID header, then the fixed demo
// identity. Requests are never rejected here; role enforcement is a
// client-side concern for now.
func IdentityMiddleware(authSvc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := models.DemoUserID

		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			if claims, err := authSvc.VerifyToken(strings.TrimPrefix(header, "Bearer ")); err == nil {
				userID = claims.UserID
			}
		} else if header := c.GetHeader("X-User-ID"); header != "" {
			if id, err := uuid.Parse(header); err == nil {
				userID = id
			}
		}

		c.Set(ctxUserIDKey, userID)
		c.Next()
	}
}

// CurrentUserID returns the acting user resolved by the middleware
func CurrentUserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ctxUserIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return models.DemoUserID
}
