// auth_middleware.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"food-order-service/internal/model"
	"food-order-service/internal/service"
)

const (
	ctxUserID = "userID"
	ctxRole   = "userRole"
)

type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*model.Identity, error)
}

// El token viaja en la cookie "token"; se acepta también Authorization: Bearer.
func tokenFromRequest(c *gin.Context) string {
	if t, err := c.Cookie("token"); err == nil && t != "" {
		return t
	}
	h := c.GetHeader("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// Middleware que valida el token y guarda la info del usuario en el contexto
func AuthMiddleware(auth TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		id, err := auth.ValidateToken(c.Request.Context(), token)
		if errors.Is(err, service.ErrUpstream) {
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "auth service unavailable"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ctxUserID, id.UserID)
		c.Set(ctxRole, string(id.Role))
		c.Next()
	}
}

// Identity lee lo que dejó AuthMiddleware.
func Identity(c *gin.Context) model.Identity {
	return model.Identity{
		UserID: c.GetString(ctxUserID),
		Role:   model.Role(c.GetString(ctxRole)),
	}
}

// SetIdentity se usa en tests para saltear la validación remota.
func SetIdentity(c *gin.Context, id model.Identity) {
	c.Set(ctxUserID, id.UserID)
	c.Set(ctxRole, string(id.Role))
}
