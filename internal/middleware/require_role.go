// require_role.go
package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"food-order-service/internal/model"
)

func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := Identity(c).Role
		if !slices.Contains(roles, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role not allowed for this operation"})
			return
		}
		c.Next()
	}
}
