// middlewares/auth_middleware.go
package middlewares

import (
	"net/http"
	"strings"

	"github.com/nanuri-team/nanuri-backend/services"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware guards the HTTP API with the same token resolution the chat
// endpoint uses: bearer token, email claim, active user row.
func AuthMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		user := auth.ResolveToken(strings.TrimPrefix(authHeader, "Bearer "))
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", uint(user.ID))
		c.Set("email", user.Email)
		c.Next()
	}
}
