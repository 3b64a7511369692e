package middleware

import (
	"net/http"
	"strings"

	"memeiq_bot/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminJWT guards the admin API with tokens minted by the /admin chat
// command. Accepts "Authorization: Bearer <token>" or ?token= for the
// dashboard deep link.
func AdminJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !service.JWTEnabled() {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "admin API disabled"})
			return
		}

		token := c.Query("token")
		if token == "" {
			auth := c.GetHeader("Authorization")
			token = strings.TrimPrefix(auth, "Bearer ")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		adminID, err := service.ParseAdminToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("admin_id", adminID)
		c.Next()
	}
}
