package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/campuscare/grievance-app/utils"
)

// WebSocketAuthMiddleware authenticates upgrade requests. Browser
// WebSocket clients cannot set headers, so the token rides in a query
// parameter instead.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(401)
			return
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			c.AbortWithStatus(401)
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Next()
	}
}
