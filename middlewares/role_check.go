package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuscare/grievance-app/utils"
)

// RequireRoles rejects requests whose token role is not in the allow
// list. It is a cheap front gate; handlers still verify the role
// against the caller's database row before acting.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		userRole, exists := c.Get("role")
		if !exists {
			utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			c.Abort()
			return
		}

		role, _ := userRole.(string)
		if !allowed[role] {
			utils.RespondError(c, http.StatusForbidden, fmt.Errorf("%s access required", roles[0]))
			c.Abort()
			return
		}

		c.Next()
	}
}
