package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Origin rejects browser requests from origins outside the allow
// list. Requests without an Origin header (native apps, curl) pass
// through; "*" disables the check.
func Origin(allowed []string) gin.HandlerFunc {
	allowAll := false
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		set[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" || allowAll || set[origin] {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
	}
}
