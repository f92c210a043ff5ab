package security

import (
	"net/http"
	"strings"

	sec "CrossChat/tools/security"

	"github.com/gin-gonic/gin"
)

// CtxUserKey is where the middleware stores the verified user id.
const CtxUserKey = "authUserId"

// Middleware verifies a bearer token on plain HTTP endpoints and puts
// the user id into the request context.
func Middleware(opts sec.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token = strings.TrimSpace(authz[len("bearer "):])
			}
		}
		userID, err := sec.VerifyUser(opts, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication error"})
			return
		}
		c.Set(CtxUserKey, userID)
		c.Next()
	}
}
