package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxActor = "seasense_actor"

// Require returns a Gin middleware that accepts either HTTP Basic credentials
// or a Bearer session token. tokens may be nil to accept Basic only. When
// creds is not enabled every request passes.
func Require(creds Credentials, tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !creds.Enabled() {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if tokens != nil && strings.HasPrefix(header, "Bearer ") {
			claims, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
				return
			}
			c.Set(ctxActor, claims.Username)
			c.Next()
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if !ok || creds.Check(user, pass) != nil {
			c.Header("WWW-Authenticate", `Basic realm="seasense"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(ctxActor, user)
		c.Next()
	}
}

// ActorFromCtx returns the authenticated username, or "" on an open API.
func ActorFromCtx(c *gin.Context) string {
	return c.GetString(ctxActor)
}
