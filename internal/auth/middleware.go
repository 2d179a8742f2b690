package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const claimsKey = "auth.claims"

// RequireAdmin aborts with 401 for a missing or invalid token and 403 for a
// token without the admin role.
func RequireAdmin(g *Gate, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := g.Authorize(c.GetHeader("Authorization"))
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, ErrForbidden) {
				status = http.StatusForbidden
			}
			log.Warn("admin gate denied", "path", c.FullPath(), "status", status, "error", err)
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}
