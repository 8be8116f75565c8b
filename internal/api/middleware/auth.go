package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jwtutil "github.com/move-league/move-league-backend/pkg/jwt"
)

const (
	ContextUserID = "userId"
	ContextRole   = "role"
)

// Auth resolves the bearer token to a user id. Roles are not trusted from the
// token; services load them from the user record.
func Auth(jwtManager *jwtutil.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortUnauthenticated(c, "Authorization header must be 'Bearer <token>'")
			return
		}

		claims, err := jwtManager.Verify(token)
		if errors.Is(err, jwtutil.ErrExpiredToken) {
			abortUnauthenticated(c, "Token expired")
			return
		}
		if err != nil {
			abortUnauthenticated(c, "Invalid token")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to the token query
// parameter for websocket handshakes that cannot set headers.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if q := c.Query("token"); q != "" && c.IsWebsocket() {
			return q, true
		}
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func abortUnauthenticated(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"kind": "AUTHENTICATION", "message": message},
	})
}

// UserID returns the authenticated caller, or "" on public routes.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
