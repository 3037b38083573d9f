// internal/interfaces/http/middleware/session.go
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// SessionCookie holds the guest cart session ID
	SessionCookie = "session_id"
	sessionKey    = "session_id"
)

// Session makes sure every request has a guest session ID, issuing a cookie
// when the client has none
func Session(ttl time.Duration, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(SessionCookie)
		if _, parseErr := uuid.Parse(sessionID); err != nil || parseErr != nil {
			sessionID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, sessionID, int(ttl.Seconds()), "/", "", secure, true)
		}

		c.Set(sessionKey, sessionID)
		c.Next()
	}
}

// GetSessionID returns the guest session ID of the request
func GetSessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}
