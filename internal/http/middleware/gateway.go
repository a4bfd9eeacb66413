package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/roomchat-backend/internal/http/response"
)

const headerGatewayKey = "X-Gateway-Key"

// RequireGatewayKey guards internal routes consumed by the push gateway. An
// empty key disables the routes entirely.
func RequireGatewayKey(key string) gin.HandlerFunc {
	key = strings.TrimSpace(key)
	return func(c *gin.Context) {
		if key == "" {
			response.RespondError(c, http.StatusNotFound, "not_found", errors.New("not found"))
			c.Abort()
			return
		}
		got := strings.TrimSpace(c.GetHeader(headerGatewayKey))
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			response.RespondError(c, http.StatusForbidden, "forbidden", errors.New("invalid gateway key"))
			c.Abort()
			return
		}
		c.Next()
	}
}
