package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/roomchat-backend/internal/http/response"
	"github.com/yungbote/roomchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/roomchat-backend/internal/platform/apierr"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
	"github.com/yungbote/roomchat-backend/internal/services"
)

const headerSessionID = "X-Session-Id"

type AuthMiddleware struct {
	log  *logger.Logger
	auth services.ConnectionAuthenticator
}

func NewAuthMiddleware(log *logger.Logger, auth services.ConnectionAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("Middleware", "AuthMiddleware"), auth: auth}
}

// RequireAuth resolves the credential before the handler runs, so a stream
// handler never sees an unauthenticated request.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := am.auth.Authenticate(c.Request.Context(), extractTokenFromAll(c))
		if err != nil {
			if reason, ok := services.AuthReasonOf(err); ok {
				response.RespondError(c, http.StatusUnauthorized, string(reason), err)
				c.Abort()
				return
			}
			am.log.Error("authentication lookup failed", "error", err)
			response.RespondAPIError(c, apierr.New(http.StatusServiceUnavailable, "auth_unavailable", err))
			c.Abort()
			return
		}
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
			UserID:    userID,
			SessionID: strings.TrimSpace(c.GetHeader(headerSessionID)),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// extractTokenFromAll prefers the query parameter because EventSource
// cannot set headers.
func extractTokenFromAll(c *gin.Context) string {
	if qToken := strings.TrimSpace(c.Query("token")); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
