package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/roomchat-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError maps err through apierr. Internal errors go to the
// request logger and never reach the client.
func RespondAPIError(c *gin.Context, err error) {
	ae := apierr.From(err)
	if ae.Internal() {
		_ = c.Error(err)
	}
	c.JSON(ae.Status, ErrorEnvelope{Error: APIError{Message: ae.Public(), Code: ae.Code}})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
