package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/debugmentor/debugmentor-backend/internal/apierr"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Cause      string `json:"cause,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError maps any error onto the wire taxonomy. Known *apierr.Error
// values keep their status, code and cause; anything else becomes a 500.
func RespondError(c *gin.Context, err error) {
	ae := apierr.From(err)
	body := ErrorEnvelope{
		Error: APIError{
			Code:    ae.Code,
			Message: ae.Error(),
			Cause:   ae.Cause,
		},
	}
	if ae.RetryAfter > 0 {
		retryAfter := int(ae.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		body.Error.RetryAfter = retryAfter
		c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
	}
	c.JSON(ae.Status, body)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
