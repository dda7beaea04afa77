package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/voicerelay/internal/utils"
)

const LivenessBody = "Audio Transcription Service Running"

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.AbortWithStatusJSON(status, APIError{
			Code:    ae.Code,
			Message: ae.Message,
		})
		return
	}

	c.AbortWithStatusJSON(status, APIError{
		Code:    utils.CodeInternal,
		Message: http.StatusText(status),
	})
}

// Liveness answers every non-socket request.
func Liveness(c *gin.Context) {
	c.String(http.StatusOK, LivenessBody)
}

// Recovery turns a handler panic into an INTERNAL error response.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		writeError(c, utils.E(utils.CodeInternal, "http", "internal error", nil))
	})
}
