// Package api exposes the workflow engine over HTTP with gin. Every
// response uses the same envelope so clients parse one shape.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
)

// Envelope is the uniform response body
type Envelope struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
	Success bool        `json:"success"`
}

// respond writes a success envelope
func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Envelope{
		Message: message,
		Data:    data,
		Success: true,
	})
}

// respondError maps a classified error to its HTTP status and writes a
// failure envelope. Internal detail never leaks; classified errors carry
// their own client-safe message.
func respondError(c *gin.Context, err error) {
	message, details := apperrors.Public(err)
	c.JSON(apperrors.HTTPStatus(err), Envelope{
		Message: message,
		Error:   details,
		Success: false,
	})
}

// respondValidation writes a 400 for malformed request bodies
func respondValidation(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Envelope{
		Message: message,
		Success: false,
	})
}
