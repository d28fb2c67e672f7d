// Package respond turns workflow errors into JSON error responses.
package respond

import (
	"errors"
	"net/http"

	"studio-orders/internal/domain/orders"
	"studio-orders/internal/logging"

	"github.com/gin-gonic/gin"
)

var statusByCode = map[orders.Code]int{
	orders.CodeInvalidTransition:  http.StatusConflict,
	orders.CodeStaleState:         http.StatusConflict,
	orders.CodeBudgetExhausted:    http.StatusUnprocessableEntity,
	orders.CodeNotFound:           http.StatusNotFound,
	orders.CodeValidation:         http.StatusBadRequest,
	orders.CodeForbidden:          http.StatusForbidden,
	orders.CodeConfirmedVersion:   http.StatusConflict,
	orders.CodeUploadFailed:       http.StatusBadGateway,
	orders.CodeNotificationFailed: http.StatusBadGateway,
}

// Status is the HTTP status for err; untyped errors are 500.
func Status(err error) int {
	if s, ok := statusByCode[orders.CodeOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error writes err and aborts the request. Internal errors are logged and
// answered with a generic message.
func Error(c *gin.Context, err error) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		logging.Module("api").Error("request failed", "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}

	var e *orders.Error
	errors.As(err, &e)
	body := gin.H{"error": e.Error(), "code": e.Code}
	switch e.Code {
	case orders.CodeBudgetExhausted:
		body["blocked"] = true
	case orders.CodeStaleState:
		body["retryable"] = true
	}
	c.AbortWithStatusJSON(status, body)
}

// BadRequest answers malformed input that never reached the workflow.
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "code": orders.CodeValidation})
}
