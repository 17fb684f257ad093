package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/shellbridge/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/shellbridge/internal/providers/params"
	"github.com/GriffinCanCode/shellbridge/internal/security"
	"github.com/GriffinCanCode/shellbridge/internal/service"
	"github.com/GriffinCanCode/shellbridge/internal/shared/utils"
	"github.com/GriffinCanCode/shellbridge/internal/terminal"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, terminal.ErrNotFound), errors.Is(err, service.ErrUnknownTool):
		return http.StatusNotFound
	case errors.Is(err, terminal.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, terminal.ErrResourceExhausted):
		return http.StatusTooManyRequests
	case errors.Is(err, resilience.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, security.ErrDenied):
		return http.StatusForbidden
	case errors.Is(err, terminal.ErrInvalidArgument),
		errors.Is(err, params.ErrInvalid),
		errors.Is(err, utils.ErrInvalid),
		errors.Is(err, service.ErrInvalidToolID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}
