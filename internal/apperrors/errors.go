package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Codes shared by every handler.
const (
	CodeValidation      = "validation_error"
	CodeUnauthenticated = "unauthenticated"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeRateLimited     = "rate_limited"
	CodeInternal        = "internal_error"
)

// AppError carries an HTTP status and a client-safe message from services to handlers.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(status int, code, message string) *AppError {
	return &AppError{StatusCode: status, Code: code, Message: message}
}

func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, CodeValidation, message)
}

func Unauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, CodeUnauthenticated, message)
}

func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, CodeForbidden, message)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, CodeNotFound, message)
}

func Conflict(message string) *AppError {
	return New(http.StatusConflict, CodeConflict, message)
}

func TooManyRequests(message string) *AppError {
	return New(http.StatusTooManyRequests, CodeRateLimited, message)
}

// Internal wraps err behind a generic message.
func Internal(message string, err error) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Code: CodeInternal, Message: message, Err: err}
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// Respond writes err as {"error": message}. Unknown errors become a 500 with
// fallback as the message; the original error is only logged.
func Respond(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.StatusCode >= http.StatusInternalServerError {
			logger.Error(appErr.Message, zap.Error(appErr.Err), zap.String("path", c.FullPath()))
		}
		c.AbortWithStatusJSON(appErr.StatusCode, gin.H{"error": appErr.Message})
		return
	}

	logger.Error(fallback, zap.Error(err), zap.String("path", c.FullPath()))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": fallback})
}
