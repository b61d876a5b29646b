package webserver

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"officeconv/internal/runs"
	"officeconv/internal/soffice"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeConverter  ErrorType = "converter"
	ErrorTypeInternal   ErrorType = "internal"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Type   ErrorType `json:"type"`
	Code   string    `json:"code"`
	Detail string    `json:"detail"`
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}

func invalidArgument(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

// CategorizeError maps an error onto an HTTP status and a structured
// response body.
func CategorizeError(err error) (int, ErrorResponse) {
	var vErr *validationError

	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, ErrorResponse{
			Type:   ErrorTypeValidation,
			Code:   "invalid_request",
			Detail: err.Error(),
		}

	case errors.Is(err, runs.ErrRunActive):
		return http.StatusConflict, ErrorResponse{
			Type:   ErrorTypeConflict,
			Code:   "run_active",
			Detail: err.Error(),
		}

	case errors.Is(err, runs.ErrRunNotFound):
		return http.StatusNotFound, ErrorResponse{
			Type:   ErrorTypeNotFound,
			Code:   "run_not_found",
			Detail: err.Error(),
		}

	case errors.Is(err, soffice.ErrBinaryNotFound):
		return http.StatusServiceUnavailable, ErrorResponse{
			Type:   ErrorTypeConverter,
			Code:   "converter_unavailable",
			Detail: err.Error(),
		}

	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound, ErrorResponse{
			Type:   ErrorTypeNotFound,
			Code:   "file_not_found",
			Detail: err.Error(),
		}

	default:
		return http.StatusInternalServerError, ErrorResponse{
			Type:   ErrorTypeInternal,
			Code:   "internal_error",
			Detail: err.Error(),
		}
	}
}

func writeError(c *gin.Context, err error) {
	status, resp := CategorizeError(err)
	c.AbortWithStatusJSON(status, resp)
}
