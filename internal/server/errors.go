package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	directdebitdomain "github.com/southtrip/caravel/internal/directdebit/domain"
	"github.com/southtrip/caravel/internal/directdebit/format"
)

// apiError is the wire shape of every non-2xx response. Code values are
// stable identifiers clients may branch on; Message is for humans.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *apiError) Error() string { return e.Message }

var (
	ErrNotFound           = &apiError{Status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}
	ErrTooManyRequests    = &apiError{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: "too many requests"}
	ErrRequestTooLarge    = &apiError{Status: http.StatusRequestEntityTooLarge, Code: "request_too_large", Message: "request body exceeds the allowed size"}
	ErrServiceUnavailable = &apiError{Status: http.StatusServiceUnavailable, Code: "service_unavailable", Message: "service unavailable"}
)

func invalidRequestError() *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "request could not be parsed"}
}

func newValidationError(field, code, message string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: code, Message: message, Field: field}
}

// serviceErrorStatus maps engine sentinels onto HTTP statuses. The sentinel
// text doubles as the wire code.
var serviceErrorStatus = map[error]int{
	directdebitdomain.ErrInvalidBusinessDate: http.StatusBadRequest,
	directdebitdomain.ErrInvalidBatchID:      http.StatusBadRequest,
	directdebitdomain.ErrInvalidDateRange:    http.StatusBadRequest,
	directdebitdomain.ErrInvalidDirection:    http.StatusBadRequest,
	directdebitdomain.ErrEmptyFile:           http.StatusBadRequest,
	format.ErrEmptyInput:                     http.StatusBadRequest,
	format.ErrMissingHeader:                  http.StatusBadRequest,
	format.ErrInvalidAmount:                  http.StatusBadRequest,
	directdebitdomain.ErrBatchNotFound:       http.StatusNotFound,
	directdebitdomain.ErrItemNotFound:        http.StatusNotFound,
	directdebitdomain.ErrBatchFileMissing:    http.StatusNotFound,
	directdebitdomain.ErrNotOutboundBatch:    http.StatusConflict,
	directdebitdomain.ErrAdapterNotFound:     http.StatusUnprocessableEntity,
}

// AbortWithError writes the error envelope for err and stops the handler
// chain. Unrecognized errors become an opaque 500; the real cause still
// reaches the request log through gin's error list.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	apiErr := toAPIError(err)
	c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
}

func toAPIError(err error) *apiError {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	for sentinel, status := range serviceErrorStatus {
		if errors.Is(err, sentinel) {
			return &apiError{Status: status, Code: sentinel.Error(), Message: err.Error()}
		}
	}
	return &apiError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "internal server error"}
}
