package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

var (
	ErrUnreachable       = fmt.Errorf("user unreachable")
	ErrProtocolViolation = fmt.Errorf("protocol violation")
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrInvalidToken      = fmt.Errorf("invalid token")
	ErrMessageNotFound   = fmt.Errorf("message not found")
	ErrForbidden         = fmt.Errorf("forbidden")
	ErrInvalidRequest    = fmt.Errorf("invalid request")
)

// MapToHTTPStatus translates a domain error into the status code returned by the REST boundary.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case stderrors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case stderrors.Is(err, ErrMessageNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, ErrInvalidRequest), stderrors.Is(err, ErrProtocolViolation):
		return http.StatusBadRequest
	case stderrors.Is(err, ErrUnreachable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
