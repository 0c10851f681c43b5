package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches any [*StatusError] with status 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden matches any [*StatusError] with status 403.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound matches any [*StatusError] with status 404.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest matches any [*StatusError] with status 400.
	ErrBadRequest = errors.New("bad request")
	// ErrServer matches any [*StatusError] with a 5xx status.
	ErrServer = errors.New("server error")
	// ErrInvalidBaseURL is returned by [NewClient] for an unusable base URL.
	ErrInvalidBaseURL = errors.New("invalid api base url")
)

const maxErrorBody = 4 << 10

// StatusError is returned by [Client] for every non-2xx response.
type StatusError struct {
	StatusCode int
	Method     string
	URL        string
	RequestID  string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is lets errors.Is match the status sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrBadRequest:
		return e.StatusCode == http.StatusBadRequest
	case ErrServer:
		return e.StatusCode >= 500
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not a
// [*StatusError].
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
