package remote

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNetwork      = errors.New("storefront api unreachable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrRejected     = errors.New("request rejected")
	ErrBadStatus    = errors.New("storefront api error")
)

// StatusError is a non-2xx answer from the API. It unwraps to one of the sentinel errors above.
type StatusError struct {
	Op      string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status=%d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: status=%d: %s", e.Op, e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return ErrUnauthorized
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status >= 400 && e.Status < 500:
		return ErrRejected
	default:
		return ErrBadStatus
	}
}

// Status extracts the HTTP status from err, or 0 when err is not a StatusError.
func Status(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
