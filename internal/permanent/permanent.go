package permanent

import (
	"errors"
	"fmt"
	"net/http"
)

// Error marks delivery failures that retrying cannot fix.
// Params: wrapped root cause.
// Returns: typed permanent error marker.
type Error struct {
	Err error
}

// Error returns wrapped error message.
func (e Error) Error() string {
	if e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

// Unwrap exposes wrapped cause for errors.Is/errors.As.
func (e Error) Unwrap() error {
	return e.Err
}

// Permanent marks error as non-retryable.
func (Error) Permanent() bool {
	return true
}

// Mark wraps error with permanent marker.
// Params: source error.
// Returns: wrapped error or nil.
func Mark(err error) error {
	if err == nil {
		return nil
	}
	return Error{Err: err}
}

// Is reports whether error has permanent marker.
// Params: candidate error.
// Returns: true when non-retryable marker is present.
func Is(err error) bool {
	if err == nil {
		return false
	}
	type marker interface {
		Permanent() bool
	}
	var tagged marker
	if !errors.As(err, &tagged) {
		return false
	}
	return tagged.Permanent()
}

// HTTPStatus classifies a non-2xx response status for delivery retries.
// Client errors are permanent except timeout, conflict, and rate limiting.
// Params: error prefix and HTTP status code.
// Returns: error describing status, marked permanent when retrying cannot help.
func HTTPStatus(prefix string, status int, detail string) error {
	err := fmt.Errorf("%s status=%d", prefix, status)
	if detail != "" {
		err = fmt.Errorf("%s status=%d body=%s", prefix, status, detail)
	}
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusConflict, status == http.StatusTooManyRequests:
		return err
	case status >= 400 && status < 500:
		return Mark(err)
	default:
		return err
	}
}
