package service

import "net/http"

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	StatusCode int
	Wrapped    error
}

func (e *HTTPError) Error() string {
	return e.Wrapped.Error()
}

func (e *HTTPError) Unwrap() error {
	return e.Wrapped
}

func httpError(statusCode int, err error) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Wrapped:    err,
	}
}

// StatusOf returns the status code carried by err, or 500.
func StatusOf(err error) int {
	if he, ok := asHTTPError(err); ok {
		return he.StatusCode
	}
	return http.StatusInternalServerError
}
