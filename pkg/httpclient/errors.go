package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is a non-2xx response from a backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// StatusCode returns the HTTP status of err if it is, or wraps, a
// *StatusError, and 0 otherwise.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the backend, which Ollama
// returns for models that are not pulled.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
