package cloud

import (
	"errors"
	"fmt"
)

// Domain-specific errors for the cloud client.
var (
	// ErrUnexpectedResponse indicates a 2xx response missing fields the
	// client depends on.
	ErrUnexpectedResponse = errors.New("cloud: unexpected response")
)

// maxErrorBody caps how much of a failed response body is kept in a StatusError.
const maxErrorBody = 512

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("cloud: %s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("cloud: %s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}
