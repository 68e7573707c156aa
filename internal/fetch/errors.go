package fetch

import (
	"fmt"
	"net/http"
)

// StatusError reports a non-2xx response that was not (or no longer) retried.
type StatusError struct {
	URL        string
	Method     string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Temporary reports whether the status is one the client retries.
func (e *StatusError) Temporary() bool { return retryableStatus(e.StatusCode) }
