package fetch

import (
	"fmt"
	"net/http"
)

// RequestError is returned once every attempt of a request has failed.
type RequestError struct {
	Method string
	URL    string
	// StatusCode is 0 when the last attempt failed at the transport level.
	StatusCode int
	// Body of the last response, undecoded.
	Body     string
	Attempts int
	// Err is the transport error of the last attempt, if any.
	Err error
}

func newRequestError(req Request, last result, attempts int) *RequestError {
	return &RequestError{
		Method:     req.method(),
		URL:        req.URL,
		StatusCode: last.status,
		Body:       string(last.body),
		Attempts:   attempts,
		Err:        last.err,
	}
}

// RateLimited reports whether the server turned the request away with a 503,
// which this site does when it thinks it is being scraped too fast.
func (e *RequestError) RateLimited() bool {
	return e.StatusCode == http.StatusServiceUnavailable
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed after %d attempt(s): %s", e.Method, e.URL, e.Attempts, e.Err)
	}
	if e.RateLimited() {
		return fmt.Sprintf(
			"%s %s failed after %d attempt(s): status %d, probably banned temporarily for requesting too often",
			e.Method, e.URL, e.Attempts, e.StatusCode,
		)
	}
	return fmt.Sprintf("%s %s failed after %d attempt(s): status %d", e.Method, e.URL, e.Attempts, e.StatusCode)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
