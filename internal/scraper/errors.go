package scraper

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchTimeout means a fetch attempt exceeded its deadline.
	ErrFetchTimeout = errors.New("fetch timed out")

	// ErrUnexpectedFormat means the source came back in a format the caller did not ask for.
	ErrUnexpectedFormat = errors.New("unexpected source format")

	// ErrBodyTooLarge means a response body exceeded the read limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrParseFailure marks a structured-data block or record that was skipped.
	ErrParseFailure = errors.New("structured data parse failure")
)

// HTTPStatusError is returned when the fallback source answers with a non-2xx status.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("failed to fetch events from %s: unexpected status code: %d", e.URL, e.StatusCode)
}
