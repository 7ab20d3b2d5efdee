package download

import (
	"errors"
	"fmt"
)

var (
	// ErrDownloadFailed is matched by every DownloadError.
	ErrDownloadFailed = errors.New("download failed")
	// ErrTooManyRedirects is wrapped by a DownloadError when the hop cap is exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// DownloadError describes a failed fetch.
// StatusCode is set for unexpected HTTP responses, Err for transport and local failures.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("download %s: unexpected HTTP status %d", e.URL, e.StatusCode)
	}

	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDownloadFailed) hold.
func (e *DownloadError) Is(target error) bool {
	return target == ErrDownloadFailed
}
