package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const (
	// DefaultMaxRedirects is the hop cap used when none is configured.
	DefaultMaxRedirects = 10

	// destFileMode is the mode of the downloaded archive.
	destFileMode = 0o644
)

// Fetcher downloads a URL into a local file.
type Fetcher struct {
	// client performs requests; its redirect policy is replaced by ours.
	client *http.Client
	// maxRedirects is the number of redirect hops tolerated per Fetch.
	maxRedirects int
	// userAgent is sent with every request when set.
	userAgent string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMaxRedirects sets the redirect hop cap.
func WithMaxRedirects(hops int) Option {
	return func(f *Fetcher) {
		if hops > 0 {
			f.maxRedirects = hops
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(f *Fetcher) {
		f.userAgent = userAgent
	}
}

// WithHTTPClient uses client's transport and timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			clone := *client
			f.client = &clone
		}
	}
}

// NewFetcher creates a Fetcher. Redirects are never followed by the client itself.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:       new(http.Client),
		maxRedirects: DefaultMaxRedirects,
	}

	for _, opt := range opts {
		opt(f)
	}

	f.client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return f
}

// Fetch downloads rawURL into destPath, following up to maxRedirects redirects.
// On success destPath holds the complete final response body; on failure it does not exist.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, destPath string) error {
	current := rawURL

	for hop := 0; ; hop++ {
		next, err := f.fetchOnce(ctx, current, destPath)
		if err != nil {
			removeFile(destPath)
			return err
		}

		if next == "" {
			return nil
		}

		if hop >= f.maxRedirects {
			removeFile(destPath)

			return &DownloadError{
				URL: rawURL,
				Err: fmt.Errorf("%w: more than %d hops", ErrTooManyRedirects, f.maxRedirects),
			}
		}

		current = next
	}
}

// fetchOnce performs a single request. It returns the next URL for a redirect,
// or an empty string once the body has been written to destPath.
func (f *Fetcher) fetchOnce(ctx context.Context, rawURL, destPath string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return "", &DownloadError{URL: rawURL, Err: err}
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	response, err := f.client.Do(req)
	if err != nil {
		return "", &DownloadError{URL: rawURL, Err: err}
	}

	defer func() {
		_ = response.Body.Close()
	}()

	switch {
	case isRedirect(response):
		// A previous hop never leaves a file behind, but the destination may predate the fetch.
		removeFile(destPath)

		location, err := response.Location()
		if err != nil {
			return "", &DownloadError{URL: rawURL, Err: fmt.Errorf("redirect location: %w", err)}
		}

		return location.String(), nil
	case response.StatusCode == http.StatusOK:
		if err = writeBody(response.Body, destPath); err != nil {
			return "", &DownloadError{URL: rawURL, Err: err}
		}

		return "", nil
	default:
		return "", &DownloadError{URL: rawURL, StatusCode: response.StatusCode}
	}
}

// isRedirect reports a 3xx response that names where to go next.
func isRedirect(response *http.Response) bool {
	return response.StatusCode >= http.StatusMultipleChoices &&
		response.StatusCode < http.StatusBadRequest &&
		response.Header.Get("Location") != ""
}

// writeBody streams body into destPath and flushes it to disk.
func writeBody(body io.Reader, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	file, err := os.OpenFile(filepath.Clean(destPath), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, destFileMode)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	if _, err = io.Copy(file, body); err != nil {
		_ = file.Close()
		return fmt.Errorf("write body: %w", err)
	}

	if err = file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("flush destination: %w", err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}

	return nil
}

// removeFile deletes a partial or stale destination. A missing file is fine.
func removeFile(path string) {
	_ = os.Remove(path)
}
