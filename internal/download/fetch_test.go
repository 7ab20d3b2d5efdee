package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFetch_FollowsRedirect serves a 302 pointing at a 200 and expects the final body on disk.
func TestFetch_FollowsRedirect(t *testing.T) {
	t.Parallel()

	body := []byte("archive-bytes")

	mux := http.NewServeMux()
	mux.HandleFunc("/releases/download/v1.0.0/asset.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/objects/asset", http.StatusFound)
	})
	mux.HandleFunc("/objects/asset", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "asset.tar.gz")

	err := NewFetcher().Fetch(context.Background(), ts.URL+"/releases/download/v1.0.0/asset.tar.gz", dest)
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, body, got)
}

// TestFetch_RedirectAcrossHosts follows an absolute Location to another server.
func TestFetch_RedirectAcrossHosts(t *testing.T) {
	t.Parallel()

	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("from-storage"))
	}))
	defer storage.Close()

	front := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, storage.URL+"/blob", http.StatusMovedPermanently)
	}))
	defer front.Close()

	dest := filepath.Join(t.TempDir(), "asset")
	require.NoError(t, NewFetcher().Fetch(context.Background(), front.URL, dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "from-storage", string(got))
}

// TestFetch_RedirectChainFails leaves no file when the chain ends in an error status.
func TestFetch_RedirectChainFails(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/gone", http.StatusFound)
	})
	mux.HandleFunc("/gone", http.NotFound)

	ts := httptest.NewServer(mux)
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "asset")

	err := NewFetcher().Fetch(context.Background(), ts.URL+"/start", dest)
	require.ErrorIs(t, err, ErrDownloadFailed)

	var downloadErr *DownloadError
	require.True(t, errors.As(err, &downloadErr))
	require.Equal(t, http.StatusNotFound, downloadErr.StatusCode)
	require.Equal(t, ts.URL+"/gone", downloadErr.URL)
	require.NoFileExists(t, dest)
}

// TestFetch_BadStatusRemovesExistingFile verifies a stale destination does not survive a failed fetch.
func TestFetch_BadStatusRemovesExistingFile(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "asset")
	require.NoError(t, os.WriteFile(dest, []byte("stale"), 0o600))

	err := NewFetcher().Fetch(context.Background(), ts.URL, dest)
	require.ErrorIs(t, err, ErrDownloadFailed)
	require.Contains(t, err.Error(), "500")
	require.Contains(t, err.Error(), ts.URL)
	require.NoFileExists(t, dest)
}

// TestFetch_RedirectWithoutLocation treats a bare 3xx as a failed status.
func TestFetch_RedirectWithoutLocation(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMultipleChoices)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "asset")

	var downloadErr *DownloadError

	err := NewFetcher().Fetch(context.Background(), ts.URL, dest)
	require.True(t, errors.As(err, &downloadErr))
	require.Equal(t, http.StatusMultipleChoices, downloadErr.StatusCode)
	require.NoFileExists(t, dest)
}

// TestFetch_TooManyRedirects stops an endless chain after the configured number of hops.
func TestFetch_TooManyRedirects(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "asset")

	err := NewFetcher(WithMaxRedirects(3)).Fetch(context.Background(), ts.URL+"/loop", dest)
	require.ErrorIs(t, err, ErrTooManyRedirects)
	require.ErrorIs(t, err, ErrDownloadFailed)
	require.EqualValues(t, 4, hits.Load())
	require.NoFileExists(t, dest)
}

// TestFetch_TransportError surfaces the underlying cause.
func TestFetch_TransportError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	address := ts.URL
	ts.Close()

	dest := filepath.Join(t.TempDir(), "asset")

	err := NewFetcher().Fetch(context.Background(), address, dest)
	require.ErrorIs(t, err, ErrDownloadFailed)

	var downloadErr *DownloadError
	require.True(t, errors.As(err, &downloadErr))
	require.Zero(t, downloadErr.StatusCode)
	require.Error(t, downloadErr.Unwrap())
	require.NoFileExists(t, dest)
}

// TestFetch_CanceledContext aborts before any request is answered.
func TestFetch_CanceledContext(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("late"))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := filepath.Join(t.TempDir(), "asset")

	err := NewFetcher().Fetch(ctx, ts.URL, dest)
	require.ErrorIs(t, err, context.Canceled)
	require.NoFileExists(t, dest)
}

// TestFetch_SendsUserAgent checks the configured User-Agent header.
func TestFetch_SendsUserAgent(t *testing.T) {
	t.Parallel()

	var agent atomic.Value

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent.Store(r.UserAgent())
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "nested", "asset")

	require.NoError(t, NewFetcher(WithUserAgent("binthere-install/test")).Fetch(context.Background(), ts.URL, dest))
	require.Equal(t, "binthere-install/test", agent.Load())
	require.FileExists(t, dest)
}

// TestFetch_WithHTTPClient uses the given client's transport and leaves its redirect policy alone.
func TestFetch_WithHTTPClient(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/asset", http.StatusFound)
	})
	mux.HandleFunc("/asset", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("over-tls"))
	})

	ts := httptest.NewTLSServer(mux)
	defer ts.Close()

	client := ts.Client()
	dest := filepath.Join(t.TempDir(), "asset")

	err := NewFetcher().Fetch(context.Background(), ts.URL+"/start", dest)
	require.ErrorIs(t, err, ErrDownloadFailed)

	require.NoError(t, NewFetcher(WithHTTPClient(client)).Fetch(context.Background(), ts.URL+"/start", dest))
	require.Nil(t, client.CheckRedirect)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "over-tls", string(got))
}
