package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/videohaven/ingest/pkg/logger"
)

var log = logger.Get("Fetch")

const copyChunkSize = 64 * 1024

// progressStep is the minimum percentage delta between two progress
// reports; finer-grained reporting is just noise for multi-GB pulls.
const progressStep = 5

type (
	// ProgressSink receives download progress as a monotonically
	// increasing percentage. No reports are made when the remote
	// does not advertise a content length.
	ProgressSink interface {
		Progress(source string, percent int)
	}

	Config struct {
		// TempDir overrides where fetched files are created.
		// Empty means the OS default temp directory.
		TempDir string

		// Timeout bounds the entire download, headers to last
		// byte. Zero means no client-side bound (the context
		// still applies).
		Timeout time.Duration
	}

	// Fetcher downloads remote resources into uniquely named
	// temporary files. Ownership of the file passes to the caller,
	// which must remove it when no longer needed.
	Fetcher struct {
		config Config
		client *http.Client
		sink   ProgressSink
	}

	FetchError struct {
		URL        string
		StatusCode int
		reason     string
	}
)

func (err *FetchError) Error() string {
	if err.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s (HTTP %d): %s", err.URL, err.StatusCode, err.reason)
	}

	return fmt.Sprintf("failed to fetch %s: %s", err.URL, err.reason)
}

// IsRemote reports whether the given video/thumbnail source is a
// remote URL rather than a local path. The decision is made purely
// on the presence of a URL scheme and host, never by probing the
// filesystem.
func IsRemote(source string) bool {
	parsed, err := url.Parse(source)
	return err == nil && parsed.Scheme != "" && parsed.Host != ""
}

// NewFetcher creates a Fetcher using the provided config. The sink
// may be nil, in which case progress is reported to the package
// logger.
func NewFetcher(config Config, sink ProgressSink) *Fetcher {
	if sink == nil {
		sink = &loggerSink{}
	}

	return &Fetcher{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		sink:   sink,
	}
}

// Fetch downloads the resource at rawURL to a newly created temp
// file and returns its path. The file name preserves the URL path's
// extension where one exists, falling back to defaultExt so the
// content type can still be resolved from the name. The returned
// file is owned by the caller on success; on failure no file is
// left behind.
func (fetcher *Fetcher) Fetch(ctx context.Context, rawURL string, defaultExt string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", &FetchError{URL: rawURL, reason: "source is not a valid absolute URL"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{URL: rawURL, reason: err.Error()}
	}

	resp, err := fetcher.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: rawURL, reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{URL: rawURL, StatusCode: resp.StatusCode, reason: "non-2xx response"}
	}

	ext := path.Ext(parsed.Path)
	if ext == "" {
		ext = defaultExt
	}

	tempDir := fetcher.config.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	tempPath := filepath.Join(tempDir, "ingest-"+uuid.NewString()+ext)
	file, err := os.Create(tempPath)
	if err != nil {
		return "", &FetchError{URL: rawURL, reason: fmt.Sprintf("cannot create temp file: %s", err.Error())}
	}

	log.Emit(logger.INFO, "Fetching %s -> %s\n", rawURL, tempPath)
	if err := fetcher.copyWithProgress(file, resp.Body, rawURL, resp.ContentLength); err != nil {
		file.Close()
		os.Remove(tempPath)
		return "", &FetchError{URL: rawURL, reason: err.Error()}
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return "", &FetchError{URL: rawURL, reason: err.Error()}
	}

	return tempPath, nil
}

// copyWithProgress streams body to dst in bounded chunks, reporting
// percentage progress when the total size is known. An unknown total
// simply disables reporting; it is not an error.
func (fetcher *Fetcher) copyWithProgress(dst io.Writer, body io.Reader, source string, total int64) error {
	buffer := make([]byte, copyChunkSize)

	var written int64
	lastReported := -progressStep
	for {
		n, readErr := body.Read(buffer)
		if n > 0 {
			if _, err := dst.Write(buffer[:n]); err != nil {
				return err
			}

			written += int64(n)
			if total > 0 {
				percent := int(written * 100 / total)
				if percent >= lastReported+progressStep {
					fetcher.sink.Progress(source, percent)
					lastReported = percent
				}
			}
		}

		if readErr == io.EOF {
			break
		} else if readErr != nil {
			return readErr
		}
	}

	if total > 0 && lastReported < 100 {
		fetcher.sink.Progress(source, 100)
	}

	return nil
}

type loggerSink struct{}

func (sink *loggerSink) Progress(source string, percent int) {
	log.Emit(logger.PROGRESS, "Download %d%% complete (%s)\n", percent, source)
}
