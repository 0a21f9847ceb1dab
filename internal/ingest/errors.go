package ingest

import "fmt"

type (
	// ValidationError is malformed or unusable input caught before
	// any upload session is requested: missing required fields, a
	// negative view count, or a video asset too small to be a real
	// recording.
	ValidationError struct {
		reason string
	}

	// NotFoundError is a referenced local file that does not exist.
	NotFoundError struct {
		Path string
	}
)

func (err *ValidationError) Error() string {
	return fmt.Sprintf("invalid upload request: %s", err.reason)
}

func (err *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", err.Path)
}
