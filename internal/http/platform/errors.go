package platform

import "fmt"

type (
	// UpstreamError is any non-2xx platform API response other than
	// the documented duplicate conflict.
	UpstreamError struct {
		Endpoint   string
		StatusCode int
		reason     string
	}

	// ConflictError is the platform's duplicate-externalReference
	// signal (HTTP 409). It is an expected outcome for batch
	// importers re-running the same source and carries the id of
	// the pre-existing video record.
	ConflictError struct {
		ExternalReference string `json:"externalReference"`
		VideoID           string `json:"videoId"`
	}

	// TransferError is a failed raw-bytes PUT to a signed storage
	// URL.
	TransferError struct {
		URL        string
		StatusCode int
		reason     string
	}
)

func (err *UpstreamError) Error() string {
	if err.StatusCode != 0 {
		return fmt.Sprintf("platform request to %s failed (HTTP %d): %s", err.Endpoint, err.StatusCode, err.reason)
	}

	return fmt.Sprintf("platform request to %s failed: %s", err.Endpoint, err.reason)
}

func (err *ConflictError) Error() string {
	return fmt.Sprintf("external reference %s already ingested as video %s", err.ExternalReference, err.VideoID)
}

func (err *TransferError) Error() string {
	if err.StatusCode != 0 {
		return fmt.Sprintf("transfer to storage failed (HTTP %d): %s", err.StatusCode, err.reason)
	}

	return fmt.Sprintf("transfer to storage failed: %s", err.reason)
}
