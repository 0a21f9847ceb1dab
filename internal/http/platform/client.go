// Package platform is a thin client for the content platform's
// HTTP API: creator upserts, upload-session creation and the raw
// signed-URL transfers that follow. The API itself is treated as a
// black box; this package only encodes the documented contract.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	creatorsEndpointTemplate = "%s/api/v1/creators"
	uploadEndpointTemplate   = "%s/api/v1/upload"

	apiKeyHeader = "x-api-key"
)

type (
	Config struct {
		BaseURL string
		APIKey  string

		// Timeout applies per request. Signed-URL transfers of
		// large files are exempt; they are bounded only by the
		// caller's context.
		Timeout time.Duration
	}

	Client struct {
		config   Config
		client   *http.Client
		transfer *http.Client
	}

	UpsertCreatorRequest struct {
		Username    string   `json:"username"`
		DisplayName string   `json:"displayName"`
		Aliases     []string `json:"aliases,omitempty"`
		Image       string   `json:"image,omitempty"`
		Birthday    string   `json:"birthday,omitempty"`
		Links       []string `json:"links,omitempty"`
	}

	UpsertCreatorResponse struct {
		Creator struct {
			ID string `json:"id"`
		} `json:"creator"`
		Action string `json:"action"`
	}

	CreatorAssignment struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	}

	CreateUploadRequest struct {
		Title                string              `json:"title"`
		UserID               string              `json:"userId"`
		Filename             string              `json:"filename"`
		Description          string              `json:"description,omitempty"`
		ContentType          string              `json:"contentType,omitempty"`
		ThumbnailFilename    string              `json:"thumbnailFilename,omitempty"`
		ThumbnailContentType string              `json:"thumbnailContentType,omitempty"`
		Creators             []CreatorAssignment `json:"creators,omitempty"`
		Tags                 []string            `json:"tags,omitempty"`
		ViewCount            int64               `json:"viewCount,omitempty"`
		ExternalReference    string              `json:"externalReference,omitempty"`
		CreatedAt            string              `json:"createdAt,omitempty"`
	}

	// UploadSession is the server-issued upload slot. The signed
	// URLs are single-use, time-limited capabilities and should be
	// exercised promptly.
	UploadSession struct {
		VideoID            string `json:"videoId"`
		UploadURL          string `json:"uploadUrl"`
		ThumbnailUploadURL string `json:"thumbnailUploadUrl"`
		Bucket             string `json:"bucket"`
		Key                string `json:"key"`
	}
)

func NewClient(config Config) *Client {
	return &Client{
		config:   config,
		client:   &http.Client{Timeout: config.Timeout},
		transfer: &http.Client{},
	}
}

// UpsertCreator creates or updates a creator record keyed by
// username and returns the platform-assigned id.
func (client *Client) UpsertCreator(ctx context.Context, request UpsertCreatorRequest) (*UpsertCreatorResponse, error) {
	endpoint := fmt.Sprintf(creatorsEndpointTemplate, client.config.BaseURL)

	var response UpsertCreatorResponse
	if err := client.postJSON(ctx, endpoint, request, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// CreateUpload requests a signed upload slot for a new video. A 409
// response signals that the request's external reference has already
// been ingested and is surfaced as a *ConflictError carrying the
// pre-existing video's id.
func (client *Client) CreateUpload(ctx context.Context, request CreateUploadRequest) (*UploadSession, error) {
	endpoint := fmt.Sprintf(uploadEndpointTemplate, client.config.BaseURL)

	var session UploadSession
	if err := client.postJSON(ctx, endpoint, request, &session); err != nil {
		return nil, err
	}

	return &session, nil
}

// PutObject streams raw bytes to a signed storage URL. Any non-2xx
// response or transport failure is a *TransferError; this transfer is
// single-shot and not resumable.
func (client *Client) PutObject(ctx context.Context, signedURL string, contentType string, body io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, body)
	if err != nil {
		return &TransferError{URL: signedURL, reason: err.Error()}
	}

	req.Header.Set("Content-Type", contentType)
	req.ContentLength = size

	resp, err := client.transfer.Do(req)
	if err != nil {
		return &TransferError{URL: signedURL, reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransferError{URL: signedURL, StatusCode: resp.StatusCode, reason: "storage rejected the transfer"}
	}

	return nil
}

func (client *Client) postJSON(ctx context.Context, endpoint string, request interface{}, response interface{}) error {
	payload, err := json.Marshal(request)
	if err != nil {
		return &UpstreamError{Endpoint: endpoint, reason: fmt.Sprintf("cannot encode request body: %s", err.Error())}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &UpstreamError{Endpoint: endpoint, reason: err.Error()}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, client.config.APIKey)

	resp, err := client.client.Do(req)
	if err != nil {
		return &UpstreamError{Endpoint: endpoint, reason: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, reason: fmt.Sprintf("cannot read response body: %s", err.Error())}
	}

	if resp.StatusCode == http.StatusConflict {
		var conflict ConflictError
		if err := json.Unmarshal(respBody, &conflict); err != nil {
			return &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, reason: "conflict response could not be unmarshalled"}
		}

		return &conflict
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, reason: upstreamMessage(respBody)}
	}

	if err := json.Unmarshal(respBody, response); err != nil {
		return &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, reason: fmt.Sprintf("response JSON could not be unmarshalled: %s", err.Error())}
	}

	return nil
}

// upstreamMessage extracts the platform's error message from a
// non-2xx body, falling back to the raw body when it isn't the
// documented {error: ...} shape.
func upstreamMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}

	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		} else if payload.Message != "" {
			return payload.Message
		}
	}

	if len(body) == 0 {
		return "no response body"
	}

	return string(body)
}
