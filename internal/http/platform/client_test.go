package platform_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/videohaven/ingest/internal/http/platform"
)

func newTestClient(handler http.Handler) (*platform.Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := platform.NewClient(platform.Config{BaseURL: server.URL, APIKey: "test-key"})

	return client, server
}

func TestUpsertCreator(t *testing.T) {
	var receivedBody map[string]interface{}
	var receivedKey string
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/creators", r.URL.Path)
		receivedKey = r.Header.Get("x-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&receivedBody))

		fmt.Fprint(w, `{"creator": {"id": "c-100"}, "action": "created"}`)
	}))
	defer server.Close()

	response, err := client.UpsertCreator(context.Background(), platform.UpsertCreatorRequest{
		Username:    "alice",
		DisplayName: "Alice",
		Aliases:     []string{"al"},
	})
	require.NoError(t, err)

	assert.Equal(t, "c-100", response.Creator.ID)
	assert.Equal(t, "created", response.Action)
	assert.Equal(t, "test-key", receivedKey)
	assert.Equal(t, "alice", receivedBody["username"])
	assert.NotContains(t, receivedBody, "image", "empty optional fields should be omitted")
}

func TestUpsertCreator_UpstreamFailure(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error": "database unavailable"}`)
	}))
	defer server.Close()

	_, err := client.UpsertCreator(context.Background(), platform.UpsertCreatorRequest{Username: "alice"})

	var upstream *platform.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusInternalServerError, upstream.StatusCode)
	assert.Contains(t, upstream.Error(), "database unavailable")
}

func TestCreateUpload(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/upload", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Test", body["title"])
		assert.Equal(t, "u1", body["userId"])
		assert.Equal(t, "clip.mp4", body["filename"])

		fmt.Fprint(w, `{"videoId": "v-1", "uploadUrl": "https://storage/signed", "bucket": "media", "key": "v-1/clip.mp4"}`)
	}))
	defer server.Close()

	session, err := client.CreateUpload(context.Background(), platform.CreateUploadRequest{
		Title:    "Test",
		UserID:   "u1",
		Filename: "clip.mp4",
	})
	require.NoError(t, err)

	assert.Equal(t, "v-1", session.VideoID)
	assert.Equal(t, "https://storage/signed", session.UploadURL)
	assert.Empty(t, session.ThumbnailUploadURL)
	assert.Equal(t, "media", session.Bucket)
	assert.Equal(t, "v-1/clip.mp4", session.Key)
}

func TestCreateUpload_Conflict(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"externalReference": "pmvhaven:abc", "videoId": "v-existing"}`)
	}))
	defer server.Close()

	_, err := client.CreateUpload(context.Background(), platform.CreateUploadRequest{
		Title:             "Test",
		UserID:            "u1",
		Filename:          "clip.mp4",
		ExternalReference: "pmvhaven:abc",
	})

	var conflict *platform.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "pmvhaven:abc", conflict.ExternalReference)
	assert.Equal(t, "v-existing", conflict.VideoID)
}

func TestPutObject(t *testing.T) {
	var receivedBody string
	var receivedContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		receivedContentType = r.Header.Get("Content-Type")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		receivedBody = string(body)
	}))
	defer server.Close()

	client := platform.NewClient(platform.Config{BaseURL: "unused", APIKey: "unused"})

	payload := "raw video bytes"
	err := client.PutObject(context.Background(), server.URL+"/signed", "video/mp4", strings.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)

	assert.Equal(t, payload, receivedBody)
	assert.Equal(t, "video/mp4", receivedContentType)
}

func TestPutObject_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := platform.NewClient(platform.Config{BaseURL: "unused", APIKey: "unused"})

	err := client.PutObject(context.Background(), server.URL+"/signed", "video/mp4", strings.NewReader("bytes"), 5)

	var transfer *platform.TransferError
	require.ErrorAs(t, err, &transfer)
	assert.Equal(t, http.StatusForbidden, transfer.StatusCode)
}
