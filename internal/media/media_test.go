package media_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/videohaven/ingest/internal/media"
)

func TestResolveContentType(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"clip.mp4", "video/mp4"},
		{"/some/dir/movie.MOV", "video/quicktime"},
		{"archive.mkv", "video/x-matroska"},
		{"stream.webm", "video/webm"},
		{"old.avi", "video/x-msvideo"},
		{"thumb.jpg", "image/jpeg"},
		{"thumb.JPEG", "image/jpeg"},
		{"thumb.png", "image/png"},
		{"anim.gif", "image/gif"},
		{"modern.webp", "image/webp"},
		{"mystery.xyz", "application/octet-stream"},
		{"no-extension", "application/octet-stream"},
		{"", "application/octet-stream"},
	}

	for _, test := range tests {
		t.Run(test.path, func(t *testing.T) {
			assert.Equal(t, test.expected, media.ResolveContentType(test.path))
		})
	}
}

func TestNewAsset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0o644))

	asset, err := media.NewAsset(path, false)
	require.NoError(t, err)

	assert.Equal(t, path, asset.Path)
	assert.Equal(t, "video/mp4", asset.ContentType)
	assert.EqualValues(t, 2048, asset.SizeBytes)
	assert.Equal(t, "clip.mp4", asset.Filename())
	assert.False(t, asset.Temporary)
}

func TestNewAsset_MissingFile(t *testing.T) {
	_, err := media.NewAsset(filepath.Join(t.TempDir(), "absent.mp4"), false)
	assert.Error(t, err)
}

func TestAssetRelease(t *testing.T) {
	t.Run("temporary asset removes its file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fetched.mp4")
		require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

		asset, err := media.NewAsset(path, true)
		require.NoError(t, err)

		asset.Release()
		assert.NoFileExists(t, path)

		// Releasing twice is harmless.
		asset.Release()
	})

	t.Run("non-temporary asset keeps its file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "local.mp4")
		require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

		asset, err := media.NewAsset(path, false)
		require.NoError(t, err)

		asset.Release()
		assert.FileExists(t, path)
	})

	t.Run("nil asset", func(t *testing.T) {
		var asset *media.Asset
		asset.Release()
	})
}
