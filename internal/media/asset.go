package media

import (
	"fmt"
	"os"
	"path/filepath"
)

// Asset is a video or thumbnail that has been materialised on the
// local filesystem and is ready to be transferred. Temporary assets
// (those fetched from a remote source) are owned by whoever created
// them and must be released once the transfer has concluded.
type Asset struct {
	Path        string
	ContentType string
	SizeBytes   int64
	Temporary   bool
}

// NewAsset stats the file at the given path and wraps it with its
// resolved content type and size. The temporary flag records whether
// Release should remove the underlying file.
func NewAsset(path string, temporary bool) (*Asset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat asset %s: %w", path, err)
	}

	return &Asset{
		Path:        path,
		ContentType: ResolveContentType(path),
		SizeBytes:   info.Size(),
		Temporary:   temporary,
	}, nil
}

// Filename returns the base name of the asset, which is what the
// platform records against the upload.
func (asset *Asset) Filename() string {
	return filepath.Base(asset.Path)
}

// Release removes the underlying file if (and only if) the asset is
// temporary. It is safe to call on a nil asset and on an asset whose
// file has already been removed.
func (asset *Asset) Release() {
	if asset == nil || !asset.Temporary {
		return
	}

	os.Remove(asset.Path)
}
