package media

import (
	"path/filepath"
	"strings"
)

const fallbackContentType = "application/octet-stream"

// contentTypes is the fixed extension table the platform recognises.
// Anything outside it is uploaded as a generic binary blob.
var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ResolveContentType maps a file path's extension to its MIME type.
// The mapping is total; unrecognised extensions resolve to
// application/octet-stream rather than failing.
func ResolveContentType(path string) string {
	if contentType, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return contentType
	}

	return fallbackContentType
}
