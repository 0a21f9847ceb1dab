package ingest

import "github.com/videohaven/ingest/internal/fetch"

type SourceKind int

const (
	SourceLocal SourceKind = iota
	SourceRemote
)

// Source is the two-variant union of places a video or thumbnail can
// come from: a path on the local filesystem, or a URL to be fetched
// into a temporary file first. The variant is decided once, here, by
// the presence of a URL scheme and host; nothing downstream re-sniffs
// the string.
type Source struct {
	Kind  SourceKind
	Value string
}

func ResolveSource(value string) Source {
	if fetch.IsRemote(value) {
		return Source{Kind: SourceRemote, Value: value}
	}

	return Source{Kind: SourceLocal, Value: value}
}
