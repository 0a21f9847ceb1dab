package watch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type ItemState int

const (
	Idle ItemState = iota
	Uploading
	Complete
	Skipped
	Failed
)

func (state ItemState) String() string {
	return []string{"IDLE", "UPLOADING", "COMPLETE", "SKIPPED", "FAILED"}[state]
}

// Item tracks one discovered file through its upload. Skipped items
// are duplicates the platform already holds (conflict on external
// reference); they are not failures.
type Item struct {
	ID      uuid.UUID
	Path    string
	State   ItemState
	VideoID string
	Err     error
}

func (item *Item) String() string {
	return fmt.Sprintf("Item{%s %s %s}", item.ID, item.Path, item.State)
}

// title derives a human-readable video title from the file name:
// base name without extension, separators normalised to spaces.
func (item *Item) title() string {
	name := strings.TrimSuffix(filepath.Base(item.Path), filepath.Ext(item.Path))
	name = strings.NewReplacer("_", " ", ".", " ").Replace(name)

	return strings.Join(strings.Fields(name), " ")
}
