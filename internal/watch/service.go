// Package watch is the batch importer: it monitors a directory for
// new video files and pushes each one through its own upload
// orchestrator. Discovery combines filesystem notifications with a
// periodic forced sync so a missed event never strands a file.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rjeczalik/notify"
	"github.com/videohaven/ingest/internal/http/platform"
	"github.com/videohaven/ingest/internal/ingest"
	"github.com/videohaven/ingest/internal/media"
	"github.com/videohaven/ingest/pkg/logger"
	"github.com/videohaven/ingest/pkg/worker"
)

var log = logger.Get("Watch")

type (
	// Uploader is one upload orchestrator invocation surface. The
	// service requests a fresh one per upload so each invocation
	// owns its creator cache and temporary files, making the
	// concurrent workers fully independent.
	Uploader interface {
		Upload(ctx context.Context, request ingest.Request) (*ingest.Receipt, error)
	}

	UploaderFactory func() Uploader

	Config struct {
		// WatchPath is the directory monitored for new files.
		// Created if missing.
		WatchPath string `yaml:"watch_path" env:"WATCH_PATH"`

		// ForceSyncSeconds guards against the watcher failing:
		// the directory is rescanned on this interval regardless
		// of notifications.
		ForceSyncSeconds int `yaml:"force_sync_seconds" env:"WATCH_FORCE_SYNC_SECONDS" env-default:"30"`

		// RequiredModTimeAgeSeconds holds a newly seen file back
		// until its modtime is at least this old, since a fresh
		// modtime usually means an in-progress download.
		RequiredModTimeAgeSeconds int `yaml:"required_mod_time_age_seconds" env:"WATCH_MOD_TIME_AGE_SECONDS" env-default:"10"`

		// Parallelism is the number of concurrent uploads. Each
		// worker runs fully independent invocations.
		Parallelism int `yaml:"parallelism" env:"WATCH_PARALLELISM" env-default:"2"`

		// UserID attributed to every upload from this directory.
		UserID string `yaml:"user_id" env:"WATCH_USER_ID"`

		// Tags applied to every upload from this directory.
		Tags []string `yaml:"tags" env:"WATCH_TAGS"`
	}

	watchService struct {
		*sync.Mutex

		config  Config
		factory UploaderFactory
		items   map[string]*Item
		pool    *worker.Pool
	}
)

// New creates a watch service using the provided config. The config's
// WatchPath is validated to be an existing directory; if the
// directory is missing it will be created, if the path points to an
// existing file, an error is returned.
func New(config Config, factory UploaderFactory) (*watchService, error) {
	if config.WatchPath == "" {
		return nil, errors.New("watch path must be provided")
	}

	if info, err := os.Stat(config.WatchPath); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("watch path '%s' is not a directory", config.WatchPath)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(config.WatchPath, os.ModeDir|os.ModePerm); err != nil {
			return nil, fmt.Errorf("watch path '%s' could not be created: %w", config.WatchPath, err)
		}
	} else {
		return nil, fmt.Errorf("watch path '%s' could not be accessed: %w", config.WatchPath, err)
	}

	return &watchService{
		Mutex:   &sync.Mutex{},
		config:  config,
		factory: factory,
		items:   make(map[string]*Item),
		pool:    worker.NewPool("upload-worker", config.Parallelism),
	}, nil
}

// Run watches the configured directory until the context is
// cancelled, uploading each new video file it discovers. Blocks for
// the lifetime of the service.
func (service *watchService) Run(ctx context.Context) error {
	events := make(chan notify.EventInfo, 32)
	if err := notify.Watch(filepath.Join(service.config.WatchPath, "..."), events, notify.Create, notify.Rename); err != nil {
		return fmt.Errorf("cannot watch %s: %w", service.config.WatchPath, err)
	}
	defer notify.Stop(events)

	if err := service.pool.Start(); err != nil {
		return err
	}
	defer service.pool.Close()

	forceSync := time.NewTicker(time.Second * time.Duration(service.config.ForceSyncSeconds))
	defer forceSync.Stop()

	service.DiscoverNewFiles(ctx)

	for {
		select {
		case <-events:
			service.DiscoverNewFiles(ctx)
		case <-forceSync.C:
			service.DiscoverNewFiles(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

// DiscoverNewFiles scans the watched directory and queues an upload
// for every video file not already tracked. Dotfiles, non-video
// extensions and files modified too recently are left alone (the
// latter are retried by the next forced sync). Queueing applies
// backpressure: discovery blocks while every worker is busy, and the
// watcher's event buffer plus the forced sync absorb the gap.
func (service *watchService) DiscoverNewFiles(ctx context.Context) {
	for _, item := range service.claimNewItems() {
		log.Emit(logger.INFO, "Queueing %s for upload\n", item)
		item := item
		service.pool.Submit(func(w worker.Worker) error {
			return service.performUpload(ctx, item)
		})
	}
}

// claimNewItems walks the directory and registers any new uploadable
// files, returning the items claimed by this scan. Holds the mutex
// for the duration of the walk.
func (service *watchService) claimNewItems() []*Item {
	service.Lock()
	defer service.Unlock()

	var claimed []*Item
	minAge := time.Duration(service.config.RequiredModTimeAgeSeconds) * time.Second
	err := filepath.WalkDir(service.config.WatchPath, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			return nil
		}

		if !strings.HasPrefix(media.ResolveContentType(path), "video/") {
			return nil
		}

		if _, known := service.items[path]; known {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		if time.Since(info.ModTime()) < minAge {
			log.Emit(logger.DEBUG, "Holding %s; modified too recently\n", path)
			return nil
		}

		item := &Item{ID: uuid.New(), Path: path, State: Idle}
		service.items[path] = item
		claimed = append(claimed, item)

		return nil
	})
	if err != nil {
		log.Emit(logger.ERROR, "Discovery scan of %s failed: %v\n", service.config.WatchPath, err)
	}

	return claimed
}

// Items returns a snapshot of all tracked items.
func (service *watchService) Items() []*Item {
	service.Lock()
	defer service.Unlock()

	items := make([]*Item, 0, len(service.items))
	for _, item := range service.items {
		items = append(items, item)
	}

	return items
}

// performUpload runs one upload invocation for the item with a fresh
// orchestrator. Duplicate conflicts mark the item as skipped; they
// are the expected outcome of re-running a directory import.
func (service *watchService) performUpload(ctx context.Context, item *Item) error {
	service.setState(item, Uploading)

	receipt, err := service.factory().Upload(ctx, ingest.Request{
		Title:             item.title(),
		UserID:            service.config.UserID,
		Video:             item.Path,
		Tags:              service.config.Tags,
		ExternalReference: "watch:" + filepath.Base(item.Path),
	})

	service.Lock()
	defer service.Unlock()

	var conflict *platform.ConflictError
	switch {
	case err == nil:
		item.State = Complete
		item.VideoID = receipt.VideoID
		log.Emit(logger.SUCCESS, "Uploaded %s as video %s\n", item.Path, receipt.VideoID)
	case errors.As(err, &conflict):
		item.State = Skipped
		item.VideoID = conflict.VideoID
		log.Emit(logger.INFO, "Skipping %s; already ingested as video %s\n", item.Path, conflict.VideoID)
	default:
		item.State = Failed
		item.Err = err
		return fmt.Errorf("upload of %s failed: %w", item.Path, err)
	}

	return nil
}

func (service *watchService) setState(item *Item, state ItemState) {
	service.Lock()
	defer service.Unlock()
	item.State = state
}
