package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/videohaven/ingest/internal/config"
	"github.com/videohaven/ingest/internal/creator"
	"github.com/videohaven/ingest/internal/creatorsync"
	"github.com/videohaven/ingest/internal/fetch"
	"github.com/videohaven/ingest/internal/hls"
	"github.com/videohaven/ingest/internal/http/platform"
	"github.com/videohaven/ingest/internal/ingest"
	"github.com/videohaven/ingest/internal/scrape"
	"github.com/videohaven/ingest/internal/watch"
	"github.com/videohaven/ingest/pkg/logger"
)

var log = logger.Get("Main")

const (
	exitOK       = 0
	exitFailure  = 1
	exitConflict = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitFailure
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch args[0] {
	case "upload":
		err = runUpload(ctx, args[1:])
	case "creators":
		err = runCreators(ctx, args[1:])
	case "watch":
		err = runWatch(ctx, args[1:])
	case "scrape":
		err = runScrape(ctx, args[1:])
	case "hls":
		err = runHls(ctx, args[1:])
	default:
		usage()
		return exitFailure
	}

	if err == nil {
		return exitOK
	}

	var conflict *platform.ConflictError
	if errors.As(err, &conflict) {
		log.Emit(logger.WARNING, "Skipped: %v\n", conflict)
		return exitConflict
	}

	log.Emit(logger.ERROR, "%v\n", err)
	return exitFailure
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: ingest <command> [flags]

commands:
  upload    upload a single video (from flags or a JSON descriptor)
  creators  bulk-upsert creators from a YAML roster
  watch     monitor a directory and upload new video files
  scrape    extract candidate video sources from a web page
  hls       resolve an HLS playlist URL to a single media URL`)
}

// descriptor is the JSON shape emitted by the scraping scripts that
// feed this tool. Keys are snake_case.
type descriptor struct {
	Title             string                   `json:"title"`
	Video             string                   `json:"video"`
	Thumbnail         string                   `json:"thumbnail"`
	Description       string                   `json:"description"`
	UserID            string                   `json:"user_id"`
	Tags              []string                 `json:"tags"`
	Creators          []map[string]interface{} `json:"creators"`
	ViewCount         int64                    `json:"view_count"`
	ExternalReference string                   `json:"external_reference"`
	CreatedAt         string                   `json:"created_at"`
	HLS               string                   `json:"hls"`
}

func runUpload(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("upload", flag.ExitOnError)
	configPath := flags.String("config", "", "path to the config file (default ~/.config/videohaven/ingest.yaml)")
	verbose := flags.Bool("verbose", false, "enable debug logging")
	jsonPath := flags.String("json", "", "path to a JSON upload descriptor; flags take precedence over its fields")
	title := flags.String("title", "", "video title")
	video := flags.String("video", "", "video source: local path or URL")
	userID := flags.String("user-id", "", "attribution user id (falls back to USER_ID)")
	description := flags.String("description", "", "video description")
	thumbnail := flags.String("thumbnail", "", "thumbnail source: local path or URL")
	tags := flags.String("tags", "", "comma-separated tags")
	viewCount := flags.Int64("view-count", 0, "view count for backfill imports")
	externalRef := flags.String("external-ref", "", "opaque reference used for duplicate detection")
	createdAt := flags.String("created-at", "", "original creation timestamp for backfill imports")
	quality := flags.String("quality", "best", "HLS quality when the video source is a playlist: best, worst or a bandwidth")
	var creatorFlags creatorList
	flags.Var(&creatorFlags, "creator", "creator reference, repeatable: <role>:<username> or <role>:id=<id>")
	flags.Parse(args)

	cfg, err := loadConfig(*configPath, *verbose)
	if err != nil {
		return err
	}

	request := ingest.Request{UserID: cfg.UserID}
	if *jsonPath != "" {
		if err := applyDescriptor(*jsonPath, &request); err != nil {
			return err
		}
	}

	applyIfSet(flags, map[string]func(){
		"title":        func() { request.Title = *title },
		"video":        func() { request.Video = *video },
		"user-id":      func() { request.UserID = *userID },
		"description":  func() { request.Description = *description },
		"thumbnail":    func() { request.Thumbnail = *thumbnail },
		"tags":         func() { request.Tags = splitTags(*tags) },
		"view-count":   func() { request.ViewCount = *viewCount },
		"external-ref": func() { request.ExternalReference = *externalRef },
		"created-at":   func() { request.CreatedAt = *createdAt },
		"creator":      func() { request.Creators = creatorFlags.refs },
	})

	// Playlist sources are resolved to a single media URL before
	// the orchestrator sees them.
	if strings.Contains(request.Video, ".m3u8") {
		resolved, err := hls.SelectSource(ctx, nil, request.Video, *quality)
		if err != nil {
			return err
		}

		log.Emit(logger.INFO, "Resolved HLS playlist to %s\n", resolved)
		request.Video = resolved
	}

	receipt, err := buildServices(cfg).Upload(ctx, request)
	if err != nil {
		return err
	}

	fmt.Printf("videoId: %s\nbucket: %s\nkey: %s\n", receipt.VideoID, receipt.Bucket, receipt.Key)
	return nil
}

func runCreators(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("creators", flag.ExitOnError)
	configPath := flags.String("config", "", "path to the config file")
	verbose := flags.Bool("verbose", false, "enable debug logging")
	file := flags.String("file", "creators.yaml", "path to the creators YAML roster")
	flags.Parse(args)

	cfg, err := loadConfig(*configPath, *verbose)
	if err != nil {
		return err
	}

	report, err := creatorsync.NewSyncer(newClient(cfg)).Sync(ctx, *file)
	if err != nil {
		return err
	}

	if report.Failed > 0 {
		return fmt.Errorf("creator sync finished with %d failure(s)", report.Failed)
	}

	return nil
}

func runWatch(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := flags.String("config", "", "path to the config file")
	verbose := flags.Bool("verbose", false, "enable debug logging")
	dir := flags.String("dir", "", "directory to watch (overrides config)")
	flags.Parse(args)

	cfg, err := loadConfig(*configPath, *verbose)
	if err != nil {
		return err
	}

	if *dir != "" {
		cfg.Watch.WatchPath = *dir
	}
	if cfg.Watch.UserID == "" {
		cfg.Watch.UserID = cfg.UserID
	}

	service, err := watch.New(cfg.Watch, func() watch.Uploader {
		return buildServices(cfg)
	})
	if err != nil {
		return err
	}

	return service.Run(ctx)
}

func runScrape(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("scrape", flag.ExitOnError)
	configPath := flags.String("config", "", "path to the config file")
	verbose := flags.Bool("verbose", false, "enable debug logging")
	pageURL := flags.String("url", "", "page URL to extract video sources from")
	flags.Parse(args)

	if *pageURL == "" {
		return errors.New("scrape requires -url")
	}

	cfg, err := loadConfig(*configPath, *verbose)
	if err != nil {
		return err
	}

	info, err := scrape.NewScraper(cfg.Scrape).ExtractSources(ctx, *pageURL)
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(encoded))
	return nil
}

func runHls(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("hls", flag.ExitOnError)
	playlistURL := flags.String("url", "", "HLS playlist URL")
	quality := flags.String("quality", "best", "best, worst or an exact bandwidth")
	flags.Parse(args)

	if *playlistURL == "" {
		return errors.New("hls requires -url")
	}

	resolved, err := hls.SelectSource(ctx, nil, *playlistURL, *quality)
	if err != nil {
		return err
	}

	fmt.Println(resolved)
	return nil
}

func loadConfig(path string, verbose bool) (*config.IngestConfig, error) {
	if verbose {
		logger.SetMinLoggingLevel(logger.VERBOSE.Level())
	}

	cfg := &config.IngestConfig{}
	if err := cfg.Load(path); err != nil {
		return nil, err
	}

	if cfg.API.Key == "" {
		return nil, errors.New("an API key is required; set API_KEY or the api.key config field")
	}

	return cfg, nil
}

func newClient(cfg *config.IngestConfig) *platform.Client {
	return platform.NewClient(platform.Config{
		BaseURL: strings.TrimRight(cfg.API.BaseURL, "/"),
		APIKey:  cfg.API.Key,
		Timeout: cfg.API.Timeout,
	})
}

// buildServices wires one upload orchestrator invocation: a fresh
// client, creator resolver (with its own cache) and fetcher.
func buildServices(cfg *config.IngestConfig) *ingest.Service {
	client := newClient(cfg)
	fetcher := fetch.NewFetcher(fetch.Config{TempDir: cfg.Fetch.TempDir, Timeout: cfg.Fetch.Timeout}, nil)

	return ingest.New(cfg.Upload, client, creator.NewResolver(client), fetcher)
}

// applyDescriptor loads a JSON descriptor file into the request.
// Flag values applied afterwards take precedence over its fields.
func applyDescriptor(path string, request *ingest.Request) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read descriptor %s: %w", path, err)
	}

	var desc descriptor
	if err := json.Unmarshal(content, &desc); err != nil {
		return fmt.Errorf("cannot parse descriptor %s: %w", path, err)
	}

	request.Title = desc.Title
	request.Video = desc.Video
	if desc.Video == "" {
		request.Video = desc.HLS
	}
	request.Thumbnail = desc.Thumbnail
	request.Description = desc.Description
	if desc.UserID != "" {
		request.UserID = desc.UserID
	}
	request.Tags = desc.Tags
	request.ViewCount = desc.ViewCount
	request.ExternalReference = desc.ExternalReference
	request.CreatedAt = desc.CreatedAt

	for _, entry := range desc.Creators {
		ref, err := creator.FromMap(entry)
		if err != nil {
			return err
		}

		request.Creators = append(request.Creators, ref)
	}

	return nil
}

// applyIfSet invokes the override for each flag the user explicitly
// provided, giving flags precedence over descriptor fields.
func applyIfSet(flags *flag.FlagSet, overrides map[string]func()) {
	flags.Visit(func(f *flag.Flag) {
		if apply, ok := overrides[f.Name]; ok {
			apply()
		}
	})
}

func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}

	return tags
}

// creatorList collects repeatable -creator flags of the form
// <role>:<username> for new creators or <role>:id=<id> for existing
// ones.
type creatorList struct {
	refs []creator.Reference
}

func (list *creatorList) String() string {
	return fmt.Sprintf("%d creator(s)", len(list.refs))
}

func (list *creatorList) Set(value string) error {
	role, rest, found := strings.Cut(value, ":")
	if !found {
		return fmt.Errorf("creator %q must be <role>:<username> or <role>:id=<id>", value)
	}

	if id, ok := strings.CutPrefix(rest, "id="); ok {
		list.refs = append(list.refs, creator.ExistingRef(id, creator.Role(role)))
		return nil
	}

	list.refs = append(list.refs, creator.NewRef(creator.New{Username: rest, Role: creator.Role(role)}))
	return nil
}
