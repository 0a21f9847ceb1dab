// Package ingest contains the upload orchestrator: the workflow that
// turns a (possibly remote) video file plus metadata into a durably
// stored platform asset. It coordinates creator resolution, the
// two-phase signed-URL upload and the cleanup of any temporary local
// resources, in that order, with each step short-circuiting the rest
// on failure.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/videohaven/ingest/internal/creator"
	"github.com/videohaven/ingest/internal/http/platform"
	"github.com/videohaven/ingest/internal/media"
	"github.com/videohaven/ingest/pkg/logger"
)

var log = logger.Get("Ingest")

const (
	defaultVideoExt     = ".mp4"
	defaultThumbnailExt = ".jpg"
)

type (
	uploadAPI interface {
		CreateUpload(ctx context.Context, request platform.CreateUploadRequest) (*platform.UploadSession, error)
		PutObject(ctx context.Context, signedURL string, contentType string, body io.Reader, size int64) error
	}

	creatorResolver interface {
		Resolve(ctx context.Context, references []creator.Reference) ([]creator.Resolved, error)
	}

	fetcher interface {
		Fetch(ctx context.Context, rawURL string, defaultExt string) (string, error)
	}

	Config struct {
		// MinVideoBytes is the smallest size a video asset can
		// be before it is treated as a truncated or corrupted
		// download and rejected.
		MinVideoBytes int64 `yaml:"min_video_bytes" env:"MIN_VIDEO_BYTES" env-default:"1024"`

		// MinThumbnailBytes is the thumbnail equivalent. An
		// undersized thumbnail is only warned about and dropped;
		// thumbnails are optional cosmetic assets.
		MinThumbnailBytes int64 `yaml:"min_thumbnail_bytes" env:"MIN_THUMBNAIL_BYTES" env-default:"128"`
	}

	// Request is the orchestrator's input. Video and Thumbnail are
	// either local paths or URLs; the distinction is resolved once
	// at the top of Upload.
	Request struct {
		Title             string `validate:"required"`
		UserID            string `validate:"required"`
		Video             string `validate:"required"`
		Description       string
		Thumbnail         string
		Creators          []creator.Reference
		Tags              []string
		ViewCount         int64 `validate:"gte=0"`
		ExternalReference string
		CreatedAt         string
	}

	// Receipt is returned on success; the video is durably stored
	// and retrievable by VideoID. Thumbnail storage is best-effort
	// and never invalidates the video record.
	Receipt struct {
		VideoID string
		Bucket  string
		Key     string
	}

	Service struct {
		config   Config
		api      uploadAPI
		creators creatorResolver
		fetcher  fetcher
		validate *validator.Validate
	}
)

// New creates an upload orchestrator. Each Service carries its own
// creator resolver (and therefore its own upsert cache); a batch
// caller wanting concurrency should create one Service per worker.
func New(config Config, api uploadAPI, creators creatorResolver, fetcher fetcher) *Service {
	return &Service{
		config:   config,
		api:      api,
		creators: creators,
		fetcher:  fetcher,
		validate: validator.New(),
	}
}

// Upload runs the full ingestion workflow for one video. Whatever
// the outcome, every temporary file materialised during the run is
// removed before Upload returns.
//
// A *platform.ConflictError is returned when the request's external
// reference has already been ingested; batch callers should treat
// that as a non-fatal skip. A video whose bytes landed but whose
// thumbnail transfer failed is a partial success: the error is
// returned, yet the video record persists server-side.
func (service *Service) Upload(ctx context.Context, request Request) (_ *Receipt, err error) {
	if err := service.validate.Struct(request); err != nil {
		return nil, &ValidationError{err.Error()}
	}

	temporaries := make([]*media.Asset, 0, 2)
	defer func() {
		for _, asset := range temporaries {
			log.Emit(logger.DEBUG, "Removing temporary file %s\n", asset.Path)
			asset.Release()
		}
	}()

	video, err := service.materialise(ctx, ResolveSource(request.Video), defaultVideoExt, &temporaries)
	if err != nil {
		return nil, err
	}

	if video.SizeBytes < service.config.MinVideoBytes {
		return nil, &ValidationError{fmt.Sprintf(
			"video asset %s is %d bytes, below the %d byte minimum; likely a truncated download",
			video.Path, video.SizeBytes, service.config.MinVideoBytes)}
	}

	var thumbnail *media.Asset
	if request.Thumbnail != "" {
		thumbnail, err = service.materialise(ctx, ResolveSource(request.Thumbnail), defaultThumbnailExt, &temporaries)
		if err != nil {
			return nil, err
		}

		if thumbnail.SizeBytes < service.config.MinThumbnailBytes {
			log.Emit(logger.WARNING, "Thumbnail %s is %d bytes, below the %d byte minimum; dropping it\n",
				thumbnail.Path, thumbnail.SizeBytes, service.config.MinThumbnailBytes)
			thumbnail = nil
		}
	}

	var resolved []creator.Resolved
	if len(request.Creators) > 0 {
		resolved, err = service.creators.Resolve(ctx, request.Creators)
		if err != nil {
			return nil, err
		}
	}

	session, err := service.api.CreateUpload(ctx, buildCreateUploadRequest(request, video, thumbnail, resolved))
	if err != nil {
		return nil, err
	}

	log.Emit(logger.INFO, "Upload session %s opened; transferring %s (%d bytes)\n", session.VideoID, video.Path, video.SizeBytes)
	if err := service.transfer(ctx, session.UploadURL, video); err != nil {
		return nil, err
	}

	log.Emit(logger.SUCCESS, "Video %s stored durably\n", session.VideoID)

	if thumbnail != nil && session.ThumbnailUploadURL != "" {
		if err := service.transfer(ctx, session.ThumbnailUploadURL, thumbnail); err != nil {
			// The video record persists server-side; only the
			// thumbnail is missing. Reported as an overall
			// failure all the same.
			log.Emit(logger.ERROR, "Thumbnail transfer failed for video %s; the video record itself was created\n", session.VideoID)
			return nil, err
		}
	}

	return &Receipt{VideoID: session.VideoID, Bucket: session.Bucket, Key: session.Key}, nil
}

// materialise turns a source into a local asset. Remote sources are
// fetched into temporary files which are registered for cleanup
// before anything else can fail.
func (service *Service) materialise(ctx context.Context, source Source, defaultExt string, temporaries *[]*media.Asset) (*media.Asset, error) {
	if source.Kind == SourceLocal {
		if _, err := os.Stat(source.Value); errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: source.Value}
		}

		return media.NewAsset(source.Value, false)
	}

	path, err := service.fetcher.Fetch(ctx, source.Value, defaultExt)
	if err != nil {
		return nil, err
	}

	asset, err := media.NewAsset(path, true)
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	*temporaries = append(*temporaries, asset)
	return asset, nil
}

func (service *Service) transfer(ctx context.Context, signedURL string, asset *media.Asset) error {
	file, err := os.Open(asset.Path)
	if err != nil {
		return &NotFoundError{Path: asset.Path}
	}
	defer file.Close()

	return service.api.PutObject(ctx, signedURL, asset.ContentType, file, asset.SizeBytes)
}

func buildCreateUploadRequest(request Request, video *media.Asset, thumbnail *media.Asset, resolved []creator.Resolved) platform.CreateUploadRequest {
	create := platform.CreateUploadRequest{
		Title:             request.Title,
		UserID:            request.UserID,
		Filename:          video.Filename(),
		Description:       request.Description,
		ContentType:       video.ContentType,
		Tags:              request.Tags,
		ViewCount:         request.ViewCount,
		ExternalReference: request.ExternalReference,
		CreatedAt:         request.CreatedAt,
	}

	if thumbnail != nil {
		create.ThumbnailFilename = thumbnail.Filename()
		create.ThumbnailContentType = thumbnail.ContentType
	}

	for _, r := range resolved {
		create.Creators = append(create.Creators, platform.CreatorAssignment{ID: r.ID, Role: string(r.Role)})
	}

	return create
}
