package creator

import (
	"context"

	"github.com/videohaven/ingest/internal/http/platform"
	"github.com/videohaven/ingest/pkg/logger"
)

var log = logger.Get("Creators")

type upserter interface {
	UpsertCreator(ctx context.Context, request platform.UpsertCreatorRequest) (*platform.UpsertCreatorResponse, error)
}

// Resolver turns creator references into resolved {id, role} pairs,
// upserting new creators through the platform as required. The
// username cache is scoped to one Resolver instance, so concurrent
// batch runs each resolving with their own Resolver never share
// mutable state.
type Resolver struct {
	api   upserter
	cache map[string]string
}

func NewResolver(api upserter) *Resolver {
	return &Resolver{api: api, cache: make(map[string]string)}
}

// Resolve maps the provided references to resolved creators,
// preserving input order. All references are validated up-front so
// a malformed entry anywhere in the list fails the whole call before
// any network traffic. Any upsert failure likewise aborts the whole
// resolution; downstream code never sees a partial creator list.
func (resolver *Resolver) Resolve(ctx context.Context, references []Reference) ([]Resolved, error) {
	for _, ref := range references {
		if err := ref.Validate(); err != nil {
			return nil, err
		}
	}

	resolved := make([]Resolved, 0, len(references))
	for _, ref := range references {
		if ref.Existing != nil {
			resolved = append(resolved, Resolved{ID: ref.Existing.ID, Role: ref.Existing.Role})
			continue
		}

		id, err := resolver.resolveNew(ctx, ref.New)
		if err != nil {
			return nil, err
		}

		resolved = append(resolved, Resolved{ID: id, Role: ref.New.Role})
	}

	return resolved, nil
}

// resolveNew returns the platform id for a new-creator descriptor,
// issuing at most one upsert per distinct username for the lifetime
// of this resolver.
func (resolver *Resolver) resolveNew(ctx context.Context, descriptor *New) (string, error) {
	if id, ok := resolver.cache[descriptor.Username]; ok {
		log.Emit(logger.DEBUG, "Creator %s already resolved to %s (cached)\n", descriptor.Username, id)
		return id, nil
	}

	response, err := resolver.api.UpsertCreator(ctx, platform.UpsertCreatorRequest{
		Username:    descriptor.Username,
		DisplayName: descriptor.DisplayName,
		Aliases:     descriptor.Aliases,
		Image:       descriptor.Image,
		Birthday:    descriptor.Birthday,
		Links:       descriptor.Links,
	})
	if err != nil {
		return "", err
	}

	id := response.Creator.ID
	resolver.cache[descriptor.Username] = id
	log.Emit(logger.DEBUG, "Creator %s resolved to %s (%s)\n", descriptor.Username, id, response.Action)

	return id, nil
}
