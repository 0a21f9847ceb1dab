package creatorsync_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/videohaven/ingest/internal/creatorsync"
	"github.com/videohaven/ingest/internal/http/platform"
)

const rosterYAML = `alice:
  display_name: Alice
  aliases: [al, alicia]
  links:
    - https://example.com/alice
bob:
  display_name: Bob
  image: https://cdn/bob.png
  birthday: "1988-02-14"
`

type fakeUpserter struct {
	calls   []platform.UpsertCreatorRequest
	failFor map[string]error
}

func (fake *fakeUpserter) UpsertCreator(ctx context.Context, request platform.UpsertCreatorRequest) (*platform.UpsertCreatorResponse, error) {
	fake.calls = append(fake.calls, request)
	if err := fake.failFor[request.Username]; err != nil {
		return nil, err
	}

	response := &platform.UpsertCreatorResponse{Action: "created"}
	response.Creator.ID = "c-" + request.Username
	return response, nil
}

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "creators.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSync(t *testing.T) {
	api := &fakeUpserter{}
	syncer := creatorsync.NewSyncer(api)

	report, err := syncer.Sync(context.Background(), writeRoster(t, rosterYAML))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Failed)

	require.Len(t, api.calls, 2)
	assert.Equal(t, "alice", api.calls[0].Username, "entries are processed in sorted order")
	assert.Equal(t, "Alice", api.calls[0].DisplayName)
	assert.Equal(t, []string{"al", "alicia"}, api.calls[0].Aliases)
	assert.Equal(t, "bob", api.calls[1].Username)
	assert.Equal(t, "https://cdn/bob.png", api.calls[1].Image)
	assert.Equal(t, "1988-02-14", api.calls[1].Birthday)
}

func TestSync_ContinuesPastFailures(t *testing.T) {
	api := &fakeUpserter{failFor: map[string]error{"alice": &platform.UpstreamError{}}}
	syncer := creatorsync.NewSyncer(api)

	report, err := syncer.Sync(context.Background(), writeRoster(t, rosterYAML))
	require.NoError(t, err, "individual upsert failures do not abort the sync")

	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Outcomes, 2)
	assert.Error(t, report.Outcomes[0].Err)
	assert.Equal(t, "created", report.Outcomes[1].Action)
	assert.Len(t, api.calls, 2, "bob is still attempted after alice fails")
}

func TestSync_EmptyRoster(t *testing.T) {
	api := &fakeUpserter{}
	syncer := creatorsync.NewSyncer(api)

	_, err := syncer.Sync(context.Background(), writeRoster(t, "{}\n"))

	assert.Error(t, err)
	assert.Empty(t, api.calls)
}

func TestSync_MissingFile(t *testing.T) {
	syncer := creatorsync.NewSyncer(&fakeUpserter{})

	_, err := syncer.Sync(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}

func TestSync_MalformedYAML(t *testing.T) {
	syncer := creatorsync.NewSyncer(&fakeUpserter{})

	_, err := syncer.Sync(context.Background(), writeRoster(t, "alice: [not: a, mapping\n"))

	assert.Error(t, err)
}
