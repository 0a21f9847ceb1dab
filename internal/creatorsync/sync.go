// Package creatorsync bulk-upserts creators from a YAML file through
// the platform's creator endpoint. It is the batch counterpart of
// the per-upload creator resolution: same endpoint, applied to a
// whole roster at once.
package creatorsync

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/videohaven/ingest/internal/http/platform"
	"github.com/videohaven/ingest/pkg/logger"
	"gopkg.in/yaml.v3"
)

var log = logger.Get("CreatorSync")

type (
	// Entry is one creator in the roster file, keyed by username
	// at the top level. Field names follow the file's snake_case
	// convention.
	Entry struct {
		DisplayName string   `yaml:"display_name"`
		Aliases     []string `yaml:"aliases"`
		Links       []string `yaml:"links"`
		Image       string   `yaml:"image"`
		Birthday    string   `yaml:"birthday"`
	}

	Outcome struct {
		Username string
		Action   string
		Err      error
	}

	Report struct {
		Outcomes  []Outcome
		Succeeded int
		Failed    int
	}

	upserter interface {
		UpsertCreator(ctx context.Context, request platform.UpsertCreatorRequest) (*platform.UpsertCreatorResponse, error)
	}

	Syncer struct {
		api upserter
	}
)

func NewSyncer(api upserter) *Syncer {
	return &Syncer{api: api}
}

// Sync loads the roster at yamlPath and upserts every creator in it,
// continuing past individual failures. The returned report carries a
// per-entry outcome; an unreadable or empty roster is an error
// before any upsert is attempted.
func (syncer *Syncer) Sync(ctx context.Context, yamlPath string) (*Report, error) {
	content, err := os.ReadFile(yamlPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read creators file %s: %w", yamlPath, err)
	}

	roster := make(map[string]Entry)
	if err := yaml.Unmarshal(content, &roster); err != nil {
		return nil, fmt.Errorf("cannot parse creators file %s: %w", yamlPath, err)
	} else if len(roster) == 0 {
		return nil, fmt.Errorf("creators file %s is empty", yamlPath)
	}

	usernames := make([]string, 0, len(roster))
	for username := range roster {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)

	report := &Report{Outcomes: make([]Outcome, 0, len(usernames))}
	for _, username := range usernames {
		entry := roster[username]
		response, err := syncer.api.UpsertCreator(ctx, platform.UpsertCreatorRequest{
			Username:    username,
			DisplayName: entry.DisplayName,
			Aliases:     entry.Aliases,
			Image:       entry.Image,
			Birthday:    entry.Birthday,
			Links:       entry.Links,
		})

		if err != nil {
			log.Emit(logger.ERROR, "Upsert of %s failed: %v\n", username, err)
			report.Outcomes = append(report.Outcomes, Outcome{Username: username, Err: err})
			report.Failed++
			continue
		}

		log.Emit(logger.SUCCESS, "Upserted %s (%s)\n", username, response.Action)
		report.Outcomes = append(report.Outcomes, Outcome{Username: username, Action: response.Action})
		report.Succeeded++
	}

	log.Emit(logger.INFO, "Creator sync complete: %d succeeded, %d failed\n", report.Succeeded, report.Failed)
	return report, nil
}
