// Package config holds the user-supplied configuration for the
// ingest tool, loaded from an optional YAML file with environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"
	"github.com/videohaven/ingest/internal/ingest"
	"github.com/videohaven/ingest/internal/scrape"
	"github.com/videohaven/ingest/internal/watch"
)

const configDirSuffix = ".config/videohaven"

type (
	APIConfig struct {
		BaseURL string        `yaml:"base_url" env:"API_BASE_URL" env-default:"http://localhost:3000"`
		Key     string        `yaml:"key" env:"API_KEY"`
		Timeout time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"30s"`
	}

	FetchConfig struct {
		TempDir string        `yaml:"temp_dir" env:"FETCH_TEMP_DIR"`
		Timeout time.Duration `yaml:"timeout" env:"FETCH_TIMEOUT"`
	}

	// IngestConfig is the top-level configuration. UserID is the
	// attribution principal for uploads; the API cannot infer it
	// from the key alone.
	IngestConfig struct {
		API    APIConfig     `yaml:"api"`
		UserID string        `yaml:"user_id" env:"USER_ID"`
		Fetch  FetchConfig   `yaml:"fetch"`
		Upload ingest.Config `yaml:"upload"`
		Watch  watch.Config  `yaml:"watch"`
		Scrape scrape.Config `yaml:"scrape"`
	}
)

// Load reads the config file at path (when it exists) and applies
// environment overrides on top. An empty path means the default
// location; a missing file at the default location is not an error,
// but an explicitly provided path must exist.
func (config *IngestConfig) Load(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, config); err != nil {
			return fmt.Errorf("failed to load configuration from %s: %w", path, err)
		}

		return nil
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cannot read configuration %s: %w", path, err)
	}

	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("failed to load configuration from environment: %w", err)
	}

	return nil
}

// DefaultPath is where the config file lives unless overridden:
// ~/.config/videohaven/ingest.yaml.
func DefaultPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return filepath.Join(configDirSuffix, "ingest.yaml")
	}

	return filepath.Join(home, configDirSuffix, "ingest.yaml")
}
