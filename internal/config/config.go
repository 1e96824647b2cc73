// Package config loads the optional .tracks/config.yaml settings file.
//
// A missing file yields the defaults. Unknown keys and invalid values are
// rejected with an error naming the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tracks/internal/fsutil"
	"github.com/roach88/tracks/internal/model"
)

const (
	// DefaultRoot is the tracks directory used when neither --root nor
	// TRACKS_ROOT is given.
	DefaultRoot = ".tracks"

	// RootEnv names the environment variable that overrides the root.
	RootEnv = "TRACKS_ROOT"

	// FileName is the config file name inside the root.
	FileName = "config.yaml"

	defaultStalePlanningDays = 7
	defaultNextTasks         = 3
)

// IDStyle selects how ids are generated when the caller omits one.
type IDStyle string

const (
	IDStyleSlug IDStyle = "slug"
	IDStyleUUID IDStyle = "uuid"
)

const defaultConfigYAML = `# tracks configuration
version: 1

# Units in planning longer than this many days are flagged in the status report.
stale_planning_days: 7

# Pending tasks listed per unit in the status report.
next_tasks: 3

# Generated id style: slug (title-derived) or uuid (UUIDv7).
id_style: slug

# Allowed categories. Empty allows any lower-case token.
categories: []
`

// Config models .tracks/config.yaml.
type Config struct {
	Version           int              `yaml:"version"`
	StalePlanningDays int              `yaml:"stale_planning_days"`
	NextTasks         int              `yaml:"next_tasks"`
	IDStyle           IDStyle          `yaml:"id_style"`
	Categories        []model.Category `yaml:"categories"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Version:           1,
		StalePlanningDays: defaultStalePlanningDays,
		NextTasks:         defaultNextTasks,
		IDStyle:           IDStyleSlug,
	}
}

// ResolveRoot picks the tracks root: flag value, then TRACKS_ROOT, then
// DefaultRoot.
func ResolveRoot(flag string) string {
	if flag = strings.TrimSpace(flag); flag != "" {
		return flag
	}
	if env := strings.TrimSpace(os.Getenv(RootEnv)); env != "" {
		return env
	}
	return DefaultRoot
}

// Path returns the config file location inside root.
func Path(root string) string {
	return filepath.Join(root, FileName)
}

// Load reads the config file in root. A missing file returns Default().
func Load(root string) (Config, error) {
	path := Path(root)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a config document.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WriteDefault writes the commented default config into root unless a config
// file already exists. It reports whether a file was written.
func WriteDefault(root string) (bool, error) {
	path := Path(root)
	if fsutil.Exists(path) {
		return false, nil
	}
	if err := fsutil.WriteFileAtomic(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return false, fmt.Errorf("config: write %s: %w", path, err)
	}
	return true, nil
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.StalePlanningDays == 0 {
		c.StalePlanningDays = defaultStalePlanningDays
	}
	if c.NextTasks == 0 {
		c.NextTasks = defaultNextTasks
	}
	c.IDStyle = IDStyle(strings.TrimSpace(string(c.IDStyle)))
	if c.IDStyle == "" {
		c.IDStyle = IDStyleSlug
	}
	if len(c.Categories) == 0 {
		c.Categories = nil
	}
}

func (c *Config) validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported version %d", c.Version)
	}
	if c.StalePlanningDays < 0 {
		return fmt.Errorf("stale_planning_days must be >= 0")
	}
	if c.NextTasks < 0 {
		return fmt.Errorf("next_tasks must be >= 0")
	}
	switch c.IDStyle {
	case IDStyleSlug, IDStyleUUID:
	default:
		return fmt.Errorf("id_style must be %q or %q, got %q", IDStyleSlug, IDStyleUUID, c.IDStyle)
	}
	for i, cat := range c.Categories {
		if err := model.ValidateCategory("config", "", cat); err != nil {
			return fmt.Errorf("categories[%d]: %q is not a valid category", i, cat)
		}
	}
	return nil
}

// StalePlanningAfter returns the stale-planning threshold as a duration.
func (c Config) StalePlanningAfter() time.Duration {
	return time.Duration(c.StalePlanningDays) * 24 * time.Hour
}

// AllowsCategory reports whether cat may be used for new units.
func (c Config) AllowsCategory(cat model.Category) bool {
	if len(c.Categories) == 0 {
		return true
	}
	for _, allowed := range c.Categories {
		if allowed == cat {
			return true
		}
	}
	return false
}
