package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"tilepacks.dev/internal/models"
)

// Backend kinds
const (
	BackendSQLite = "sqlite"
	BackendRemote = "remote"
)

// Config holds all application configuration
type Config struct {
	ServerAddr    string        `env:"TILEPACKS_ADDR"            envDefault:":8080"`
	DataPath      string        `env:"TILEPACKS_DATA_PATH"       envDefault:"data"`
	Backend       string        `env:"TILEPACKS_BACKEND"         envDefault:"sqlite"`
	BackendURL    string        `env:"TILEPACKS_BACKEND_URL"`
	BackendKey    string        `env:"TILEPACKS_BACKEND_KEY"`
	UploadURL     string        `env:"TILEPACKS_UPLOAD_URL"`
	ImageBucket   string        `env:"TILEPACKS_IMAGE_BUCKET"    envDefault:"tilepack-images"`
	DBPath        string        `env:"TILEPACKS_DB_PATH"`
	PublicURL     string        `env:"TILEPACKS_PUBLIC_URL"`
	MaxImageBytes int64         `env:"TILEPACKS_MAX_IMAGE_BYTES" envDefault:"5242880"`
	TagCacheTTL   time.Duration `env:"TILEPACKS_TAG_CACHE_TTL"   envDefault:"5m"`

	Site *SiteConfig
	// SeedTags is the tag catalog loaded from tags.json, used to seed the
	// local backend. Empty when the file does not exist.
	SeedTags []models.Tag
}

// SiteConfig holds presentation settings
type SiteConfig struct {
	Title        string `yaml:"title"`
	Tagline      string `yaml:"tagline"`
	PopularCount int    `yaml:"popular_count"`
	PageSize     int    `yaml:"page_size"`
	Theme        Theme  `yaml:"theme"`
}

// Theme holds color scheme settings
type Theme struct {
	Background string `yaml:"background"`
	Text       string `yaml:"text"`
	Accent     string `yaml:"accent"`
	Error      string `yaml:"error"`
}

// DefaultSite is used for any setting site.yaml leaves out
var DefaultSite = SiteConfig{
	Title:        "Tile Packs",
	Tagline:      "Community tile markers for the Ground Markers plugin",
	PopularCount: 6,
	PageSize:     24,
	Theme: Theme{
		Background: "#1b1a17",
		Text:       "#f3e9d2",
		Accent:     "#ff9f1c",
		Error:      "#e63946",
	},
}

// Load reads configuration from the environment and the data directory
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.loadFiles(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that depend on each other
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
	case BackendRemote:
		if c.BackendURL == "" {
			return errors.New("TILEPACKS_BACKEND_URL is required for the remote backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.MaxImageBytes <= 0 {
		return errors.New("TILEPACKS_MAX_IMAGE_BYTES must be positive")
	}
	return nil
}

// DatabasePath returns the SQLite file path, defaulting into the data directory
func (c *Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataPath, "tilepacks.db")
}

// ObjectDir returns where the local backend stores uploaded objects
func (c *Config) ObjectDir() string {
	return filepath.Join(c.DataPath, "objects")
}

func (c *Config) loadFiles() error {
	site, err := loadSite(filepath.Join(c.DataPath, "site.yaml"))
	if err != nil {
		return err
	}
	c.Site = site

	tags, err := LoadTags(filepath.Join(c.DataPath, "tags.json"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	c.SeedTags = tags
	return nil
}

// loadSite reads site.yaml over the defaults; a missing file keeps the defaults
func loadSite(path string) (*SiteConfig, error) {
	site := DefaultSite
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &site, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load site.yaml: %w", err)
	}
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("failed to parse site.yaml: %w", err)
	}
	if site.PopularCount <= 0 {
		site.PopularCount = DefaultSite.PopularCount
	}
	if site.PageSize <= 0 {
		site.PageSize = DefaultSite.PageSize
	}
	return &site, nil
}

// LoadTags reads a tags.json catalog file
func LoadTags(path string) ([]models.Tag, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags.json: %w", err)
	}

	var list models.TagList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse tags.json: %w", err)
	}
	return list.Tags, nil
}
