// Package config loads athens-bands settings from a YAML file and the environment.
//
// Secrets (the upstream cookie, database DSN and CDN token) are normally supplied
// through environment variables so the YAML file can be committed.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPrimaryURL  = "https://flagpole.com/events/list/?tribe_eventcategory%5B0%5D=13592"
	DefaultFallbackURL = "https://r.jina.ai/http://flagpole.com/events/list/?tribe_eventcategory%5B0%5D=13592"
	DefaultTimeout     = 15 * time.Second
	DefaultTimezone    = "America/New_York"

	DefaultStorageDir = "~/.local/share/athens-bands"
	DefaultStorageKey = "events.json"
	DefaultTable      = "event_payloads"

	DefaultPurgeEndpoint = "https://api.netlify.com/api/v1/purge"

	DefaultListen          = "127.0.0.1:8080"
	DefaultCDNCacheControl = "public, s-maxage=43200, stale-while-revalidate=86400"

	// Every six hours: 1 AM, 7 AM, 1 PM, 7 PM UTC
	DefaultSchedule = "0 1,7,13,19 * * *"
)

// DefaultPurgeTags are the cache tags covering the events API and the homepage
var DefaultPurgeTags = []string{"events-data", "homepage"}

// Environment variables that override file settings
const (
	EnvCookie       = "ATHENS_BANDS_COOKIE"
	EnvLegacyCookie = "FLAGPOLE_COOKIE"
	EnvDatabaseURL  = "DATABASE_URL"
	EnvPurgeToken   = "NETLIFY_AUTH_TOKEN"
	EnvPurgeSiteID  = "NETLIFY_SITE_ID"
)

// SourceConfig describes where and how the event calendar is fetched.
type SourceConfig struct {
	// PrimaryURL is the HTML listing page.
	PrimaryURL string `yaml:"primary_url"`
	// FallbackURL is a markdown-rendering proxy of the same page.
	FallbackURL string `yaml:"fallback_url"`
	// Cookie is sent verbatim as the Cookie header when set.
	Cookie string `yaml:"cookie,omitempty"`
	// Timeout bounds each fetch attempt.
	Timeout time.Duration `yaml:"timeout"`
	// Timezone is the IANA zone used for every calendar date.
	Timezone string `yaml:"timezone"`
}

// StorageConfig selects the payload store.
type StorageConfig struct {
	Driver string `yaml:"driver"` // "file" or "postgres"
	Dir    string `yaml:"dir"`
	Key    string `yaml:"key"`
	DSN    string `yaml:"dsn,omitempty"`
	Table  string `yaml:"table"`
}

// PurgeConfig controls CDN cache invalidation after a successful store write.
type PurgeConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Endpoint string   `yaml:"endpoint"`
	SiteID   string   `yaml:"site_id"`
	Token    string   `yaml:"token,omitempty"`
	Tags     []string `yaml:"tags"`
}

// ServerConfig holds HTTP settings for `serve`.
type ServerConfig struct {
	Listen          string `yaml:"listen"`
	CDNCacheControl string `yaml:"cdn_cache_control"`
}

// Config is the top-level application configuration.
type Config struct {
	Source   SourceConfig  `yaml:"source"`
	Storage  StorageConfig `yaml:"storage"`
	Purge    PurgeConfig   `yaml:"purge"`
	Server   ServerConfig  `yaml:"server"`
	Schedule string        `yaml:"schedule"`
	LogLevel string        `yaml:"log_level"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Source.PrimaryURL == "" {
		c.Source.PrimaryURL = DefaultPrimaryURL
	}
	if c.Source.FallbackURL == "" {
		c.Source.FallbackURL = DefaultFallbackURL
	}
	if c.Source.Timeout <= 0 {
		c.Source.Timeout = DefaultTimeout
	}
	if c.Source.Timezone == "" {
		c.Source.Timezone = DefaultTimezone
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = "file"
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = DefaultStorageDir
	}
	if c.Storage.Key == "" {
		c.Storage.Key = DefaultStorageKey
	}
	if c.Storage.Table == "" {
		c.Storage.Table = DefaultTable
	}

	if c.Purge.Endpoint == "" {
		c.Purge.Endpoint = DefaultPurgeEndpoint
	}
	if len(c.Purge.Tags) == 0 {
		c.Purge.Tags = append([]string(nil), DefaultPurgeTags...)
	}

	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Server.CDNCacheControl == "" {
		c.Server.CDNCacheControl = DefaultCDNCacheControl
	}

	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// ApplyEnv overlays secrets from the environment. lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvCookie); ok && v != "" {
		c.Source.Cookie = v
	} else if v, ok := lookup(EnvLegacyCookie); ok && v != "" {
		c.Source.Cookie = v
	}
	if v, ok := lookup(EnvDatabaseURL); ok && v != "" {
		c.Storage.DSN = v
	}
	if v, ok := lookup(EnvPurgeToken); ok && v != "" {
		c.Purge.Token = v
	}
	if v, ok := lookup(EnvPurgeSiteID); ok && v != "" {
		c.Purge.SiteID = v
	}
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	var errs []error

	for name, raw := range map[string]string{
		"source.primary_url":  c.Source.PrimaryURL,
		"source.fallback_url": c.Source.FallbackURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s: invalid URL %q", name, raw))
		}
	}

	if _, err := time.LoadLocation(c.Source.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("source.timezone: %w", err))
	}

	switch c.Storage.Driver {
	case "file":
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for the postgres driver (or set %s)", EnvDatabaseURL))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q (must be 'file' or 'postgres')", c.Storage.Driver))
	}

	if c.Purge.Enabled && (c.Purge.SiteID == "" || c.Purge.Token == "") {
		errs = append(errs, fmt.Errorf("purge: site_id and token are required when enabled (or set %s / %s)", EnvPurgeSiteID, EnvPurgeToken))
	}

	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("schedule: %w", err))
	}

	return errors.Join(errs...)
}

// Load reads configuration from a YAML file, applies defaults and environment
// overrides, and validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.Normalize()
	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
