package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvCookie, EnvLegacyCookie, EnvDatabaseURL, EnvPurgeToken, EnvPurgeSiteID} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Source.PrimaryURL != DefaultPrimaryURL {
		t.Errorf("PrimaryURL = %q, want %q", cfg.Source.PrimaryURL, DefaultPrimaryURL)
	}
	if cfg.Source.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", cfg.Source.Timeout)
	}
	if cfg.Source.Timezone != "America/New_York" {
		t.Errorf("Timezone = %q, want America/New_York", cfg.Source.Timezone)
	}
	if cfg.Storage.Driver != "file" {
		t.Errorf("Driver = %q, want file", cfg.Storage.Driver)
	}
	if strings.Join(cfg.Purge.Tags, ",") != "events-data,homepage" {
		t.Errorf("Tags = %v, want [events-data homepage]", cfg.Purge.Tags)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Schedule != DefaultSchedule {
		t.Errorf("Schedule = %q, want %q", cfg.Schedule, DefaultSchedule)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
source:
  timeout: 5s
  timezone: America/Chicago
storage:
  driver: FILE
  dir: /tmp/athens
server:
  listen: ":9090"
schedule: "*/30 * * * *"
log_level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Source.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Source.Timeout)
	}
	if cfg.Source.Timezone != "America/Chicago" {
		t.Errorf("Timezone = %q, want America/Chicago", cfg.Source.Timezone)
	}
	if cfg.Source.PrimaryURL != DefaultPrimaryURL {
		t.Errorf("PrimaryURL should default, got %q", cfg.Source.PrimaryURL)
	}
	if cfg.Storage.Driver != "file" {
		t.Errorf("Driver = %q, want file", cfg.Storage.Driver)
	}
	if cfg.Storage.Dir != "/tmp/athens" {
		t.Errorf("Dir = %q, want /tmp/athens", cfg.Storage.Dir)
	}
	if cfg.Server.Listen != ":9090" {
		t.Errorf("Listen = %q, want :9090", cfg.Server.Listen)
	}
	if cfg.Schedule != "*/30 * * * *" {
		t.Errorf("Schedule = %q", cfg.Schedule)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvLegacyCookie, "legacy=1")
	t.Setenv(EnvDatabaseURL, "postgres://localhost/athens")
	t.Setenv(EnvPurgeToken, "tok")
	t.Setenv(EnvPurgeSiteID, "site")

	path := writeConfig(t, `
storage:
  driver: postgres
purge:
  enabled: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Source.Cookie != "legacy=1" {
		t.Errorf("Cookie = %q, want legacy=1", cfg.Source.Cookie)
	}
	if cfg.Storage.DSN != "postgres://localhost/athens" {
		t.Errorf("DSN = %q", cfg.Storage.DSN)
	}
	if cfg.Purge.Token != "tok" || cfg.Purge.SiteID != "site" {
		t.Errorf("Purge = %+v", cfg.Purge)
	}

	t.Setenv(EnvCookie, "primary=1")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Source.Cookie != "primary=1" {
		t.Errorf("Cookie = %q, %s should win over %s", cfg.Source.Cookie, EnvCookie, EnvLegacyCookie)
	}
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "bad yaml",
			body:    "source: [",
			wantErr: "parsing config",
		},
		{
			name:    "bad url",
			body:    "source:\n  primary_url: ftp://example.com\n",
			wantErr: "source.primary_url",
		},
		{
			name:    "bad timezone",
			body:    "source:\n  timezone: Mars/Base\n",
			wantErr: "source.timezone",
		},
		{
			name:    "postgres without dsn",
			body:    "storage:\n  driver: postgres\n",
			wantErr: "storage.dsn",
		},
		{
			name:    "unknown driver",
			body:    "storage:\n  driver: s3\n",
			wantErr: "storage.driver",
		},
		{
			name:    "purge without credentials",
			body:    "purge:\n  enabled: true\n",
			wantErr: "purge",
		},
		{
			name:    "bad schedule",
			body:    "schedule: every now and then\n",
			wantErr: "schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}
