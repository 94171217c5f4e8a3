package app

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadConfigFromFile verifies the secrets file is read.
func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	secrets := filepath.Join(dir, "secrets.yml")
	data := `api_uri: http://tracker.example/api
email: maintainer@example.com
password: hunter2
dev_host: dev.example
email_archive: http://archive.example/802.1
email_start: mail1.html
email_limit: 12
blacklist:
  - "123"
  - "456"
`
	if err := os.WriteFile(secrets, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(secrets)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if config.APIURI != "http://tracker.example/api" {
		t.Errorf("APIURI = %q", config.APIURI)
	}
	if config.DevHost != "dev.example" {
		t.Errorf("DevHost = %q", config.DevHost)
	}
	if config.EmailLimit != 12 {
		t.Errorf("EmailLimit = %d, want 12", config.EmailLimit)
	}
	if len(config.Blacklist) != 2 || config.Blacklist[0] != "123" {
		t.Errorf("Blacklist = %v", config.Blacklist)
	}
}

// TestLoadConfigMissingFileIsNotFatal verifies every value can come
// from the environment instead of the secrets file.
func TestLoadConfigMissingFileIsNotFatal(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if config == nil {
		t.Fatal("LoadConfig() returned nil config")
	}
}

// TestConfigEnvironmentVariables verifies environment variable loading.
func TestConfigEnvironmentVariables(t *testing.T) {
	t.Setenv("API_URI", "http://env.example/api")
	t.Setenv("ARCHIVE_USER", "scanner")

	config, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if config.APIURI != "http://env.example/api" {
		t.Errorf("APIURI = %q, want env value", config.APIURI)
	}
	if config.ArchiveUser != "scanner" {
		t.Errorf("ArchiveUser = %q, want env value", config.ArchiveUser)
	}
}

// TestUpdateFromFlags verifies flags take precedence.
func TestUpdateFromFlags(t *testing.T) {
	config := &Config{LogLevel: "warn", Limit: 5}
	config.UpdateFromFlags(true, false, false, true, false, "debug", []string{"802.1Qcc"}, 3)

	if !config.Verbose || !config.DryRun {
		t.Error("boolean flags not applied")
	}
	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", config.LogLevel)
	}
	if config.Limit != 3 {
		t.Errorf("Limit = %d, want 3", config.Limit)
	}
	if len(config.Only) != 1 || config.Only[0] != "802.1Qcc" {
		t.Errorf("Only = %v", config.Only)
	}

	// Empty flag values leave the loaded configuration alone.
	config.UpdateFromFlags(true, false, false, true, false, "", nil, 0)
	if config.LogLevel != "debug" || config.Limit != 3 || len(config.Only) != 1 {
		t.Error("empty flag values overwrote loaded configuration")
	}
}
