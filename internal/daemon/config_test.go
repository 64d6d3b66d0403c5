package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8787 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8787)
	}
	if !cfg.API.Metrics {
		t.Error("API.Metrics should default to true")
	}
	if cfg.Airtable.TimeoutSeconds != 10 {
		t.Errorf("Airtable.TimeoutSeconds = %d, want 10", cfg.Airtable.TimeoutSeconds)
	}
	if cfg.Airtable.BaseID != "" || cfg.Airtable.APIToken != "" {
		t.Error("credentials must have no defaults")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("KARBON_REFERRAL_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 8787 {
		t.Errorf("API.Port = %d, want default", cfg.API.Port)
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KARBON_REFERRAL_HOME", dir)

	content := `
[api]
host = "0.0.0.0"
port = 9000

[airtable]
base_id = "appFILE"
api_token = "keyFILE"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("AIRTABLE_API_TOKEN", "keyENV")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Host != "0.0.0.0" || cfg.API.Port != 9000 {
		t.Errorf("file values not applied: %+v", cfg.API)
	}
	if cfg.Airtable.BaseID != "appFILE" {
		t.Errorf("BaseID = %q, want appFILE", cfg.Airtable.BaseID)
	}
	// Environment beats the file.
	if cfg.Airtable.APIToken != "keyENV" {
		t.Errorf("APIToken = %q, want keyENV", cfg.Airtable.APIToken)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	t.Setenv("KARBON_REFERRAL_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.API.Port = 9999
	cfg.Airtable.BaseID = "appSAVED"
	if err := cfg.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.API.Port != 9999 || loaded.Airtable.BaseID != "appSAVED" {
		t.Errorf("round-trip lost values: %+v", loaded)
	}
}

func TestDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KARBON_REFERRAL_HOME", dir)

	cfg := DefaultConfig()
	if got := cfg.DataDir(); got != filepath.Join(dir, "data") {
		t.Errorf("DataDir = %q", got)
	}

	cfg.Store.Dir = "/var/lib/referral"
	if got := cfg.DataDir(); got != "/var/lib/referral" {
		t.Errorf("DataDir = %q, want explicit dir", got)
	}
}
