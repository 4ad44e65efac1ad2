package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Media.TempDir == "" {
		t.Fatal("Validate left temp_dir empty")
	}
	if cfg.Media.SegmentSeconds != 60 {
		t.Fatalf("segment_seconds = %d, want 60", cfg.Media.SegmentSeconds)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[speech]
api_key = "secret"
language_code = "en"

[render]
default_format = "txt"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile error = %v", err)
	}
	if cfg.Speech.APIKey != "secret" {
		t.Fatalf("api_key = %q", cfg.Speech.APIKey)
	}
	if cfg.Speech.LanguageCode != "en" {
		t.Fatalf("language_code = %q", cfg.Speech.LanguageCode)
	}
	// Untouched defaults survive the overlay.
	if cfg.Speech.BaseURL != "https://api.assemblyai.com/v2" {
		t.Fatalf("base_url = %q", cfg.Speech.BaseURL)
	}
	if cfg.Render.DefaultFormat != "txt" {
		t.Fatalf("default_format = %q", cfg.Render.DefaultFormat)
	}
}

func TestLoadFromFileRejectsBadFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[render]
default_format = "odt"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("LoadFromFile accepted unsupported format")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("LoadFromFile on missing file succeeded")
	}
}
