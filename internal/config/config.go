package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration for the transcription pipeline.
type Config struct {
	Logging LoggingConfig `toml:"logging"`
	Media   MediaConfig   `toml:"media"`
	Speech  SpeechConfig  `toml:"speech"`
	Summary SummaryConfig `toml:"summary"`
	Render  RenderConfig  `toml:"render"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MediaConfig configures media acquisition and normalization.
type MediaConfig struct {
	YtDlpPath      string `toml:"ytdlp_path"`
	FFmpegPath     string `toml:"ffmpeg_path"`
	TempDir        string `toml:"temp_dir"` // empty means os.TempDir
	SegmentSeconds int    `toml:"segment_seconds"`
}

// SpeechConfig configures the remote speech-to-text service.
type SpeechConfig struct {
	BaseURL             string `toml:"base_url"`
	APIKey              string `toml:"api_key"`
	LanguageCode        string `toml:"language_code"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	MaxRetries          int    `toml:"max_retries"` // retries after the first attempt
	InitialBackoffMs    int    `toml:"initial_backoff_ms"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
}

// SummaryConfig configures the language-model outline generation.
type SummaryConfig struct {
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// RenderConfig configures output rendering.
type RenderConfig struct {
	FontsDir      string `toml:"fonts_dir"`
	OutputDir     string `toml:"output_dir"`
	DefaultFormat string `toml:"default_format"`
}

// Default returns the configuration used when no file overrides are given.
// The constants mirror the service defaults: a 300s API timeout, 3 retries
// with a 1s initial backoff, a 3s poll interval, and 60s summary segments.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Media: MediaConfig{
			YtDlpPath:      "yt-dlp",
			FFmpegPath:     "ffmpeg",
			SegmentSeconds: 60,
		},
		Speech: SpeechConfig{
			BaseURL:             "https://api.assemblyai.com/v2",
			LanguageCode:        "ru",
			TimeoutSeconds:      300,
			MaxRetries:          3,
			InitialBackoffMs:    1000,
			PollIntervalSeconds: 3,
		},
		Summary: SummaryConfig{
			BaseURL:        "https://openrouter.ai/api/v1",
			Model:          "z-ai/glm-4.5-air:free",
			Temperature:    0.2,
			TimeoutSeconds: 60,
		},
		Render: RenderConfig{
			FontsDir:      "fonts",
			OutputDir:     "",
			DefaultFormat: "pdf",
		},
	}
}

// LoadFromFile reads a TOML file over the defaults. A missing file is an
// error; use Default directly when no file is expected.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields the pipeline cannot run without.
func (c *Config) Validate() error {
	if c.Speech.BaseURL == "" {
		return fmt.Errorf("speech.base_url must be set")
	}
	if c.Speech.MaxRetries < 0 {
		return fmt.Errorf("speech.max_retries must not be negative")
	}
	if c.Speech.PollIntervalSeconds < 1 {
		return fmt.Errorf("speech.poll_interval_seconds must be at least 1")
	}
	if c.Media.SegmentSeconds < 1 {
		return fmt.Errorf("media.segment_seconds must be at least 1")
	}
	if c.Render.DefaultFormat != "" && !knownFormat(c.Render.DefaultFormat) {
		return fmt.Errorf("render.default_format %q is not supported", c.Render.DefaultFormat)
	}
	if c.Media.TempDir == "" {
		c.Media.TempDir = os.TempDir()
	}
	return nil
}

func knownFormat(format string) bool {
	switch format {
	case "google", "word", "pdf", "txt", "md":
		return true
	}
	return false
}
