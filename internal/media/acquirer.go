// Package media resolves an arbitrary input (local file or streaming-video
// URL) into a normalized local audio artifact, using external yt-dlp and
// ffmpeg tools.
package media

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/wisevoice/wisevoice/internal/domain"
	"github.com/wisevoice/wisevoice/internal/progress"
	"github.com/wisevoice/wisevoice/pkg/logger"
)

// Config represents the configuration for media acquisition.
type Config struct {
	YtDlpPath      string
	FFmpegPath     string
	TempDir        string
	SegmentSeconds int
}

// Acquirer turns a media reference into a normalized mp3 on local disk.
type Acquirer struct {
	config Config
	runner commandRunner
	logger *logger.Logger
}

// NewAcquirer creates a media acquirer.
func NewAcquirer(config Config, log *logger.Logger) *Acquirer {
	if config.YtDlpPath == "" {
		config.YtDlpPath = "yt-dlp"
	}
	if config.FFmpegPath == "" {
		config.FFmpegPath = "ffmpeg"
	}
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}
	if config.SegmentSeconds <= 0 {
		config.SegmentSeconds = 60
	}
	return &Acquirer{
		config: config,
		runner: &execRunner{},
		logger: log.Named("media"),
	}
}

// ResolveLocal verifies that path names a non-empty readable file and
// returns it unchanged.
func (a *Acquirer) ResolveLocal(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", domain.NewError(domain.KindUnsupportedInput, "input file is not readable", err)
	}
	if info.IsDir() {
		return "", domain.Errorf(domain.KindUnsupportedInput, "input %s is a directory", path)
	}
	if info.Size() == 0 {
		return "", domain.Errorf(domain.KindUnsupportedInput, "input %s is empty", path)
	}
	file, err := os.Open(path)
	if err != nil {
		return "", domain.NewError(domain.KindUnsupportedInput, "input file is not readable", err)
	}
	file.Close()
	return path, nil
}

// downloadProgress matches yt-dlp --newline progress output, for example
// "[download]  42.3% of 10.00MiB at 1.00MiB/s".
var downloadProgress = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)%`)

// FetchRemote downloads the audio track of a remote video and transcodes it
// to mp3. The tool invocation runs on a dedicated goroutine so this call can
// concurrently pump fractional progress samples into handle; the pump exits
// once the worker finishes and any buffered samples are drained. Returns the
// path to the produced audio file.
func (a *Acquirer) FetchRemote(ctx context.Context, rawURL string, handle func(progress.Event)) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", domain.Errorf(domain.KindInvalidLink, "malformed video link: %s", rawURL)
	}

	id := uuid.NewString()
	outTemplate := filepath.Join(a.config.TempDir, id) + ".%(ext)s"

	// Single producer: the worker goroutine reading tool output. Single
	// consumer: the pump below. The send never blocks the worker.
	samples := make(chan progress.Event, 64)
	emit := func(line string) {
		if !strings.HasPrefix(line, "[download]") {
			return
		}
		match := downloadProgress.FindStringSubmatch(line)
		if match == nil {
			return
		}
		percent, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return
		}
		select {
		case samples <- progress.FractionEvent(percent / 100):
		default:
		}
	}

	done := make(chan struct{})
	var workerResult commandResult
	var workerErr error
	go func() {
		defer close(done)
		workerResult, workerErr = a.runner.Run(ctx, emit,
			a.config.YtDlpPath,
			"--newline",
			"--no-warnings",
			"-f", "bestaudio/best",
			"-x", "--audio-format", "mp3",
			"-o", outTemplate,
			rawURL,
		)
	}()

	if handle != nil {
		progress.Pump(ctx, samples, done, progress.DefaultPumpWait, handle)
	}
	<-done

	if workerErr != nil {
		a.cleanupByPrefix(id)
		return "", domain.NewError(domain.KindAcquisitionError,
			fmt.Sprintf("video download failed: %s", strings.TrimSpace(workerResult.Stderr)), workerErr)
	}

	path, err := a.resolveOutput(id)
	if err != nil {
		return "", domain.NewError(domain.KindAcquisitionError, "downloaded audio file not found", err)
	}
	a.logger.Info("Remote audio acquired",
		logger.String("url", rawURL),
		logger.String("path", path))
	return path, nil
}

// resolveOutput locates the produced file. The post-processor normally
// writes <id>.mp3, but tool output naming can diverge, so fall back to a
// temp-dir scan by prefix.
func (a *Acquirer) resolveOutput(id string) (string, error) {
	expected := filepath.Join(a.config.TempDir, id+".mp3")
	if info, err := os.Stat(expected); err == nil && info.Size() > 0 {
		return expected, nil
	}

	entries, err := os.ReadDir(a.config.TempDir)
	if err != nil {
		return "", fmt.Errorf("failed to scan temp dir: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), id) {
			return filepath.Join(a.config.TempDir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("no output file with prefix %s", id)
}

// cleanupByPrefix removes partial download artifacts. Best-effort: failures
// are logged, never raised.
func (a *Acquirer) cleanupByPrefix(id string) {
	entries, err := os.ReadDir(a.config.TempDir)
	if err != nil {
		a.logger.Warn("Cleanup scan failed", logger.Error(err))
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), id) {
			path := filepath.Join(a.config.TempDir, entry.Name())
			if err := os.Remove(path); err != nil {
				a.logger.Warn("Failed to remove partial artifact",
					logger.String("path", path),
					logger.Error(err))
			}
		}
	}
}

// Cleanup removes generated files and/or their containing temporary
// directories. Best-effort: failures are logged, never raised.
func (a *Acquirer) Cleanup(paths ...string) {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.IsDir() {
			err = os.RemoveAll(path)
		} else {
			err = os.Remove(path)
		}
		if err != nil {
			a.logger.Warn("Failed to clean up artifact",
				logger.String("path", path),
				logger.Error(err))
		}
	}
}
