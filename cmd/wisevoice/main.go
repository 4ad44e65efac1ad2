package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/wisevoice/wisevoice/internal/config"
	"github.com/wisevoice/wisevoice/internal/media"
	"github.com/wisevoice/wisevoice/internal/pipeline"
	"github.com/wisevoice/wisevoice/internal/progress"
	"github.com/wisevoice/wisevoice/internal/render"
	"github.com/wisevoice/wisevoice/internal/speech"
	"github.com/wisevoice/wisevoice/internal/summary"
	"github.com/wisevoice/wisevoice/pkg/logger"
)

// consoleSink prints progress updates to stderr, one line per update.
type consoleSink struct{}

func (consoleSink) Update(ctx context.Context, target, text string) error {
	_, err := fmt.Fprintf(os.Stderr, "[%s] %s\n", target, strings.ReplaceAll(text, "\n", " "))
	return err
}

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	input := flag.String("input", "", "local media file or video URL")
	format := flag.String("format", "", "output format: google, word, pdf, txt, md")
	modes := flag.String("modes", "speakers", "comma-separated transcript modes: speakers, plain, timecodes")
	outDir := flag.String("out", ".", "directory for rendered artifacts")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: wisevoice -input <file-or-url> [-format pdf] [-modes speakers,plain]")
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	} else if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Speech.APIKey == "" {
		cfg.Speech.APIKey = os.Getenv("ASSEMBLYAI_API_KEY")
	}
	if cfg.Summary.APIKey == "" {
		cfg.Summary.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}

	log, err := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	formatTag := *format
	if formatTag == "" {
		formatTag = cfg.Render.DefaultFormat
	}
	outputFormat, err := render.ParseFormat(formatTag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	var selectedModes []render.Mode
	for _, tag := range strings.Split(*modes, ",") {
		mode, err := render.ParseMode(strings.TrimSpace(tag))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(2)
		}
		selectedModes = append(selectedModes, mode)
	}

	acquirer := media.NewAcquirer(media.Config{
		YtDlpPath:      cfg.Media.YtDlpPath,
		FFmpegPath:     cfg.Media.FFmpegPath,
		TempDir:        cfg.Media.TempDir,
		SegmentSeconds: cfg.Media.SegmentSeconds,
	}, log)

	client := speech.NewClient(speech.Config{
		BaseURL:        cfg.Speech.BaseURL,
		APIKey:         cfg.Speech.APIKey,
		LanguageCode:   cfg.Speech.LanguageCode,
		Timeout:        time.Duration(cfg.Speech.TimeoutSeconds) * time.Second,
		MaxRetries:     cfg.Speech.MaxRetries,
		InitialBackoff: time.Duration(cfg.Speech.InitialBackoffMs) * time.Millisecond,
		PollInterval:   time.Duration(cfg.Speech.PollIntervalSeconds) * time.Second,
	}, log)

	summarizer := summary.NewGenerator(summary.Config{
		BaseURL:        cfg.Summary.BaseURL,
		APIKey:         cfg.Summary.APIKey,
		Model:          cfg.Summary.Model,
		Temperature:    cfg.Summary.Temperature,
		Timeout:        time.Duration(cfg.Summary.TimeoutSeconds) * time.Second,
		SegmentSeconds: cfg.Media.SegmentSeconds,
	}, log)

	formatter := render.NewFormatter(cfg.Render.FontsDir, summarizer, log)
	aggregator := progress.NewAggregator(consoleSink{}, log)
	runner := pipeline.New(acquirer, client, formatter, aggregator, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outputDir := *outDir
	if cfg.Render.OutputDir != "" && *outDir == "." {
		outputDir = cfg.Render.OutputDir
	}

	artifacts, err := runner.Run(ctx, pipeline.Request{
		Source:    *input,
		Modes:     selectedModes,
		Format:    outputFormat,
		OutputDir: outputDir,
		Target:    "console",
	})
	if err != nil {
		log.Error("Pipeline run failed", logger.Error(err))
		os.Exit(1)
	}
	for _, artifact := range artifacts {
		fmt.Println(artifact.Path)
	}
}
