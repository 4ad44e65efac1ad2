// Package pipeline coordinates one media-to-transcript run: acquisition,
// remote transcription, and rendering, with progress checkpoints along the
// way.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/wisevoice/wisevoice/internal/domain"
	"github.com/wisevoice/wisevoice/internal/progress"
	"github.com/wisevoice/wisevoice/internal/render"
	"github.com/wisevoice/wisevoice/pkg/logger"
)

// Acquirer resolves a media reference into a normalized local audio file.
type Acquirer interface {
	ResolveLocal(path string) (string, error)
	FetchRemote(ctx context.Context, url string, handle func(progress.Event)) (string, error)
	Convert(ctx context.Context, path string) (string, error)
	Cleanup(paths ...string)
}

// Transcriber turns a local audio file into ordered speaker segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]domain.Segment, error)
}

// Renderer writes assembled transcript text to disk.
type Renderer interface {
	Render(ctx context.Context, segments []domain.Segment, mode render.Mode, format render.Format, outPath string) (render.Artifact, error)
}

// Request describes one pipeline run.
type Request struct {
	Source    string // local file path or http(s) video URL
	Modes     []render.Mode
	Format    render.Format
	OutputDir string
	Target    string // progress target identity (e.g. a status message id)
}

// Pipeline wires the acquisition, transcription, and rendering stages.
type Pipeline struct {
	acquirer    Acquirer
	transcriber Transcriber
	renderer    Renderer
	aggregator  *progress.Aggregator
	logger      *logger.Logger
}

// New creates a pipeline.
func New(acquirer Acquirer, transcriber Transcriber, renderer Renderer, aggregator *progress.Aggregator, log *logger.Logger) *Pipeline {
	return &Pipeline{
		acquirer:    acquirer,
		transcriber: transcriber,
		renderer:    renderer,
		aggregator:  aggregator,
		logger:      log.Named("pipeline"),
	}
}

// Run executes one full pipeline pass and returns one artifact per requested
// mode. All temporary audio produced along the way is removed best-effort
// before returning; the progress target's throttle state is dropped with it.
func (p *Pipeline) Run(ctx context.Context, req Request) ([]render.Artifact, error) {
	if len(req.Modes) == 0 {
		return nil, domain.Errorf(domain.KindRenderError, "no transcript modes selected")
	}
	defer p.aggregator.Forget(req.Target)

	report := func(event progress.Event) {
		p.aggregator.Report(ctx, req.Target, event)
	}

	audioPath, temporary, err := p.acquire(ctx, req, report)
	if err != nil {
		return nil, err
	}
	defer p.acquirer.Cleanup(temporary...)

	job := domain.NewJob(audioPath)
	report(progress.StatusEvent("Uploading file for processing..."))
	report(progress.FractionEvent(0.01))

	if err := job.Advance(domain.JobStatusProcessing); err != nil {
		return nil, err
	}
	report(progress.FractionEvent(0.30))

	segments, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		_ = job.Advance(domain.JobStatusError)
		return nil, err
	}
	if err := job.Advance(domain.JobStatusCompleted); err != nil {
		return nil, err
	}
	if err := job.SetResult(segments); err != nil {
		return nil, err
	}
	report(progress.FractionEvent(0.90))

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	artifacts := make([]render.Artifact, 0, len(req.Modes))
	for _, mode := range req.Modes {
		outPath := filepath.Join(req.OutputDir, fmt.Sprintf("%s_%s%s", baseName, mode, req.Format.Extension()))
		artifact, err := p.renderer.Render(ctx, job.Segments, mode, req.Format, outPath)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}

	report(progress.FractionEvent(1.0))
	report(progress.StatusEvent("Processing complete!"))

	p.logger.Info("Pipeline run finished",
		logger.String("source", req.Source),
		logger.Int("segments", len(job.Segments)),
		logger.Int("artifacts", len(artifacts)))
	return artifacts, nil
}

// acquire resolves the request source to a local mp3 and reports which
// produced files are temporary.
func (p *Pipeline) acquire(ctx context.Context, req Request, report func(progress.Event)) (string, []string, error) {
	if isRemote(req.Source) {
		path, err := p.acquirer.FetchRemote(ctx, req.Source, report)
		if err != nil {
			return "", nil, err
		}
		return path, []string{path}, nil
	}

	path, err := p.acquirer.ResolveLocal(req.Source)
	if err != nil {
		return "", nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		return path, nil, nil
	}

	report(progress.StatusEvent("Converting audio..."))
	converted, err := p.acquirer.Convert(ctx, path)
	if err != nil {
		return "", nil, err
	}
	return converted, []string{converted}, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
