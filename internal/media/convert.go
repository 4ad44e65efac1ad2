package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/wisevoice/wisevoice/internal/domain"
	"github.com/wisevoice/wisevoice/pkg/logger"
)

// Convert transcodes an arbitrary audio/video container to mp3 and returns
// the output path. No network fetch is involved.
func (a *Acquirer) Convert(ctx context.Context, inputPath string) (string, error) {
	outputPath := filepath.Join(a.config.TempDir, uuid.NewString()+".mp3")

	result, err := a.runner.Run(ctx, nil,
		a.config.FFmpegPath,
		"-i", inputPath,
		"-acodec", "libmp3lame",
		"-q:a", "2",
		"-y",
		outputPath,
	)
	if err != nil {
		return "", domain.NewError(domain.KindConversionError,
			fmt.Sprintf("audio conversion failed: %s", strings.TrimSpace(result.Stderr)), err)
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		return "", domain.Errorf(domain.KindConversionError, "conversion produced no output at %s", outputPath)
	}

	a.logger.Info("Conversion completed",
		logger.String("input", inputPath),
		logger.String("output", outputPath))
	return outputPath, nil
}

// Split cuts an audio file into fixed-duration chunks without re-encoding
// and returns the sorted list of chunk paths. It supports the approximate
// timecode outline and is not on the primary transcript path.
func (a *Acquirer) Split(ctx context.Context, inputPath string) ([]string, error) {
	outputDir, err := os.MkdirTemp(a.config.TempDir, "fragments_")
	if err != nil {
		return nil, domain.NewError(domain.KindConversionError, "failed to create fragments dir", err)
	}
	pattern := filepath.Join(outputDir, "fragment_%03d.mp3")

	result, err := a.runner.Run(ctx, nil,
		a.config.FFmpegPath,
		"-i", inputPath,
		"-f", "segment",
		"-segment_time", strconv.Itoa(a.config.SegmentSeconds),
		"-c", "copy",
		pattern,
	)
	if err != nil {
		a.Cleanup(outputDir)
		return nil, domain.NewError(domain.KindConversionError,
			fmt.Sprintf("audio segmentation failed: %s", strings.TrimSpace(result.Stderr)), err)
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, domain.NewError(domain.KindConversionError, "failed to list fragments", err)
	}
	var chunks []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "fragment_") && strings.HasSuffix(name, ".mp3") {
			chunks = append(chunks, filepath.Join(outputDir, name))
		}
	}
	sort.Strings(chunks)
	return chunks, nil
}
