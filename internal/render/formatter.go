// Package render assembles transcript segments into text and writes the
// result in one of the supported output encodings.
package render

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/wisevoice/wisevoice/internal/domain"
	"github.com/wisevoice/wisevoice/pkg/logger"
)

// Mode selects how segments are assembled into text.
type Mode string

const (
	ModeSpeakers  Mode = "speakers"
	ModePlain     Mode = "plain"
	ModeTimecodes Mode = "timecodes"
)

// ParseMode validates a mode tag.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSpeakers, ModePlain, ModeTimecodes:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown transcript mode: %s", s)
}

// Format selects the output encoding. google and word both produce a .docx
// document.
type Format string

const (
	FormatGoogle   Format = "google"
	FormatWord     Format = "word"
	FormatPDF      Format = "pdf"
	FormatTxt      Format = "txt"
	FormatMarkdown Format = "md"
)

// ParseFormat validates a format tag.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatGoogle, FormatWord, FormatPDF, FormatTxt, FormatMarkdown:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown output format: %s", s)
}

// Extension returns the file extension for the format, dot included.
func (f Format) Extension() string {
	switch f {
	case FormatGoogle, FormatWord:
		return ".docx"
	case FormatPDF:
		return ".pdf"
	case FormatTxt:
		return ".txt"
	case FormatMarkdown:
		return ".md"
	}
	return ""
}

// Artifact is a rendered output file, the only entity that crosses the
// pipeline boundary outward.
type Artifact struct {
	Path   string
	Format Format
}

// Summarizer produces the timecode-annotated outline used by ModeTimecodes.
type Summarizer interface {
	Summarize(ctx context.Context, segments []domain.Segment) string
}

// Formatter renders transcript segments to disk.
type Formatter struct {
	fontsDir   string
	summarizer Summarizer
	logger     *logger.Logger

	// writeDocument is injected so tests can force the document
	// serialization fallback.
	writeDocument func(text, outPath string) error
}

// NewFormatter creates a formatter. fontsDir holds the optional TTF fonts
// preferred for PDF output.
func NewFormatter(fontsDir string, summarizer Summarizer, log *logger.Logger) *Formatter {
	f := &Formatter{
		fontsDir:   fontsDir,
		summarizer: summarizer,
		logger:     log.Named("render"),
	}
	f.writeDocument = f.writeDocx
	return f
}

// Render assembles the segments according to mode and writes exactly one
// file at outPath in the given format.
func (f *Formatter) Render(ctx context.Context, segments []domain.Segment, mode Mode, format Format, outPath string) (Artifact, error) {
	var text string
	switch mode {
	case ModeSpeakers:
		text = SpeakerText(segments)
	case ModePlain:
		text = PlainText(segments)
	case ModeTimecodes:
		if f.summarizer == nil {
			return Artifact{}, domain.Errorf(domain.KindRenderError, "timecode mode requires a summarizer")
		}
		text = f.summarizer.Summarize(ctx, segments)
	default:
		return Artifact{}, domain.Errorf(domain.KindRenderError, "unknown transcript mode: %s", mode)
	}

	var err error
	switch format {
	case FormatPDF:
		err = f.writePDF(text, outPath)
	case FormatTxt, FormatMarkdown:
		// Markdown output is byte-identical to plain text.
		err = writeText(text, outPath)
	case FormatGoogle, FormatWord:
		if docErr := f.writeDocument(text, outPath); docErr != nil {
			f.logger.Warn("Document serialization failed, falling back to plain text",
				logger.String("path", outPath),
				logger.Error(docErr))
			err = writeText(text, outPath)
		}
	default:
		return Artifact{}, domain.Errorf(domain.KindRenderError, "unknown output format: %s", format)
	}
	if err != nil {
		return Artifact{}, domain.NewError(domain.KindRenderError, fmt.Sprintf("failed to write %s output", format), err)
	}
	return Artifact{Path: outPath, Format: format}, nil
}

// SpeakerText renders each segment as a speaker-labeled block, blocks
// double-newline-joined in input order.
func SpeakerText(segments []domain.Segment) string {
	blocks := make([]string, 0, len(segments))
	for _, segment := range segments {
		blocks = append(blocks, fmt.Sprintf("Speaker %s:\n%s", segment.Speaker, segment.Text))
	}
	return strings.Join(blocks, "\n\n")
}

// PlainText renders segment texts double-newline-joined in input order.
func PlainText(segments []domain.Segment) string {
	blocks := make([]string, 0, len(segments))
	for _, segment := range segments {
		blocks = append(blocks, segment.Text)
	}
	return strings.Join(blocks, "\n\n")
}

func writeText(text, outPath string) error {
	return os.WriteFile(outPath, []byte(text), 0o644)
}

// paragraphs splits assembled text into non-empty paragraph blocks. Empty
// text yields zero paragraphs.
func paragraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		out = append(out, block)
	}
	return out
}
