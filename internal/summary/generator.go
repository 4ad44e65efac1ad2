// Package summary produces a timecode-keyed topical outline of a transcript
// via a remote language model, with a deterministic local fallback.
package summary

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/wisevoice/wisevoice/internal/domain"
	"github.com/wisevoice/wisevoice/pkg/logger"
)

// Config represents the configuration for outline generation.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	Temperature    float64
	Timeout        time.Duration
	SegmentSeconds int
}

// Generator asks an OpenAI-compatible chat endpoint for a chronological,
// topic-grouped outline of the transcript.
type Generator struct {
	client openai.Client
	config Config
	logger *logger.Logger
}

// NewGenerator creates an outline generator.
func NewGenerator(config Config, log *logger.Logger) *Generator {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.SegmentSeconds <= 0 {
		config.SegmentSeconds = 60
	}
	// No transport-level retries: any failure falls through to the local
	// outline instead.
	client := openai.NewClient(
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(config.BaseURL),
		option.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
		option.WithMaxRetries(0),
	)
	return &Generator{
		client: client,
		config: config,
		logger: log.Named("summary"),
	}
}

const instructionTemplate = `Analyze the full audio transcript with timecodes and build a structured outline.
Transcript with timecodes:
%s
Instructions:
1. Identify the MAIN topical blocks and themes
2. Group several consecutive segments into one logical block
3. Give the start time of each block
4. Describe the content of each block concisely
5. Keep chronological order
Response format:
Timecodes
MM:SS - [Main topic/event]
[Additional details]
MM:SS - [Next main topic]
...
`

// Summarize produces the outline text. Timecodes are synthetic: segment i is
// assumed to begin at i times the fixed segment duration, which only
// approximates real speech timing. Any remote failure falls back to the
// local outline; Summarize never fails.
func (g *Generator) Summarize(ctx context.Context, segments []domain.Segment) string {
	prompt := fmt.Sprintf(instructionTemplate, timecodedTranscript(segments, g.config.SegmentSeconds))

	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(g.config.Model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(g.config.Temperature),
	})
	if err != nil {
		g.logger.Warn("Remote outline generation failed, using local fallback", logger.Error(err))
		return LocalOutline(segments, g.config.SegmentSeconds)
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		g.logger.Warn("Remote outline response was empty, using local fallback")
		return LocalOutline(segments, g.config.SegmentSeconds)
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content)
}

// LocalOutline is the deterministic fallback: one line per segment with its
// synthetic timecode and the first 50 characters of text.
func LocalOutline(segments []domain.Segment, segmentSeconds int) string {
	if segmentSeconds <= 0 {
		segmentSeconds = 60
	}
	var b strings.Builder
	b.WriteString("Timecodes\n\n")
	for i, segment := range segments {
		b.WriteString(fmt.Sprintf("%s - %s...\n", Timecode(i, segmentSeconds), truncate(segment.Text, 50)))
	}
	return b.String()
}

// Timecode renders the synthetic start time of segment index as MM:SS.
func Timecode(index, segmentSeconds int) string {
	start := index * segmentSeconds
	return fmt.Sprintf("%02d:%02d", start/60, start%60)
}

// timecodedTranscript annotates every segment with its synthetic timecode.
func timecodedTranscript(segments []domain.Segment, segmentSeconds int) string {
	var b strings.Builder
	for i, segment := range segments {
		b.WriteString(fmt.Sprintf("[%s] %s\n\n", Timecode(i, segmentSeconds), segment.Text))
	}
	return b.String()
}

// truncate keeps the first limit characters, counting runes so multi-byte
// text is never cut mid-character.
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
