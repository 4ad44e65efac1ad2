// Package speech uploads normalized audio to a remote speech-to-text service
// and polls the resulting job until it reaches a terminal state.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wisevoice/wisevoice/internal/domain"
	"github.com/wisevoice/wisevoice/pkg/logger"
)

// Client talks to an AssemblyAI-style transcription API.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *logger.Logger

	// sleep is injected so tests can record backoff/poll waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a transcription client.
func NewClient(config Config, log *logger.Logger) *Client {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = time.Second
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 3 * time.Second
	}
	if config.Timeout <= 0 {
		config.Timeout = 300 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     log.Named("speech-client"),
		sleep:      sleepCtx,
	}
}

// Transcribe uploads the audio file, submits a transcription job, and polls
// until the remote reports a terminal state. Segments preserve the
// chronological order reported by the service.
func (c *Client) Transcribe(ctx context.Context, audioPath string) ([]domain.Segment, error) {
	uploadURL, err := c.upload(ctx, audioPath)
	if err != nil {
		return nil, domain.NewError(domain.KindUploadError, "failed to upload audio to transcription service", err)
	}

	jobID, err := c.submit(ctx, uploadURL)
	if err != nil {
		return nil, domain.NewError(domain.KindTranscriptionError, "failed to submit transcription job", err)
	}

	c.logger.Info("Transcription job submitted", logger.String("job_id", jobID))

	result, err := c.poll(ctx, jobID)
	if err != nil {
		return nil, domain.NewError(domain.KindTranscriptionError, "transcription failed", err)
	}

	segments := assembleSegments(result)
	c.logger.Info("Transcription completed",
		logger.String("job_id", jobID),
		logger.Int("segments", len(segments)))
	return segments, nil
}

// upload streams the audio file to the service with retry/backoff and
// returns the opaque upload reference.
func (c *Client) upload(ctx context.Context, audioPath string) (string, error) {
	var uploadURL string
	err := c.withRetry(ctx, "upload", func() error {
		url, err := c.uploadOnce(ctx, audioPath)
		if err != nil {
			return err
		}
		uploadURL = url
		return nil
	})
	return uploadURL, err
}

func (c *Client) uploadOnce(ctx context.Context, audioPath string) (string, error) {
	// Reopened per attempt so retries restart the stream from byte zero.
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/upload", file)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("authorization", c.config.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if parsed.UploadURL == "" {
		return "", fmt.Errorf("upload response missing upload_url")
	}
	return parsed.UploadURL, nil
}

// submit creates the transcription job with retry/backoff and returns the
// remote job id.
func (c *Client) submit(ctx context.Context, uploadURL string) (string, error) {
	payload := transcriptRequest{
		AudioURL:          uploadURL,
		SpeakerLabels:     true,
		Punctuate:         true,
		FormatText:        true,
		LanguageCode:      c.config.LanguageCode,
		LanguageDetection: false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal transcript request: %w", err)
	}

	var jobID string
	err = c.withRetry(ctx, "submit", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/transcript", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create submit request: %w", err)
		}
		req.Header.Set("authorization", c.config.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("submit request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("submit returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}

		var parsed transcriptResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("failed to decode submit response: %w", err)
		}
		if parsed.ID == "" {
			return fmt.Errorf("submit response missing job id")
		}
		jobID = parsed.ID
		return nil
	})
	return jobID, err
}

// poll checks the job status on a fixed interval until the remote reports
// completed or error. A remote-reported error is fatal immediately; the poll
// phase is never retried. The only overall bound is ctx.
func (c *Client) poll(ctx context.Context, jobID string) (*transcriptResponse, error) {
	for {
		result, err := c.pollOnce(ctx, jobID)
		if err != nil {
			return nil, err
		}
		switch result.Status {
		case "completed":
			return result, nil
		case "error":
			return nil, fmt.Errorf("remote transcription error: %s", result.Error)
		}
		if err := c.sleep(ctx, c.config.PollInterval); err != nil {
			return nil, err
		}
	}
}

func (c *Client) pollOnce(ctx context.Context, jobID string) (*transcriptResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/transcript/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll request: %w", err)
	}
	req.Header.Set("authorization", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("poll returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode poll response: %w", err)
	}
	return &parsed, nil
}

// withRetry runs fn up to 1 + MaxRetries times, doubling the backoff after
// each failed attempt (1s, 2s, 4s with the defaults).
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	backoff := c.config.InitialBackoff
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if attempt == c.config.MaxRetries {
			return fmt.Errorf("%s failed after %d attempts: %w", op, attempt+1, err)
		}
		c.logger.Warn("Transient failure, retrying",
			logger.String("op", op),
			logger.Int("attempt", attempt+1),
			logger.Duration("backoff", backoff),
			logger.Error(err))
		if serr := c.sleep(ctx, backoff); serr != nil {
			return serr
		}
		backoff *= 2
	}
}

// assembleSegments converts the remote result into ordered segments. Text is
// run through a validation round trip to guard against encoding drift from
// the transport layer.
func assembleSegments(result *transcriptResponse) []domain.Segment {
	if len(result.Utterances) > 0 {
		segments := make([]domain.Segment, 0, len(result.Utterances))
		for _, utt := range result.Utterances {
			speaker := utt.Speaker
			if speaker == "" {
				speaker = domain.UnknownSpeaker
			}
			segments = append(segments, domain.Segment{
				Speaker: speaker,
				Text:    normalizeText(utt.Text),
			})
		}
		return segments
	}
	return []domain.Segment{{
		Speaker: domain.UnknownSpeaker,
		Text:    normalizeText(result.Text),
	}}
}

// normalizeText trims and re-validates the UTF-8 encoding of transcript
// text, replacing any invalid byte sequences.
func normalizeText(text string) string {
	trimmed := strings.TrimSpace(text)
	if utf8.ValidString(trimmed) {
		return trimmed
	}
	return strings.ToValidUTF8(trimmed, string(utf8.RuneError))
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
