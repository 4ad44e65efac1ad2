package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/wisevoice/wisevoice/internal/domain"
	"github.com/wisevoice/wisevoice/pkg/logger"
)

// fakeService scripts an AssemblyAI-style API for tests.
type fakeService struct {
	uploadFailures int
	pollStatuses   []string
	pollError      string
	utterances     []utterance
	text           string

	uploads int
	submits int
	polls   int
}

func (s *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		s.uploads++
		if s.uploads <= s.uploadFailures {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/upload/abc"})
	})
	mux.HandleFunc("/transcript", func(w http.ResponseWriter, r *http.Request) {
		s.submits++
		var req transcriptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if !req.SpeakerLabels || !req.Punctuate || req.LanguageDetection {
			http.Error(w, "unexpected submit options", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(transcriptResponse{ID: "job-1", Status: "queued"})
	})
	mux.HandleFunc("/transcript/job-1", func(w http.ResponseWriter, r *http.Request) {
		status := "completed"
		if s.polls < len(s.pollStatuses) {
			status = s.pollStatuses[s.polls]
		}
		s.polls++
		resp := transcriptResponse{ID: "job-1", Status: status}
		if status == "completed" {
			resp.Utterances = s.utterances
			resp.Text = s.text
		}
		if status == "error" {
			resp.Error = s.pollError
		}
		json.NewEncoder(w).Encode(resp)
	})
	return mux
}

func newTestClient(t *testing.T, service *fakeService) (*Client, *[]time.Duration) {
	t.Helper()
	server := httptest.NewServer(service.handler())
	t.Cleanup(server.Close)

	client := NewClient(Config{
		BaseURL:      server.URL,
		APIKey:       "key",
		LanguageCode: "ru",
		PollInterval: 3 * time.Second,
	}, logger.Nop())

	var sleeps []time.Duration
	client.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return client, &sleeps
}

func audioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.mp3")
	if err := os.WriteFile(path, []byte("fake-mp3-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribeUploadRetriesThenSucceeds(t *testing.T) {
	service := &fakeService{
		uploadFailures: 3,
		utterances:     []utterance{{Speaker: "A", Text: "hello"}},
	}
	client, sleeps := newTestClient(t, service)

	segments, err := client.Transcribe(context.Background(), audioFixture(t))
	if err != nil {
		t.Fatalf("Transcribe error = %v", err)
	}
	if service.uploads != 4 {
		t.Fatalf("upload attempts = %d, want 4", service.uploads)
	}

	// Three backoff sleeps of 1s, 2s, 4s before the successful attempt.
	wantBackoffs := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(*sleeps) < 3 {
		t.Fatalf("sleeps = %v, want at least 3", *sleeps)
	}
	for i, want := range wantBackoffs {
		if (*sleeps)[i] != want {
			t.Fatalf("backoff %d = %v, want %v", i, (*sleeps)[i], want)
		}
	}

	if len(segments) != 1 || segments[0].Speaker != "A" || segments[0].Text != "hello" {
		t.Fatalf("segments = %#v", segments)
	}
}

func TestTranscribeUploadExhaustsRetries(t *testing.T) {
	service := &fakeService{uploadFailures: 10}
	client, _ := newTestClient(t, service)

	_, err := client.Transcribe(context.Background(), audioFixture(t))
	if err == nil {
		t.Fatal("Transcribe succeeded, want upload error")
	}
	if domain.KindOf(err) != domain.KindUploadError {
		t.Fatalf("error kind = %s, want %s", domain.KindOf(err), domain.KindUploadError)
	}
	if service.uploads != 4 {
		t.Fatalf("upload attempts = %d, want 4", service.uploads)
	}
	if service.submits != 0 {
		t.Fatalf("submits = %d, want 0", service.submits)
	}
}

func TestTranscribePollsUntilCompleted(t *testing.T) {
	service := &fakeService{
		pollStatuses: []string{"processing", "processing", "completed"},
		utterances: []utterance{
			{Speaker: "A", Text: "first"},
			{Speaker: "B", Text: "second"},
		},
	}
	client, sleeps := newTestClient(t, service)

	segments, err := client.Transcribe(context.Background(), audioFixture(t))
	if err != nil {
		t.Fatalf("Transcribe error = %v", err)
	}
	if service.polls != 3 {
		t.Fatalf("polls = %d, want 3", service.polls)
	}

	// Two poll waits of the fixed interval, no backoff sleeps.
	if len(*sleeps) != 2 {
		t.Fatalf("sleeps = %v, want 2 poll waits", *sleeps)
	}
	for _, d := range *sleeps {
		if d != 3*time.Second {
			t.Fatalf("poll wait = %v, want 3s", d)
		}
	}

	if len(segments) != 2 || segments[0].Speaker != "A" || segments[1].Speaker != "B" {
		t.Fatalf("segments = %#v", segments)
	}
}

func TestTranscribeRemoteErrorIsFatal(t *testing.T) {
	service := &fakeService{
		pollStatuses: []string{"processing", "error"},
		pollError:    "audio too noisy",
	}
	client, _ := newTestClient(t, service)

	_, err := client.Transcribe(context.Background(), audioFixture(t))
	if err == nil {
		t.Fatal("Transcribe succeeded, want error")
	}
	if domain.KindOf(err) != domain.KindTranscriptionError {
		t.Fatalf("error kind = %s, want %s", domain.KindOf(err), domain.KindTranscriptionError)
	}
	if !strings.Contains(err.Error(), "audio too noisy") {
		t.Fatalf("error = %v, want remote cause", err)
	}
	// The poll phase is not retried: exactly one submit, exactly two polls.
	if service.submits != 1 {
		t.Fatalf("submits = %d, want 1", service.submits)
	}
	if service.polls != 2 {
		t.Fatalf("polls = %d, want 2", service.polls)
	}
}

func TestTranscribeWithoutUtterancesWrapsFullText(t *testing.T) {
	service := &fakeService{text: "  full transcript  "}
	client, _ := newTestClient(t, service)

	segments, err := client.Transcribe(context.Background(), audioFixture(t))
	if err != nil {
		t.Fatalf("Transcribe error = %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("segments = %#v, want 1", segments)
	}
	if segments[0].Speaker != domain.UnknownSpeaker {
		t.Fatalf("speaker = %q, want unknown marker", segments[0].Speaker)
	}
	if segments[0].Text != "full transcript" {
		t.Fatalf("text = %q", segments[0].Text)
	}
}

func TestNormalizeTextRepairsInvalidUTF8(t *testing.T) {
	got := normalizeText("ok\xffbad")
	if !utf8.ValidString(got) {
		t.Fatalf("normalizeText produced invalid UTF-8: %q", got)
	}
	if !strings.HasPrefix(got, "ok") {
		t.Fatalf("normalizeText mangled valid prefix: %q", got)
	}
	if normalizeText("  plain  ") != "plain" {
		t.Fatal("normalizeText did not trim valid text")
	}
}
