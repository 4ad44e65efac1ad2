package speech

import "time"

// Config represents the configuration for the remote speech-to-text client.
type Config struct {
	BaseURL        string
	APIKey         string
	LanguageCode   string
	Timeout        time.Duration
	MaxRetries     int           // retries after the first attempt
	InitialBackoff time.Duration // doubled after each failed attempt
	PollInterval   time.Duration
}

// uploadResponse is the reply to a media upload.
type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

// transcriptRequest submits one transcription job. Diarization and
// punctuation are always on; the language is fixed and auto-detection is
// disabled.
type transcriptRequest struct {
	AudioURL          string `json:"audio_url"`
	SpeakerLabels     bool   `json:"speaker_labels"`
	Punctuate         bool   `json:"punctuate"`
	FormatText        bool   `json:"format_text"`
	LanguageCode      string `json:"language_code"`
	LanguageDetection bool   `json:"language_detection"`
}

// utterance is one diarized span in the remote result.
type utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// transcriptResponse is the job status/result document returned by submit
// and by every poll.
type transcriptResponse struct {
	ID         string      `json:"id"`
	Status     string      `json:"status"`
	Error      string      `json:"error"`
	Text       string      `json:"text"`
	Utterances []utterance `json:"utterances"`
}
