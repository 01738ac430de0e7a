package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrServiceUnavailable indicates the transcription service is unreachable.
var ErrServiceUnavailable = errors.New("transcription service unavailable")

// WhisperClient calls the internal transcription service, which extracts
// the audio track and runs it through a Whisper model. The per-request
// deadline comes from the caller's context so the normalizer's item timeout
// applies end to end.
type WhisperClient struct {
	baseURL string
	client  *http.Client
}

// NewWhisperClient creates a transcription client for the given base URL.
func NewWhisperClient(baseURL string) *WhisperClient {
	return &WhisperClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

type transcribeRequest struct {
	MediaURL string `json:"media_url"`
}

type transcribeResponse struct {
	Text            string  `json:"text"`
	Language        string  `json:"language"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Transcribe implements Transcriber.
func (c *WhisperClient) Transcribe(ctx context.Context, mediaURL string) (Transcript, error) {
	payload, err := json.Marshal(transcribeRequest{MediaURL: mediaURL})
	if err != nil {
		return Transcript{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transcriptions", bytes.NewReader(payload))
	if err != nil {
		return Transcript{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return Transcript{}, context.DeadlineExceeded
		}
		return Transcript{}, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Transcript{}, fmt.Errorf("transcription service: unexpected status %d", resp.StatusCode)
	}

	var body transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Transcript{}, fmt.Errorf("decode response: %w", err)
	}

	return Transcript{
		Text:     body.Text,
		Language: body.Language,
		Duration: time.Duration(body.DurationSeconds * float64(time.Second)),
	}, nil
}

// Health checks service reachability.
func (c *WhisperClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transcription service: unexpected status %d", resp.StatusCode)
	}
	return nil
}
